package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoDocumentArchive stores research documents in a MongoDB collection
type MongoDocumentArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// BuildMongoURI returns the connection URI and a password-masked copy for logs
func BuildMongoURI(cfg config.MongoDBConfig) (uri, logURI string) {
	if cfg.URI != "" {
		return cfg.URI, cfg.URI
	}

	authSource := cfg.AuthSource
	if authSource == "" {
		authSource = "admin"
	}

	if cfg.Username != "" && cfg.Password != "" {
		userInfo := url.UserPassword(cfg.Username, cfg.Password)
		uri = fmt.Sprintf("mongodb://%s@%s:%s/%s?authSource=%s",
			userInfo.String(), cfg.Host, cfg.Port, cfg.Database, url.QueryEscape(authSource))
		logURI = fmt.Sprintf("mongodb://%s:***@%s:%s/%s?authSource=%s",
			url.User(cfg.Username).String(), cfg.Host, cfg.Port, cfg.Database, url.QueryEscape(authSource))
		return uri, logURI
	}

	uri = fmt.Sprintf("mongodb://%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)
	return uri, uri
}

// NewMongoDocumentArchive connects to MongoDB and prepares the document collection
func NewMongoDocumentArchive(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*MongoDocumentArchive, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uri, logURI := BuildMongoURI(cfg)
	logger.Info("connecting to MongoDB", zap.String("uri", logURI))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at %s: %w", logURI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", logURI, err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "researchType", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Existing indexes with other options are not fatal
		logger.Warn("mongodb index creation", zap.Error(err))
	}

	return &MongoDocumentArchive{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Close disconnects from MongoDB
func (a *MongoDocumentArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

// SaveDocument upserts the document of a task
func (a *MongoDocumentArchive) SaveDocument(ctx context.Context, doc *models.ResearchDocument) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := a.collection.ReplaceOne(ctx, bson.M{"_id": doc.TaskID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save research document: %w", err)
	}
	return nil
}

// GetDocument returns the document of a task, or nil when none is stored
func (a *MongoDocumentArchive) GetDocument(ctx context.Context, taskID string) (*models.ResearchDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc models.ResearchDocument
	err := a.collection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query research document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns document metadata, newest first. An empty
// researchType lists every type.
func (a *MongoDocumentArchive) ListDocuments(ctx context.Context, researchType models.ResearchType) ([]models.ResearchDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if researchType != "" {
		filter["researchType"] = researchType
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"content": 0})

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query research documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.ResearchDocument{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode research documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes the document of a task
func (a *MongoDocumentArchive) DeleteDocument(ctx context.Context, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := a.collection.DeleteOne(ctx, bson.M{"_id": taskID}); err != nil {
		return fmt.Errorf("failed to delete research document: %w", err)
	}
	return nil
}
