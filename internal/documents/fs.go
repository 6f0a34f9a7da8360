package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ai-research-platform/internal/models"

	"go.uber.org/zap"
)

var folderByType = map[models.ResearchType]string{
	models.ResearchTypeComprehensive: "comprehensive_research",
	models.ResearchTypeValidation:    "idea_validation",
	models.ResearchTypeMarket:        "market_research",
	models.ResearchTypeFinancial:     "financial_analysis",
	models.ResearchTypeCustom:        "custom_research",
}

const metadataFolder = "metadata"

// FileArchive stores research documents as markdown files, one folder per
// research type, with a JSON metadata sidecar per task
type FileArchive struct {
	root   string
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewFileArchive creates the archive directory layout under root
func NewFileArchive(root string, logger *zap.Logger) (*FileArchive, error) {
	dirs := []string{filepath.Join(root, metadataFolder)}
	for _, folder := range folderByType {
		dirs = append(dirs, filepath.Join(root, folder))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create document directory %s: %w", dir, err)
		}
	}
	return &FileArchive{root: root, logger: logger}, nil
}

// Root returns the archive root directory
func (a *FileArchive) Root() string {
	return a.root
}

func (a *FileArchive) documentPath(doc *models.ResearchDocument) string {
	folder, ok := folderByType[doc.ResearchType]
	if !ok {
		folder = folderByType[models.ResearchTypeCustom]
	}
	return filepath.Join(a.root, folder, filepath.Base(doc.Filename))
}

func (a *FileArchive) metadataPath(taskID string) string {
	return filepath.Join(a.root, metadataFolder, filepath.Base(taskID)+".json")
}

// SaveDocument writes the markdown file and its metadata
func (a *FileArchive) SaveDocument(_ context.Context, doc *models.ResearchDocument) error {
	if doc.TaskID == "" || doc.Filename == "" {
		return errors.New("document requires a task id and filename")
	}

	meta, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document metadata: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.documentPath(doc)
	if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.WriteFile(a.metadataPath(doc.TaskID), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write document metadata: %w", err)
	}

	a.logger.Debug("archived research document",
		zap.String("task_id", doc.TaskID),
		zap.String("path", path),
		zap.Int("bytes", len(doc.Content)),
	)
	return nil
}

// GetDocument loads a document with its content, or nil when none is stored
func (a *FileArchive) GetDocument(_ context.Context, taskID string) (*models.ResearchDocument, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	doc, err := a.readMetadata(a.metadataPath(taskID))
	if err != nil || doc == nil {
		return nil, err
	}

	content, err := os.ReadFile(a.documentPath(doc))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc.Content = string(content)
	return doc, nil
}

// ListDocuments returns document metadata, newest first. An empty
// researchType lists every type.
func (a *FileArchive) ListDocuments(_ context.Context, researchType models.ResearchType) ([]models.ResearchDocument, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(a.root, metadataFolder))
	if err != nil {
		return nil, fmt.Errorf("failed to list document metadata: %w", err)
	}

	docs := []models.ResearchDocument{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		doc, err := a.readMetadata(filepath.Join(a.root, metadataFolder, entry.Name()))
		if err != nil {
			a.logger.Warn("skipping unreadable document metadata", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if doc == nil || (researchType != "" && doc.ResearchType != researchType) {
			continue
		}
		docs = append(docs, *doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// DeleteDocument removes a document and its metadata. Missing files are ignored.
func (a *FileArchive) DeleteDocument(_ context.Context, taskID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	metaPath := a.metadataPath(taskID)
	doc, err := a.readMetadata(metaPath)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	if err := os.Remove(a.documentPath(doc)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document metadata: %w", err)
	}
	return nil
}

func (a *FileArchive) readMetadata(path string) (*models.ResearchDocument, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document metadata: %w", err)
	}

	var doc models.ResearchDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document metadata: %w", err)
	}
	return &doc, nil
}
