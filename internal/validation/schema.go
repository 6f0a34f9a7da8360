package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"ai-research-platform/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/research_request.json
var researchRequestSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// RequestError describes why a request body was rejected
type RequestError struct {
	Field   string
	Details []string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, strings.Join(e.Details, "; "))
}

// ResearchRequestSchema returns the compiled research request schema
func ResearchRequestSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(researchRequestSchema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to create schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidateDocument validates a JSON document against schema
func ValidateDocument(body []byte, schema *gojsonschema.Schema) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &RequestError{Field: "body", Details: []string{err.Error()}}
	}

	if !result.Valid() {
		field := ""
		var details []string
		for _, desc := range result.Errors() {
			if field == "" {
				field = desc.Field()
			}
			details = append(details, desc.String())
		}
		if field == "" || field == "(root)" {
			field = "body"
		}
		return &RequestError{Field: field, Details: details}
	}
	return nil
}

// ParseResearchRequest validates and decodes a research request body
func ParseResearchRequest(body []byte) (*models.ResearchRequest, error) {
	s, err := ResearchRequestSchema()
	if err != nil {
		return nil, err
	}
	if err := ValidateDocument(body, s); err != nil {
		return nil, err
	}

	var req models.ResearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{Field: "body", Details: []string{err.Error()}}
	}
	return &req, nil
}
