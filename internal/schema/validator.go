// Package schema validates externally submitted article payloads before
// they are accepted into the raw store. Validation is layered: strict
// JSON decoding, structural checks against an embedded JSON Schema, and
// semantic checks the schema language cannot express.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_article.schema.json
var rawArticleSchemaJSON string

// RawArticlePayload is a validated external article submission. Optional
// fields are pointers so absent and empty stay distinguishable.
type RawArticlePayload struct {
	PayloadVersion string   `json:"payload_version"`
	Source         string   `json:"source"`
	SourceURL      string   `json:"source_url"`
	Title          string   `json:"title"`
	Description    *string  `json:"description,omitempty"`
	PublishedAt    *string  `json:"published_at,omitempty"`
	Category       *string  `json:"category,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lng            *float64 `json:"lng,omitempty"`
	Language       *string  `json:"language,omitempty"`
}

// Published returns the payload's published_at as a UTC time, or the
// zero time when the field is absent. ValidateRawArticlePayload has
// already guaranteed the format.
func (p *RawArticlePayload) Published() time.Time {
	if p.PublishedAt == nil {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.PublishedAt))
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateRawArticlePayload(payload json.RawMessage) (*RawArticlePayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var article RawArticlePayload
	if err := json.Unmarshal(normalized, &article); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&article); err != nil {
		return nil, err
	}

	return &article, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("raw_article.schema.json", strings.NewReader(rawArticleSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("raw_article.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(article *RawArticlePayload) error {
	if article == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(article.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(article.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(article.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}

	if err := validateURI("source_url", article.SourceURL); err != nil {
		return err
	}
	if article.ImageURL != nil {
		if err := validateURI("image_url", *article.ImageURL); err != nil {
			return err
		}
	}
	if article.PublishedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*article.PublishedAt)); err != nil {
			return fmt.Errorf("published_at must be RFC3339: %w", err)
		}
	}

	for i, tag := range article.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags[%d] must not be empty", i)
		}
	}

	// Coordinates travel as a pair or not at all.
	if (article.Lat == nil) != (article.Lng == nil) {
		return fmt.Errorf("lat and lng must be provided together")
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", fieldName)
	}
	return nil
}
