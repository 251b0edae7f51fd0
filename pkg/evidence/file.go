package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fileSchema is the shape an evidence document must satisfy: a flat object
// of numeric metrics. Anything else is an authoring defect.
const fileSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": {"type": "number"}
}`

// FileSource reads evidence from a JSON document on disk, validating it
// against the evidence schema before decoding.
type FileSource struct {
	path   string
	schema *jsonschema.Schema
}

// NewFileSource compiles the evidence schema for the given document path.
func NewFileSource(path string) (*FileSource, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://kings-theorem.schemas.local/evidence.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(fileSchema)); err != nil {
		return nil, fmt.Errorf("evidence: schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("evidence: schema compile failed: %w", err)
	}
	return &FileSource{path: path, schema: compiled}, nil
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) (Map, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("evidence: read %s: %w", s.path, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("evidence: %s is not valid JSON: %w", s.path, err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("evidence: %s failed schema validation: %w", s.path, err)
	}

	values, ok := doc.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("evidence: %s is not an object", s.path)
	}
	out := make(Map, len(values))
	for name, v := range values {
		num, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("evidence: metric %q is not numeric", name)
		}
		out[name] = num
	}
	return out, nil
}
