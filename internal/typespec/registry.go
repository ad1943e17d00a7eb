package typespec

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ErrUnknownType is returned when a type code has no registered spec.
// Unknown codes are a lookup failure, never silently defaulted.
var ErrUnknownType = fmt.Errorf("unknown document type")

// Registry resolves document type codes to their specs. It is populated once
// at startup and treated as immutable afterwards.
type Registry struct {
	types map[string]DocumentTypeSpec
}

// NewRegistry builds a registry from the given specs.
func NewRegistry(specs ...DocumentTypeSpec) (*Registry, error) {
	r := &Registry{types: make(map[string]DocumentTypeSpec, len(specs))}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		r.types[strings.ToUpper(spec.Code)] = spec
	}
	return r, nil
}

// LoadRegistry reads a JSON settings file of the form
//
//	{"document_types": {"VA": {"requires_review": true, ...}, ...}}
//
// and returns the populated registry.
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type settings: %w", err)
	}

	var file struct {
		DocumentTypes map[string]DocumentTypeSpec `json:"document_types"`
	}
	if err := json.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("parse type settings: %w", err)
	}

	specs := make([]DocumentTypeSpec, 0, len(file.DocumentTypes))
	for code, spec := range file.DocumentTypes {
		if spec.Code == "" {
			spec.Code = code
		}
		specs = append(specs, spec)
	}
	return NewRegistry(specs...)
}

// Get returns the spec registered for the code.
func (r *Registry) Get(code string) (DocumentTypeSpec, error) {
	spec, ok := r.types[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return DocumentTypeSpec{}, fmt.Errorf("%w: %q", ErrUnknownType, code)
	}
	return spec, nil
}

// Codes returns the registered type codes.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.types))
	for code := range r.types {
		codes = append(codes, code)
	}
	return codes
}
