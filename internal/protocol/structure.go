package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"shipforge.ai/internal/ship/blocks"
)

// ErrSchemaViolation marks payloads rejected by the structure schema.
var ErrSchemaViolation = errors.New("protocol: schema violation")

// DecodeStructure checks raw against the structure schema and decodes it.
// Category and shape names are resolved here, once, so analyzers only ever
// see typed enums.
func DecodeStructure(raw []byte) (*blocks.Structure, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty structure payload", ErrSchemaViolation)
	}
	if err := ValidateJSON(SchemaStructure, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	var s blocks.Structure
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode structure: %w", err)
	}
	return &s, nil
}

func EncodeStructure(s *blocks.Structure) ([]byte, error) {
	if s == nil {
		return nil, blocks.ErrEmptyStructure
	}
	return json.Marshal(s)
}

// CodeFor maps a decode or validation error to a wire error code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSchemaViolation):
		return ErrSchema
	case errors.Is(err, blocks.ErrEmptyStructure):
		return ErrEmptyStructure
	}
	return ErrBadRequest
}
