package protocol

import (
	"encoding/json"
)

// JSONSchema represents the structure of a JSON Schema used to describe and
// validate tool parameters.
type JSONSchema struct {
	Type                 string                 `json:"type,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	AdditionalProperties any                    `json:"additionalProperties,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Enum                 []any                  `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`

	// Numeric validation
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	// String validation
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// NewJSONSchemaFromRaw creates a new JSONSchema from raw JSON data
func NewJSONSchemaFromRaw(data json.RawMessage) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// ObjectSchema creates a new JSONSchema for an object type with the given properties
func ObjectSchema(properties map[string]*JSONSchema, required []string) *JSONSchema {
	return &JSONSchema{
		Type:       "object",
		Required:   required,
		Properties: properties,
	}
}

// StringSchema creates a new JSONSchema for a string type
func StringSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "string",
		Description: description,
	}
}

// TimestampSchema creates a string schema constrained to ISO-8601 timestamps
func TimestampSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "string",
		Format:      "date-time",
		Description: description,
	}
}

// EnumSchema creates a string schema restricted to the given values
func EnumSchema(description string, values ...string) *JSONSchema {
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, v)
	}
	return &JSONSchema{
		Type:        "string",
		Description: description,
		Enum:        enum,
	}
}

// NumberSchema creates a new JSONSchema for a number type
func NumberSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "number",
		Description: description,
	}
}

// IntegerSchema creates a new JSONSchema for an integer type
func IntegerSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "integer",
		Description: description,
	}
}

// BoundedIntegerSchema creates an integer schema with an inclusive range
func BoundedIntegerSchema(description string, min, max float64) *JSONSchema {
	return &JSONSchema{
		Type:        "integer",
		Description: description,
		Minimum:     &min,
		Maximum:     &max,
	}
}

// BooleanSchema creates a new JSONSchema for a boolean type
func BooleanSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "boolean",
		Description: description,
	}
}

// ArraySchema creates a new JSONSchema for an array type with the given item schema
func ArraySchema(items *JSONSchema) *JSONSchema {
	return &JSONSchema{
		Type:  "array",
		Items: items,
	}
}

// WithDefault attaches a default value to the schema
func (s *JSONSchema) WithDefault(value any) *JSONSchema {
	s.Default = value
	return s
}
