package tools

import (
	"math"
	"sort"
	"time"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

// Validate checks an argument map against a tool's parameter schema and
// returns a copy with declared defaults applied for omitted fields.
//
// Failure modes, each an invalid_arguments error naming the first offending
// field: a missing required field, a field not declared in the schema, a
// type mismatch, an out-of-range integer, an enum violation, or a
// malformed timestamp. Field order is deterministic (sorted) so the "first"
// offender is stable.
func (r *Registry) Validate(name string, arguments map[string]any) (map[string]any, error) {
	descriptor, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	schema := descriptor.InputSchema
	if schema == nil {
		if err := firstUnknownField(arguments, nil); err != nil {
			return nil, err
		}
		return map[string]any{}, nil
	}

	// Unknown fields are rejected before anything else.
	if err := firstUnknownField(arguments, schema.Properties); err != nil {
		return nil, err
	}

	// Required fields must be present.
	for _, field := range schema.Required {
		if _, present := arguments[field]; !present {
			return nil, errors.Newf(errors.InvalidArguments,
				"missing required argument: %s", field).WithField(field)
		}
	}

	validated := make(map[string]any, len(schema.Properties))
	for _, field := range sortedFields(schema.Properties) {
		fieldSchema := schema.Properties[field]
		value, present := arguments[field]
		if !present {
			if fieldSchema.Default != nil {
				validated[field] = fieldSchema.Default
			}
			continue
		}
		coerced, err := checkValue(field, fieldSchema, value)
		if err != nil {
			return nil, err
		}
		validated[field] = coerced
	}
	return validated, nil
}

func sortedFields(properties map[string]*protocol.JSONSchema) []string {
	fields := make([]string, 0, len(properties))
	for field := range properties {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func firstUnknownField(arguments map[string]any, properties map[string]*protocol.JSONSchema) error {
	var unknown []string
	for field := range arguments {
		if _, declared := properties[field]; !declared {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Newf(errors.InvalidArguments,
		"unknown argument: %s", unknown[0]).WithField(unknown[0])
}

// checkValue validates one argument value against its field schema and
// returns the canonical Go value (integers as int, not float64).
func checkValue(field string, schema *protocol.JSONSchema, value any) (any, error) {
	badType := func(want string) error {
		return errors.Newf(errors.InvalidArguments,
			"argument %s must be a %s", field, want).WithField(field)
	}

	switch schema.Type {
	case "string":
		text, ok := value.(string)
		if !ok {
			return nil, badType("string")
		}
		if schema.Format == "date-time" && text != "" {
			if !validTimestamp(text) {
				return nil, errors.Newf(errors.InvalidArguments,
					"argument %s must be an ISO-8601 timestamp", field).WithField(field)
			}
		}
		if len(schema.Enum) > 0 {
			if !enumContains(schema.Enum, text) {
				return nil, errors.Newf(errors.InvalidArguments,
					"argument %s must be one of %v", field, schema.Enum).WithField(field)
			}
		}
		return text, nil

	case "integer":
		// JSON numbers arrive as float64.
		number, ok := value.(float64)
		if !ok {
			if n, isInt := value.(int); isInt {
				number = float64(n)
			} else {
				return nil, badType("integer")
			}
		}
		if number != math.Trunc(number) {
			return nil, badType("integer")
		}
		if schema.Minimum != nil && number < *schema.Minimum {
			return nil, errors.Newf(errors.InvalidArguments,
				"argument %s must be at least %v", field, *schema.Minimum).WithField(field)
		}
		if schema.Maximum != nil && number > *schema.Maximum {
			return nil, errors.Newf(errors.InvalidArguments,
				"argument %s must be at most %v", field, *schema.Maximum).WithField(field)
		}
		return int(number), nil

	case "number":
		number, ok := value.(float64)
		if !ok {
			return nil, badType("number")
		}
		return number, nil

	case "boolean":
		flag, ok := value.(bool)
		if !ok {
			return nil, badType("boolean")
		}
		return flag, nil

	case "array":
		items, ok := value.([]any)
		if !ok {
			return nil, badType("array")
		}
		return items, nil
	}

	return value, nil
}

func enumContains(enum []any, value string) bool {
	for _, candidate := range enum {
		if text, ok := candidate.(string); ok && text == value {
			return true
		}
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02",
}

func validTimestamp(text string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, text); err == nil {
			return true
		}
	}
	return false
}
