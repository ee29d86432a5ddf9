package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaBuilders(t *testing.T) {
	schema := ObjectSchema(map[string]*JSONSchema{
		"query":       StringSchema("Search term"),
		"since":       TimestampSchema("Window start"),
		"sort_order":  EnumSchema("Direction", "asc", "desc").WithDefault("desc"),
		"max_results": BoundedIntegerSchema("Ceiling", 1, 100).WithDefault(50),
		"active":      BooleanSchema("Only active"),
		"tags":        ArraySchema(StringSchema("Tag")),
	}, []string{"query"})

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"query"}, schema.Required)

	assert.Equal(t, "string", schema.Properties["query"].Type)
	assert.Equal(t, "date-time", schema.Properties["since"].Format)
	assert.Equal(t, []any{"asc", "desc"}, schema.Properties["sort_order"].Enum)
	assert.Equal(t, "desc", schema.Properties["sort_order"].Default)
	assert.Equal(t, float64(1), *schema.Properties["max_results"].Minimum)
	assert.Equal(t, float64(100), *schema.Properties["max_results"].Maximum)
	assert.Equal(t, "array", schema.Properties["tags"].Type)
	assert.Equal(t, "string", schema.Properties["tags"].Items.Type)
}

func TestSchemaWireShape(t *testing.T) {
	schema := ObjectSchema(map[string]*JSONSchema{
		"user_id": StringSchema("The user ID"),
	}, []string{"user_id"})

	data, err := json.Marshal(schema)
	require.NoError(t, err)

	// Unset validation keywords stay off the wire.
	assert.JSONEq(t, `{
		"type": "object",
		"required": ["user_id"],
		"properties": {
			"user_id": {"type": "string", "description": "The user ID"}
		}
	}`, string(data))
}

func TestNewJSONSchemaFromRaw(t *testing.T) {
	schema, err := NewJSONSchemaFromRaw(json.RawMessage(`{"type":"object","properties":{"x":{"type":"integer"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "integer", schema.Properties["x"].Type)

	_, err = NewJSONSchemaFromRaw(json.RawMessage(`{broken`))
	require.Error(t, err)
}
