package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

func validationRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	registry.MustRegister(NewDescriptor(
		"search_users",
		"Search users",
		protocol.ObjectSchema(map[string]*protocol.JSONSchema{
			"query":        protocol.StringSchema("Search term"),
			"sort_order":   protocol.EnumSchema("Sort direction", "asc", "desc").WithDefault("desc"),
			"max_results":  protocol.BoundedIntegerSchema("Result ceiling", 1, 100).WithDefault(50),
			"since":        protocol.TimestampSchema("Window start"),
			"include_apps": protocol.BooleanSchema("Include app links"),
		}, []string{"query"}),
		noopHandler,
	))
	return registry
}

func TestValidate_AppliesDefaults(t *testing.T) {
	registry := validationRegistry(t)

	validated, err := registry.Validate("search_users", map[string]any{"query": "jane"})
	require.NoError(t, err)

	assert.Equal(t, "jane", validated["query"])
	assert.Equal(t, "desc", validated["sort_order"])
	assert.Equal(t, 50, validated["max_results"])
	assert.NotContains(t, validated, "since")
}

func TestValidate_MissingRequired(t *testing.T) {
	registry := validationRegistry(t)

	_, err := registry.Validate("search_users", map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.InvalidArguments))

	coded, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "query", coded.Field)
}

func TestValidate_UnknownField(t *testing.T) {
	registry := validationRegistry(t)

	// Unknown fields are reported before the missing required field, and the
	// first offender is the alphabetically smallest one.
	_, err := registry.Validate("search_users", map[string]any{
		"zz_bogus": true,
		"aa_bogus": true,
	})
	require.Error(t, err)
	coded, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.InvalidArguments, coded.Code)
	assert.Equal(t, "aa_bogus", coded.Field)
}

func TestValidate_TypeMismatch(t *testing.T) {
	registry := validationRegistry(t)

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"StringAsNumber", map[string]any{"query": 42.0}, "query"},
		{"IntegerAsString", map[string]any{"query": "x", "max_results": "10"}, "max_results"},
		{"FractionalInteger", map[string]any{"query": "x", "max_results": 10.5}, "max_results"},
		{"BooleanAsString", map[string]any{"query": "x", "include_apps": "yes"}, "include_apps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Validate("search_users", tt.args)
			require.Error(t, err)
			coded, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.InvalidArguments, coded.Code)
			assert.Equal(t, tt.field, coded.Field)
		})
	}
}

func TestValidate_IntegerBounds(t *testing.T) {
	registry := validationRegistry(t)

	_, err := registry.Validate("search_users", map[string]any{"query": "x", "max_results": 0.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")

	_, err = registry.Validate("search_users", map[string]any{"query": "x", "max_results": 500.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most")

	// JSON numbers arrive as float64 and come back as int.
	validated, err := registry.Validate("search_users", map[string]any{"query": "x", "max_results": 25.0})
	require.NoError(t, err)
	assert.Equal(t, 25, validated["max_results"])
}

func TestValidate_Enum(t *testing.T) {
	registry := validationRegistry(t)

	_, err := registry.Validate("search_users", map[string]any{"query": "x", "sort_order": "upwards"})
	require.Error(t, err)
	coded, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "sort_order", coded.Field)

	validated, err := registry.Validate("search_users", map[string]any{"query": "x", "sort_order": "asc"})
	require.NoError(t, err)
	assert.Equal(t, "asc", validated["sort_order"])
}

func TestValidate_Timestamps(t *testing.T) {
	registry := validationRegistry(t)

	valid := []string{
		"2025-06-01T10:30:00Z",
		"2025-06-01T10:30:00.000Z",
		"2025-06-01T10:30:00.000000Z",
		"2025-06-01",
	}
	for _, timestamp := range valid {
		_, err := registry.Validate("search_users", map[string]any{"query": "x", "since": timestamp})
		assert.NoError(t, err, "timestamp %s should validate", timestamp)
	}

	_, err := registry.Validate("search_users", map[string]any{"query": "x", "since": "June 1st"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ISO-8601")
}

func TestValidate_UnknownTool(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Validate("missing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.UnknownTool))
}
