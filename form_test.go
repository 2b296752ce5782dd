package streamhtml

import (
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDecodeValues(t *testing.T) {
	tests := []struct {
		name     string
		input    url.Values
		expected map[string]any
	}{
		{
			name: "simple key-value",
			input: url.Values{
				"name": {"John Doe"},
				"age":  {"30"},
			},
			expected: map[string]any{
				"name": "John Doe",
				"age":  "30",
			},
		},
		{
			name: "nested object",
			input: url.Values{
				"project.id":   {"123"},
				"project.name": {"Tesla"},
			},
			expected: map[string]any{
				"project": map[string]any{
					"id":   "123",
					"name": "Tesla",
				},
			},
		},
		{
			name: "simple array",
			input: url.Values{
				"users[0]": {"Alice"},
				"users[1]": {"Bob"},
			},
			expected: map[string]any{
				"users": []any{"Alice", "Bob"},
			},
		},
		{
			name: "array of objects",
			input: url.Values{
				"apps[0].name": {"nginx"},
				"apps[0].port": {"80"},
				"apps[1].name": {"redis"},
				"apps[1].port": {"6379"},
			},
			expected: map[string]any{
				"apps": []any{
					map[string]any{"name": "nginx", "port": "80"},
					map[string]any{"name": "redis", "port": "6379"},
				},
			},
		},
		{
			name: "complex nested structure",
			input: url.Values{
				"project.id":            {"p1"},
				"project.name":          {"My Project"},
				"apps[0].name":          {"frontend"},
				"apps[0].vars[0].name":  {"API_URL"},
				"apps[0].vars[0].value": {"http://api.example.com"},
				"apps[0].vars[1].name":  {"RETRIES"},
				"apps[0].vars[1].value": {"3"},
				"apps[1].name":          {"backend"},
				"users[0]":              {"admin"},
			},
			expected: map[string]any{
				"project": map[string]any{
					"id":   "p1",
					"name": "My Project",
				},
				"apps": []any{
					map[string]any{
						"name": "frontend",
						"vars": []any{
							map[string]any{"name": "API_URL", "value": "http://api.example.com"},
							map[string]any{"name": "RETRIES", "value": "3"},
						},
					},
					map[string]any{"name": "backend"},
				},
				"users": []any{"admin"},
			},
		},
		{
			name:     "empty input",
			input:    url.Values{},
			expected: map[string]any{},
		},
		{
			name: "empty value",
			input: url.Values{
				"key": {""},
			},
			expected: map[string]any{
				"key": "",
			},
		},
		{
			name: "multiple values for one key",
			input: url.Values{
				"key": {"value1", "value2"},
			},
			expected: map[string]any{
				"key": "value1", // Should take the first value
			},
		},
		{
			name: "malformed array index",
			input: url.Values{
				"key[abc]": {"value"},
				"key[]":    {"value2"},
				"key[1a]":  {"value3"},
			},
			expected: map[string]any{
				"key[abc]": "value",
				"key[]":    "value2",
				"key[1a]":  "value3",
			},
		},
		{
			name: "out-of-order array indices",
			input: url.Values{
				"items[1]": {"B"},
				"items[0]": {"A"},
				"items[3]": {"D"},
			},
			expected: map[string]any{
				"items": []any{"A", "B", nil, "D"},
			},
		},
		{
			name: "overwrite simple value",
			input: url.Values{
				"key":        {"initial"},
				"key.nested": {"overwrite"},
			},
			// keys are applied in sorted order; key.nested cannot nest into a string
			expected: map[string]any{
				"key": "initial",
			},
		},
		{
			name: "plain key wins over nested key",
			input: url.Values{
				"key.nested": {"initial"},
				"key":        {"overwrite"},
			},
			expected: map[string]any{
				"key": "overwrite",
			},
		},
		{
			name: "complex keys",
			input: url.Values{
				"config.server[0].host":     {"localhost"},
				"config.server[0].ports[0]": {"8080"},
				"config.server[0].ports[1]": {"8081"},
				"config.database.url":       {"postgres://..."},
			},
			expected: map[string]any{
				"config": map[string]any{
					"server": []any{
						map[string]any{
							"host":  "localhost",
							"ports": []any{"8080", "8081"},
						},
					},
					"database": map[string]any{
						"url": "postgres://...",
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := DecodeValues(tt.input, nil)
			if diff := cmp.Diff(tt.expected, actual); diff != "" {
				t.Errorf("DecodeValues() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeValues_Limits(t *testing.T) {
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	vars := DecodeValues(url.Values{
		"items[100000]": {"x"},
		"tags[1]":       {"b"},
	}, logger)

	assert.Equal(t, map[string]any{"tags": []any{nil, "b"}}, vars)
	assert.Contains(t, logs.String(), "Skip form value")
	assert.Contains(t, logs.String(), "items[100000]")
}

func TestSplitIndex(t *testing.T) {
	tests := []struct {
		in    string
		key   string
		index int
		ok    bool
	}{
		{"apps[0]", "apps", 0, true},
		{"apps[12]", "apps", 12, true},
		{"project", "project", 0, false},
		{"key[]", "key[]", 0, false},
		{"key[-1]", "key[-1]", 0, false},
		{"[0]", "[0]", 0, false},
		{"a[1]b", "a[1]b", 0, false},
	}
	for _, tt := range tests {
		key, index, ok := splitIndex(tt.in)
		assert.Equal(t, tt.key, key, tt.in)
		assert.Equal(t, tt.index, index, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
