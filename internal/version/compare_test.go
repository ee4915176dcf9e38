package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchemaCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		current       string
		stored        string
		expectError   bool
		errorContains string
	}{
		{
			name:    "exact match",
			current: "1.2.0",
			stored:  "1.2.0",
		},
		{
			name:    "stored patch higher",
			current: "1.2.0",
			stored:  "1.2.5",
		},
		{
			name:    "stored minor older",
			current: "1.3.0",
			stored:  "1.2.0",
		},
		{
			name:          "stored minor newer",
			current:       "1.2.0",
			stored:        "1.3.0",
			expectError:   true,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major version differs",
			current:       "2.0.0",
			stored:        "1.2.0",
			expectError:   true,
			errorContains: "major version mismatch",
		},
		{
			name:    "current is main",
			current: "main",
			stored:  "7.0.0",
		},
		{
			name:    "stored is main",
			current: "1.0.0",
			stored:  "main",
		},
		{
			name:    "v prefix",
			current: "v1.2.0",
			stored:  "1.2.0",
		},
		{
			name:    "prerelease version",
			current: "1.2.0-alpha",
			stored:  "1.2.0",
		},
		{
			name:          "invalid stored version",
			current:       "1.2.0",
			stored:        "not-a-version",
			expectError:   true,
			errorContains: "invalid stored schema version",
		},
		{
			name:          "empty current version",
			current:       "",
			stored:        "1.2.0",
			expectError:   true,
			errorContains: "invalid schema version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchemaCompatibility(tt.current, tt.stored)

			if tt.expectError {
				require.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSchemaOlder(t *testing.T) {
	assert.True(t, SchemaOlder("1.1.0", "1.0.0"))
	assert.True(t, SchemaOlder("1.1.0", "v1.0.9"))
	assert.False(t, SchemaOlder("1.1.0", "1.1.0"))
	assert.False(t, SchemaOlder("1.1.0", "1.1.2"))
	assert.False(t, SchemaOlder("1.1.0", "main"))
	assert.False(t, SchemaOlder("main", "1.0.0"))
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v)
}
