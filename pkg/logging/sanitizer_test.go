package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		excludes string
	}{
		{
			name:     "password key-value",
			input:    "host=db port=5432 password=hunter2 dbname=x",
			contains: "password=" + RedactedText,
			excludes: "hunter2",
		},
		{
			name:     "url credentials",
			input:    "postgres://engine:hunter2@db:5432/prompts",
			contains: RedactedText,
			excludes: "hunter2",
		},
		{
			name:  "empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeConnectionString(tt.input)
			if tt.contains != "" {
				assert.Contains(t, got, tt.contains)
			}
			if tt.excludes != "" {
				assert.NotContains(t, got, tt.excludes)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New("connect failed: postgres://engine:hunter2@db/prompts")
	got := SanitizeError(err)
	assert.NotContains(t, got, "hunter2")

	assert.Equal(t, "", SanitizeError(nil))
}

func TestTruncatePrompt(t *testing.T) {
	long := strings.Repeat("x", MaxPromptLogLength+100)
	got := TruncatePrompt(long)
	assert.Len(t, got, MaxPromptLogLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))

	short := "select 1"
	assert.Equal(t, short, TruncatePrompt(short))
}

func TestTruncateQuery(t *testing.T) {
	long := strings.Repeat("q", MaxQueryLogLength*2)
	assert.Len(t, TruncateQuery(long), MaxQueryLogLength+3)
}
