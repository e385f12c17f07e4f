package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

func sampleSession() *session.Session {
	return &session.Session{
		ID:    "s-1",
		Title: "Capital cities",
		Messages: []session.Message{
			{ID: "m-1", Role: session.RoleAI, Text: session.Greeting},
			{
				ID:    "m-2",
				Role:  session.RoleUser,
				Text:  "What is the capital of France?",
				Image: &session.ImageRef{URL: "/spool/eiffel.png", Name: "eiffel.png"},
			},
			{
				ID:   "m-3",
				Role: session.RoleAI,
				Text: "The capital of France is Paris.",
				Sources: []session.Source{
					{URI: "https://example.com/paris", Title: "Paris"},
					{URI: "https://example.org/untitled"},
				},
			},
			{ID: "m-4", Role: session.RoleSystem, Text: "Error: timeout"},
		},
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format    string
		extension string
	}{
		{format: "json", extension: "json"},
		{format: "md", extension: "md"},
		{format: "markdown", extension: "md"},
		{format: "yaml", extension: "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := NewExporter(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.extension, exp.Extension())
		})
	}

	_, err := NewExporter("csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestJSONExportRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(sampleSession(), &buf))

	var got session.Session
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, "Capital cities", got.Title)
	require.Len(t, got.Messages, 4)
	require.Len(t, got.Messages[2].Sources, 2)
	assert.Equal(t, "https://example.com/paris", got.Messages[2].Sources[0].URI)
}

func TestMarkdownExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(sampleSession(), &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Capital cities\n"))
	assert.Contains(t, out, "**You:**")
	assert.Contains(t, out, "**Mo_Bot:**")
	assert.Contains(t, out, "**System:**")
	assert.Contains(t, out, "*Attached image: eiffel.png*")
	assert.Contains(t, out, "- [Paris](https://example.com/paris)")
	assert.Contains(t, out, "- [https://example.org/untitled](https://example.org/untitled)",
		"untitled sources fall back to the URI as link text")
	assert.Contains(t, out, "Error: timeout")
}

func TestYAMLExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLExporter{}).Export(sampleSession(), &buf))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Capital cities", doc["title"])

	messages, ok := doc["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 4)
}
