package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/RezaSbu/MO-BOT/internal/chat"
	"github.com/RezaSbu/MO-BOT/internal/log"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{APIKey: "key", Model: "gemini-2.5-flash", Logger: log.NewNop()}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "missing api key", mutate: func(c *Config) { c.APIKey = "" }, want: ErrAPIKeyRequired},
		{name: "missing model", mutate: func(c *Config) { c.Model = "" }, want: ErrModelRequired},
		{name: "missing logger", mutate: func(c *Config) { c.Logger = nil }, want: ErrLoggerRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.validate(), tt.want)
		})
	}
}

func TestBuildContents(t *testing.T) {
	t.Parallel()

	image := &chat.ImageData{Data: []byte{0x89, 0x50}, MIMEType: "image/png", Filename: "a.png"}

	t.Run("text only", func(t *testing.T) {
		t.Parallel()

		contents, err := buildContents(chat.QueryRequest{Prompt: "hello"})
		require.NoError(t, err)
		require.Len(t, contents, 1)
		require.Len(t, contents[0].Parts, 1)
		assert.Equal(t, "hello", contents[0].Parts[0].Text)
	})

	t.Run("image only", func(t *testing.T) {
		t.Parallel()

		contents, err := buildContents(chat.QueryRequest{Image: image})
		require.NoError(t, err)
		require.Len(t, contents[0].Parts, 1)
		require.NotNil(t, contents[0].Parts[0].InlineData)
		assert.Equal(t, "image/png", contents[0].Parts[0].InlineData.MIMEType)
	})

	t.Run("image precedes text", func(t *testing.T) {
		t.Parallel()

		contents, err := buildContents(chat.QueryRequest{Prompt: "what is this", Image: image})
		require.NoError(t, err)
		require.Len(t, contents[0].Parts, 2)
		assert.NotNil(t, contents[0].Parts[0].InlineData)
		assert.Equal(t, "what is this", contents[0].Parts[1].Text)
	})

	t.Run("empty request", func(t *testing.T) {
		t.Parallel()

		_, err := buildContents(chat.QueryRequest{})
		assert.ErrorIs(t, err, ErrEmptyRequest)
	})
}

func TestGenerateConfig(t *testing.T) {
	t.Parallel()

	c := &Client{temperature: 0.7, maxTokens: 8192}

	cfg := c.generateConfig(false)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 0.001)
	assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
	assert.Empty(t, cfg.Tools)

	cfg = c.generateConfig(true)
	require.Len(t, cfg.Tools, 1)
	assert.NotNil(t, cfg.Tools[0].GoogleSearch)
}

func TestGroundingSources(t *testing.T) {
	t.Parallel()

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, groundingSources(&genai.GenerateContentResponse{}))
	})

	t.Run("no grounding metadata", func(t *testing.T) {
		t.Parallel()

		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{}},
		}
		assert.Nil(t, groundingSources(resp))
	})

	t.Run("web chunks mapped", func(t *testing.T) {
		t.Parallel()

		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				GroundingMetadata: &genai.GroundingMetadata{
					GroundingChunks: []*genai.GroundingChunk{
						{Web: &genai.GroundingChunkWeb{
							URI:    "https://example.com/a",
							Title:  "Example A",
							Domain: "example.com",
						}},
						{Web: nil},
						{Web: &genai.GroundingChunkWeb{URI: ""}},
						{Web: &genai.GroundingChunkWeb{URI: "https://example.org/b"}},
					},
				},
			}},
		}

		sources := groundingSources(resp)
		require.Len(t, sources, 2)

		assert.Equal(t, "https://example.com/a", sources[0].URI)
		assert.Equal(t, "Example A", sources[0].Title)
		require.Contains(t, sources[0].Extra, "domain")
		assert.JSONEq(t, `"example.com"`, string(sources[0].Extra["domain"]))

		assert.Equal(t, "https://example.org/b", sources[1].URI)
		assert.Empty(t, sources[1].Title)
		assert.NotContains(t, sources[1].Extra, "domain")
	})
}
