// Package gemini implements the query gateway on top of the Gemini API.
//
// A Client turns a single user turn (prompt text, optional inline image,
// optional web-search flag) into one GenerateContent call and maps the
// response back into plain text plus grounding sources. Transient API
// failures are retried with exponential backoff, and every outbound call
// waits on the shared rate limiter first.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/RezaSbu/MO-BOT/internal/chat"
	"github.com/RezaSbu/MO-BOT/internal/log"
	"github.com/RezaSbu/MO-BOT/internal/session"
)

const tracerName = "github.com/RezaSbu/MO-BOT/internal/gemini"

// Sentinel errors for client construction and response handling.
var (
	ErrAPIKeyRequired = errors.New("gemini: API key is required")
	ErrModelRequired  = errors.New("gemini: model name is required")
	ErrLoggerRequired = errors.New("gemini: logger is required")
	ErrEmptyRequest   = errors.New("gemini: request has neither prompt nor image")
	ErrEmptyResponse  = errors.New("gemini: model returned no text")
)

// Config holds the dependencies and tuning knobs for a Client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32

	// Limiter throttles outbound calls. Nil disables throttling.
	Limiter *rate.Limiter

	// Retry controls backoff for transient failures. The zero value
	// selects DefaultRetryConfig.
	Retry RetryConfig

	Logger log.Logger
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.Model == "" {
		return ErrModelRequired
	}
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	return nil
}

// Client is the Gemini-backed query gateway.
type Client struct {
	api         *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	limiter     *rate.Limiter
	retry       RetryConfig
	logger      log.Logger
}

var _ chat.QueryGateway = (*Client)(nil)

// New dials the Gemini API with the given key. The context governs only
// client construction, not later queries.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		api:         api,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     cfg.Limiter,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}, nil
}

// Query sends one user turn to the model and returns the reply text with
// any web grounding sources attached.
func (c *Client) Query(ctx context.Context, req chat.QueryRequest) (*chat.QueryResult, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "gemini.query", trace.WithAttributes(
		attribute.String("gemini.model", c.model),
		attribute.Bool("gemini.web_search", req.WebSearch),
		attribute.Bool("gemini.has_image", req.Image != nil),
	))
	defer span.End()

	contents, err := buildContents(req)
	if err != nil {
		return nil, err
	}
	genCfg := c.generateConfig(req.WebSearch)

	resp, err := c.generateWithRetry(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.api.Models.GenerateContent(ctx, c.model, contents, genCfg)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	text := resp.Text()
	if text == "" {
		span.RecordError(ErrEmptyResponse)
		return nil, ErrEmptyResponse
	}

	sources := groundingSources(resp)
	c.logger.Debug("gemini query complete",
		"model", c.model,
		"web_search", req.WebSearch,
		"sources", len(sources),
	)

	return &chat.QueryResult{Text: text, Sources: sources}, nil
}

// buildContents assembles the single user-role content for a turn. The
// image part, when present, precedes the text part.
func buildContents(req chat.QueryRequest) ([]*genai.Content, error) {
	var parts []*genai.Part
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	if req.Prompt != "" {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}
	if len(parts) == 0 {
		return nil, ErrEmptyRequest
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

func (c *Client) generateConfig(webSearch bool) *genai.GenerateContentConfig {
	temp := c.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: c.maxTokens,
	}
	if webSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// groundingSources extracts the web citations attached by the search tool.
// Chunks without a web URI are skipped.
func groundingSources(resp *genai.GenerateContentResponse) []session.Source {
	if len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var sources []session.Source
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		src := session.Source{
			URI:   chunk.Web.URI,
			Title: chunk.Web.Title,
		}
		if chunk.Web.Domain != "" {
			domain, err := json.Marshal(chunk.Web.Domain)
			if err == nil {
				src.Extra = map[string]json.RawMessage{"domain": domain}
			}
		}
		sources = append(sources, src)
	}
	return sources
}
