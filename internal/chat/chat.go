package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

// Sentinel errors for turn submission, checked with errors.Is().
var (
	// ErrTurnInFlight indicates another turn is already being processed.
	// Only one turn may be in flight at a time, application-wide.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyTurn indicates the submission carried neither text (after
	// trimming) nor an image.
	ErrEmptyTurn = errors.New("empty turn")
)

// ImageData carries an attached image for one turn: the raw bytes and MIME
// type travel to the gateway, the filename into the conversation record.
type ImageData struct {
	Data     []byte
	MIMEType string
	Filename string
}

// QueryRequest is the gateway input for one turn.
type QueryRequest struct {
	Prompt    string
	Image     *ImageData
	WebSearch bool
}

// QueryResult is a successful gateway response: generated text plus any
// grounding sources.
type QueryResult struct {
	Text    string
	Sources []session.Source
}

// QueryGateway turns a prompt (+ optional image, + search flag) into
// generated text and citation sources. Implementations must not panic: every
// failure path resolves to an error with a human-readable message.
// The interface is defined here, by its consumer; the production
// implementation lives in internal/gemini.
type QueryGateway interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
}

// BlobHandleResolver converts attached image bytes into a locally-resolvable
// handle recorded on the user message. It abstracts the environment (object
// URLs in a browser, a spool directory here) away from the turn logic.
type BlobHandleResolver interface {
	Resolve(data []byte, filename string) (string, error)
}

// Config contains all required parameters for the Orchestrator.
type Config struct {
	Store   *session.Store
	Gateway QueryGateway

	// Resolver is optional; without it attached images keep their filename
	// but get no local handle.
	Resolver BlobHandleResolver

	Logger *slog.Logger
}

// validate checks that the required dependencies are present.
func (cfg Config) validate() error {
	if cfg.Store == nil {
		return errors.New("session store is required")
	}
	if cfg.Gateway == nil {
		return errors.New("query gateway is required")
	}
	return nil
}

// Orchestrator owns the turn lifecycle and the two pieces of application-wide
// derived state: the in-flight flag and the last gateway error.
//
// Orchestrator is safe for concurrent use; concurrent submissions beyond the
// first are rejected with ErrTurnInFlight.
type Orchestrator struct {
	store    *session.Store
	gateway  QueryGateway
	resolver BlobHandleResolver
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight bool
	lastErr  string

	nextSub     int
	loadingSubs map[int]func(bool)
	errorSubs   map[int]func(string)
}

// New creates an Orchestrator from the given configuration.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       cfg.Store,
		gateway:     cfg.Gateway,
		resolver:    cfg.Resolver,
		logger:      logger,
		loadingSubs: make(map[int]func(bool)),
		errorSubs:   make(map[int]func(string)),
	}, nil
}

// SubmitTurn processes one user turn against the named session.
//
// Boundary rejections (another turn in flight, nothing to send) are returned
// as errors and leave all state untouched. A gateway failure is not an error
// from the caller's perspective: it is captured as the last-error value and
// recorded as a system message in the thread, and SubmitTurn returns nil.
//
// The session may be deleted while the gateway call is pending; the eventual
// appends then silently no-op. There is no cancellation path.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID, text string, image *ImageData, webSearch bool) error {
	if strings.TrimSpace(text) == "" && image == nil {
		return ErrEmptyTurn
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return ErrTurnInFlight
	}
	o.inFlight = true
	hadErr := o.lastErr != ""
	o.lastErr = ""
	o.mu.Unlock()

	o.notifyLoading(true)
	if hadErr {
		o.notifyError("")
	}
	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
		o.notifyLoading(false)
	}()

	userMsg := session.NewUserMessage(text, o.imageRef(image))

	// Rename is evaluated against the pre-append message count.
	if err := o.store.RenameIfFirstUserTurn(ctx, sessionID, text); err != nil {
		o.logger.Debug("rename skipped", "session_id", sessionID, "error", err)
	}
	if err := o.store.AppendMessage(ctx, sessionID, userMsg); err != nil {
		o.logger.Debug("user message dropped", "session_id", sessionID, "error", err)
	}

	result, err := o.gateway.Query(ctx, QueryRequest{
		Prompt:    text,
		Image:     image,
		WebSearch: webSearch,
	})
	if err != nil {
		msg := err.Error()
		o.logger.Warn("gateway query failed", "session_id", sessionID, "error", err)
		o.mu.Lock()
		o.lastErr = msg
		o.mu.Unlock()
		o.notifyError(msg)
		if err := o.store.AppendMessage(ctx, sessionID, session.NewSystemMessage("Error: "+msg)); err != nil {
			o.logger.Debug("error message dropped", "session_id", sessionID, "error", err)
		}
		return nil
	}

	if err := o.store.AppendMessage(ctx, sessionID, session.NewAIMessage(result.Text, result.Sources)); err != nil {
		o.logger.Debug("ai message dropped", "session_id", sessionID, "error", err)
	}
	return nil
}

// imageRef builds the conversation-side record of an attachment.
func (o *Orchestrator) imageRef(image *ImageData) *session.ImageRef {
	if image == nil {
		return nil
	}
	ref := &session.ImageRef{Name: image.Filename}
	if o.resolver != nil {
		url, err := o.resolver.Resolve(image.Data, image.Filename)
		if err != nil {
			// The turn still proceeds; only the local handle is lost.
			o.logger.Warn("resolving image handle failed", "filename", image.Filename, "error", err)
		} else {
			ref.URL = url
		}
	}
	return ref
}

// InFlight reports whether a turn is currently being processed.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// LastError returns the most recent gateway error message, or "" when the
// last turn succeeded or the error was dismissed.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// DismissError clears the last-error value (the user closed the banner).
// The system message recorded in the thread stays.
func (o *Orchestrator) DismissError() {
	o.mu.Lock()
	changed := o.lastErr != ""
	o.lastErr = ""
	o.mu.Unlock()
	if changed {
		o.notifyError("")
	}
}

// OnLoadingChanged registers fn to run when the in-flight flag flips.
// The returned func unsubscribes.
func (o *Orchestrator) OnLoadingChanged(fn func(bool)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.loadingSubs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.loadingSubs, id)
	}
}

// OnErrorChanged registers fn to run when the last-error value changes
// ("" means cleared). The returned func unsubscribes.
func (o *Orchestrator) OnErrorChanged(fn func(string)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.errorSubs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.errorSubs, id)
	}
}

func (o *Orchestrator) notifyLoading(loading bool) {
	o.mu.Lock()
	fns := make([]func(bool), 0, len(o.loadingSubs))
	for _, fn := range o.loadingSubs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(loading)
	}
}

func (o *Orchestrator) notifyError(msg string) {
	o.mu.Lock()
	fns := make([]func(string), 0, len(o.errorSubs))
	for _, fn := range o.errorSubs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}
