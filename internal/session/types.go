package session

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser   = "user"
	RoleAI     = "ai"
	RoleSystem = "system"
)

const (
	// DefaultTitle is the title of a freshly created session, replaced by the
	// first user turn (see Store.RenameIfFirstUserTurn).
	DefaultTitle = "New Chat"

	// Greeting seeds every new session as its first AI message.
	Greeting = "Hello! I'm Mo_Bot. You can ask me questions, or upload an image for analysis. Toggle 'Web Search' for up-to-date answers."

	// maxTitleRunes bounds the automatic title taken from the first user turn.
	maxTitleRunes = 30
)

// Source is a grounding citation returned alongside a web-search-augmented
// answer. Beyond URI and title the backend may attach further fields; those
// are preserved verbatim in Extra across marshal/unmarshal round trips even
// though this application never interprets them.
type Source struct {
	URI   string
	Title string
	Extra map[string]json.RawMessage
}

// MarshalJSON emits uri, title and all passthrough fields as one flat object.
func (s Source) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(s.Extra)+2)
	for k, v := range s.Extra {
		obj[k] = v
	}
	uri, err := json.Marshal(s.URI)
	if err != nil {
		return nil, fmt.Errorf("marshaling source uri: %w", err)
	}
	title, err := json.Marshal(s.Title)
	if err != nil {
		return nil, fmt.Errorf("marshaling source title: %w", err)
	}
	obj["uri"] = uri
	obj["title"] = title
	return json.Marshal(obj)
}

// UnmarshalJSON fills URI and Title and keeps every other key in Extra.
func (s *Source) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshaling source: %w", err)
	}
	if raw, ok := obj["uri"]; ok {
		if err := json.Unmarshal(raw, &s.URI); err != nil {
			return fmt.Errorf("unmarshaling source uri: %w", err)
		}
		delete(obj, "uri")
	}
	if raw, ok := obj["title"]; ok {
		if err := json.Unmarshal(raw, &s.Title); err != nil {
			return fmt.Errorf("unmarshaling source title: %w", err)
		}
		delete(obj, "title")
	}
	if len(obj) > 0 {
		s.Extra = obj
	} else {
		s.Extra = nil
	}
	return nil
}

// ImageRef points a message at a locally attached image. URL is a
// locally-resolvable handle to the image bytes (not the backend's
// representation); Name is the original filename.
type ImageRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Message is a single conversation entry. Messages are immutable after
// creation: they are appended to a session and never edited.
type Message struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Text    string    `json:"text"`
	Image   *ImageRef `json:"image,omitempty"`
	Sources []Source  `json:"sources,omitempty"`
}

// Session is one conversation thread. Messages are in strict append order,
// which is both the chronological and the render order.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// newSession builds a fresh session seeded with the AI greeting.
func newSession() *Session {
	return &Session{
		ID:    uuid.NewString(),
		Title: DefaultTitle,
		Messages: []Message{
			{
				ID:   uuid.NewString(),
				Role: RoleAI,
				Text: Greeting,
			},
		},
	}
}

// NewUserMessage builds a user-role message with a generated id.
func NewUserMessage(text string, image *ImageRef) Message {
	return Message{
		ID:    uuid.NewString(),
		Role:  RoleUser,
		Text:  text,
		Image: image,
	}
}

// NewAIMessage builds an AI-role message carrying the generated text and any
// grounding sources. A nil or empty sources slice means no sources are shown.
func NewAIMessage(text string, sources []Source) Message {
	msg := Message{
		ID:   uuid.NewString(),
		Role: RoleAI,
		Text: text,
	}
	if len(sources) > 0 {
		msg.Sources = sources
	}
	return msg
}

// NewSystemMessage builds a system-role message, used to record failures as
// permanent conversation entries.
func NewSystemMessage(text string) Message {
	return Message{
		ID:   uuid.NewString(),
		Role: RoleSystem,
		Text: text,
	}
}

// Clone returns a deep copy of the session. Store accessors hand out clones
// so callers can never mutate the owned collection.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		ID:       s.ID,
		Title:    s.Title,
		Messages: make([]Message, len(s.Messages)),
	}
	for i, m := range s.Messages {
		out.Messages[i] = m.clone()
	}
	return out
}

func (m Message) clone() Message {
	out := m
	if m.Image != nil {
		img := *m.Image
		out.Image = &img
	}
	if m.Sources != nil {
		out.Sources = make([]Source, len(m.Sources))
		for i, src := range m.Sources {
			out.Sources[i] = src.clone()
		}
	}
	return out
}

func (s Source) clone() Source {
	out := s
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// truncateTitle returns the first maxTitleRunes runes of text.
func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return string(runes[:maxTitleRunes])
}
