package export

import (
	"fmt"
	"io"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

// MarkdownExporter exports sessions as a readable Markdown transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(sess *session.Session, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", sess.Title)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(sess.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range sess.Messages {
		_, _ = fmt.Fprintf(w, "**%s:**\n\n", speakerLabel(msg.Role))

		if msg.Image != nil && msg.Image.Name != "" {
			_, _ = fmt.Fprintf(w, "*Attached image: %s*\n\n", msg.Image.Name)
		}
		if msg.Text != "" {
			_, _ = fmt.Fprintf(w, "%s\n\n", msg.Text)
		}

		if len(msg.Sources) > 0 {
			_, _ = fmt.Fprintf(w, "Sources:\n\n")
			for _, src := range msg.Sources {
				title := src.Title
				if title == "" {
					title = src.URI
				}
				_, _ = fmt.Fprintf(w, "- [%s](%s)\n", title, src.URI)
			}
			_, _ = fmt.Fprintf(w, "\n")
		}

		if i < len(sess.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func speakerLabel(role string) string {
	switch role {
	case session.RoleUser:
		return "You"
	case session.RoleAI:
		return "Mo_Bot"
	case session.RoleSystem:
		return "System"
	default:
		return role
	}
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
