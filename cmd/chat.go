package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/RezaSbu/MO-BOT/internal/chat"
	"github.com/RezaSbu/MO-BOT/internal/config"
	"github.com/RezaSbu/MO-BOT/internal/export"
	"github.com/RezaSbu/MO-BOT/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

var (
	youStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			printAPIKeyHelp()
		}
		return err
	}
	defer a.close(ctx)

	r := &repl{
		app:       a,
		webSearch: a.cfg.WebSearch,
		in:        bufio.NewScanner(os.Stdin),
		out:       os.Stdout,
	}
	return r.run(ctx)
}

// repl drives the interactive conversation loop. One pending image at a
// time; it is attached to the next submitted turn and then cleared.
type repl struct {
	app       *app
	webSearch bool
	pending   *chat.ImageData
	in        *bufio.Scanner
	out       io.Writer
}

func (r *repl) run(ctx context.Context) error {
	active := r.app.store.Active()
	fmt.Fprintln(r.out, botStyle.Render("Mo_Bot"))
	fmt.Fprintln(r.out, infoStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintf(r.out, "Session: %s\n\n", active.Title)

	for {
		fmt.Fprint(r.out, r.prompt())

		if !r.in.Scan() {
			// EOF (Ctrl+D)
			fmt.Fprintln(r.out, "\nGoodbye!")
			break
		}

		input := strings.TrimSpace(r.in.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if r.handleCommand(ctx, input) {
				break
			}
			continue
		}

		r.submit(ctx, input)
	}

	if err := r.in.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// prompt shows the pending attachment and web-search state inline.
func (r *repl) prompt() string {
	var flags []string
	if r.webSearch {
		flags = append(flags, "web")
	}
	if r.pending != nil {
		flags = append(flags, r.pending.Filename)
	}
	label := "You"
	if len(flags) > 0 {
		label += " [" + strings.Join(flags, ", ") + "]"
	}
	return youStyle.Render(label+">") + " "
}

func (r *repl) submit(ctx context.Context, text string) {
	image := r.pending
	r.pending = nil

	id := r.app.store.ActiveID()
	fmt.Fprintln(r.out, infoStyle.Render("Thinking..."))

	err := r.app.orch.SubmitTurn(ctx, id, text, image, r.webSearch)
	switch {
	case errors.Is(err, chat.ErrEmptyTurn):
		fmt.Fprintln(r.out, infoStyle.Render("Nothing to send."))
		return
	case errors.Is(err, chat.ErrTurnInFlight):
		fmt.Fprintln(r.out, infoStyle.Render("A turn is already running."))
		return
	case err != nil:
		fmt.Fprintln(r.out, errorStyle.Render("Error: ")+err.Error())
		return
	}

	sess, err := r.app.store.Get(id)
	if err != nil || len(sess.Messages) == 0 {
		return
	}
	r.printReply(sess.Messages[len(sess.Messages)-1])

	if msg := r.app.orch.LastError(); msg != "" {
		fmt.Fprintln(r.out, errorStyle.Render("⚠ "+msg))
		r.app.orch.DismissError()
	}
	fmt.Fprintln(r.out)
}

func (r *repl) printReply(msg session.Message) {
	switch msg.Role {
	case session.RoleSystem:
		fmt.Fprintln(r.out, errorStyle.Render("System>")+" "+msg.Text)
	default:
		fmt.Fprintln(r.out, botStyle.Render("Mo_Bot>")+" "+msg.Text)
	}

	if len(msg.Sources) > 0 {
		fmt.Fprintln(r.out, sourceStyle.Render("Sources:"))
		for _, src := range msg.Sources {
			title := src.Title
			if title == "" {
				title = src.URI
			}
			fmt.Fprintln(r.out, sourceStyle.Render("  - "+title+" <"+src.URI+">"))
		}
	}
}

// handleCommand handles slash commands, returns true if the loop should exit.
func (r *repl) handleCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/help":
		r.printHelp()

	case "/new":
		if _, err := r.app.store.CreateSession(ctx); err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: ")+err.Error())
			return false
		}
		fmt.Fprintln(r.out, "Started a new chat.")
		fmt.Fprintln(r.out)

	case "/list":
		r.printSessions()

	case "/switch":
		r.switchSession(parts[1:])

	case "/delete":
		r.deleteSession(ctx, parts[1:])

	case "/web":
		r.webSearch = !r.webSearch
		if r.webSearch {
			fmt.Fprintln(r.out, "Web search on: answers will be grounded with sources.")
		} else {
			fmt.Fprintln(r.out, "Web search off.")
		}
		fmt.Fprintln(r.out)

	case "/image":
		r.attachImage(parts[1:])

	case "/export":
		format := "md"
		if len(parts) > 1 {
			format = parts[1]
		}
		r.exportActive(format)

	case "/exit", "/quit":
		fmt.Fprintln(r.out, "Goodbye!")
		return true

	default:
		fmt.Fprintf(r.out, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(r.out, "Type /help to see available commands")
		fmt.Fprintln(r.out)
	}

	return false
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  /new              Start a new chat")
	fmt.Fprintln(r.out, "  /list             List chats")
	fmt.Fprintln(r.out, "  /switch <n>       Switch to chat n")
	fmt.Fprintln(r.out, "  /delete <n>       Delete chat n")
	fmt.Fprintln(r.out, "  /web              Toggle web search")
	fmt.Fprintln(r.out, "  /image <path>     Attach an image to the next message")
	fmt.Fprintln(r.out, "  /export [format]  Export this chat (json, md, yaml)")
	fmt.Fprintln(r.out, "  /quit             Exit")
	fmt.Fprintln(r.out)
}

func (r *repl) printSessions() {
	sessions := r.app.store.Sessions()
	activeID := r.app.store.ActiveID()
	for i, sess := range sessions {
		line := fmt.Sprintf("%2d. %s (%d messages)", i+1, sess.Title, len(sess.Messages))
		if sess.ID == activeID {
			line = activeStyle.Render(line + "  *")
		}
		fmt.Fprintln(r.out, line)
	}
	fmt.Fprintln(r.out)
}

// sessionByIndex resolves a 1-based index argument against the current list.
func (r *repl) sessionByIndex(args []string) (*session.Session, bool) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, "Usage: give the chat number shown by /list")
		return nil, false
	}
	n, err := strconv.Atoi(args[0])
	sessions := r.app.store.Sessions()
	if err != nil || n < 1 || n > len(sessions) {
		fmt.Fprintf(r.out, "No such chat: %s\n", args[0])
		return nil, false
	}
	return sessions[n-1], true
}

func (r *repl) switchSession(args []string) {
	sess, ok := r.sessionByIndex(args)
	if !ok {
		return
	}
	if err := r.app.store.SelectSession(sess.ID); err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Error: ")+err.Error())
		return
	}
	fmt.Fprintf(r.out, "Switched to %q.\n\n", sess.Title)
}

func (r *repl) deleteSession(ctx context.Context, args []string) {
	sess, ok := r.sessionByIndex(args)
	if !ok {
		return
	}

	fmt.Fprintf(r.out, "Delete %q? This cannot be undone. [y/N] ", sess.Title)
	if !r.in.Scan() || strings.ToLower(strings.TrimSpace(r.in.Text())) != "y" {
		fmt.Fprintln(r.out, "Kept.")
		return
	}

	if err := r.app.store.DeleteSession(ctx, sess.ID); err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Error: ")+err.Error())
		return
	}
	fmt.Fprintf(r.out, "Deleted %q.\n\n", sess.Title)
}

func (r *repl) attachImage(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, "Usage: /image <path>")
		return
	}
	path := strings.Join(args, " ")

	img, err := loadImage(path)
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Error: ")+err.Error())
		return
	}
	r.pending = img
	fmt.Fprintf(r.out, "Attached %s. It will be sent with your next message.\n\n", img.Filename)
}

func (r *repl) exportActive(format string) {
	sess := r.app.store.Active()
	if sess == nil {
		return
	}
	path, err := exportSession(sess, format, ".")
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Error: ")+err.Error())
		return
	}
	fmt.Fprintf(r.out, "Exported to %s\n\n", path)
}

// imageMIMETypes maps accepted image file extensions to their MIME type.
// Anything else is rejected before a byte leaves the machine.
var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func loadImage(path string) (*chat.ImageData, error) {
	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported image type: %s (supported: png, jpg, gif, webp)", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	return &chat.ImageData{
		Data:     data,
		MIMEType: mime,
		Filename: filepath.Base(path),
	}, nil
}

// exportSession writes sess to dir in the requested format and returns the
// created file path.
func exportSession(sess *session.Session, format, dir string) (string, error) {
	exporter, err := export.NewExporter(format)
	if err != nil {
		return "", err
	}

	name := slugify(sess.Title)
	if name == "" {
		name = sess.ID
	}
	path := filepath.Join(dir, name+"."+exporter.Extension())

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := exporter.Export(sess, f); err != nil {
		return "", fmt.Errorf("exporting session: %w", err)
	}
	return path, nil
}

// slugify turns a session title into a safe file name.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
