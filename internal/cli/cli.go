package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vasilisp/postgen/internal/backend"
	"github.com/vasilisp/postgen/internal/config"
	"github.com/vasilisp/postgen/internal/coordinator"
	"github.com/vasilisp/postgen/internal/logger"
	"github.com/vasilisp/postgen/internal/sqlite"
	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/util"
	"github.com/vasilisp/postgen/internal/view"
)

var errEmptyRequest = errors.New("empty request")

func generate(ctx context.Context, generator *view.Generator, text string, w io.Writer) error {
	if util.Blank(text) {
		return errEmptyRequest
	}

	state := generator.Submit(ctx, text, "")
	if state.Notice != "" {
		return errors.New(state.Notice)
	}

	result := state.Result
	fmt.Fprintf(w, "status: %s\n", result.Status)
	fmt.Fprintf(w, "conversation_id: %s\n\n", result.ConversationID)
	fmt.Fprintln(w, result.FinalOutput)
	return nil
}

func show(ctx context.Context, detail *view.Detail, id string, w io.Writer) error {
	if err := util.ValidateID(id); err != nil {
		return err
	}

	state := detail.Load(ctx, id)
	if state.Phase == view.Failed {
		return state.Err
	}

	conversation := state.Conversation
	fmt.Fprintf(w, "%s [%s]\n", conversation.Title, view.StatusLabel(conversation.Status))
	fmt.Fprintf(w, "created %s, updated %s\n", formatTime(conversation.CreatedAt), formatTime(conversation.UpdatedAt))
	if conversation.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", conversation.Summary)
	}

	for _, message := range state.Messages {
		role := message.Role
		if message.AgentName != "" {
			role += " (" + message.AgentName + ")"
		}
		fmt.Fprintf(w, "\n--- %s %s\n%s\n", role, formatTime(message.CreatedAt), message.Content)
	}

	if conversation.HasState() {
		fmt.Fprintf(w, "\nstate:\n%s\n", conversation.PrettyState())
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

type dump struct {
	Conversations []store.Conversation `json:"conversations"`
	Messages      []store.Message      `json:"messages"`
}

type importer interface {
	InsertConversation(ctx context.Context, c store.Conversation) error
	InsertMessage(ctx context.Context, m store.Message) error
}

// importDump copies a JSON export of the conversations and messages
// collections into a local store. Rows that already exist are kept.
func importDump(ctx context.Context, dst importer, r io.Reader, w io.Writer) error {
	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return fmt.Errorf("failed to decode dump: %w", err)
	}

	for _, c := range d.Conversations {
		if err := util.ValidateID(c.ID); err != nil {
			return fmt.Errorf("conversation: %w", err)
		}
		if err := dst.InsertConversation(ctx, c); err != nil {
			return err
		}
	}

	for _, m := range d.Messages {
		if err := dst.InsertMessage(ctx, m); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "imported %d conversations, %d messages\n", len(d.Conversations), len(d.Messages))
	return nil
}

func readRequest(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	input, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return string(input), nil
}

func run(ctx context.Context, config *config.Config, args []string) error {
	client := coordinator.NewClient(config.CoordinatorURL)

	if len(args) >= 1 && args[0] == "show" {
		if len(args) != 2 {
			return errors.New("usage: postgen cli show <conversation-id>")
		}

		s, err := backend.OpenStore(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		return show(ctx, view.NewDetail(s, client), args[1], os.Stdout)
	}

	if len(args) >= 1 && args[0] == "import" {
		if len(args) != 2 {
			return errors.New("usage: postgen cli import <dump.json>")
		}

		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		s, err := sqlite.Open(config.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		defer s.Close()

		return importDump(ctx, s, f, os.Stdout)
	}

	text, err := readRequest(args, os.Stdin)
	if err != nil {
		return err
	}

	return generate(ctx, view.NewGenerator(client, config.ConversationTitle), text, os.Stdout)
}

func Main(args []string) {
	config, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	level, _ := config.SlogLevel()
	logger.Setup(os.Stderr, max(level, slog.LevelWarn))

	if err := run(context.Background(), config, args); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "conversation not found:", err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
