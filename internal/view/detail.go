package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vasilisp/postgen/internal/api"
	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/util"
)

// ContinueFailedNotice is shown when a reply cannot be forwarded.
const ContinueFailedNotice = "Failed to continue conversation. Make sure the backend server is running."

type Phase int

const (
	Loading Phase = iota
	Failed
	Loaded
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Failed:
		return "error"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// DetailState is what the detail page renders. Conversation and Messages are
// only set in the Loaded phase.
type DetailState struct {
	Phase        Phase
	Err          error
	Conversation *store.Conversation
	Messages     []store.Message
	Notice       string
}

// NotFound reports whether the load failed because the conversation does
// not exist.
func (s DetailState) NotFound() bool {
	return s.Phase == Failed && errors.Is(s.Err, store.ErrNotFound)
}

// AwaitingReply reports whether the conversation accepts a user response.
func (s DetailState) AwaitingReply() bool {
	return s.Phase == Loaded && s.Conversation.Status == "waiting_for_approval"
}

// ListState is what the list page renders.
type ListState struct {
	Phase         Phase
	Err           error
	Conversations []store.Conversation
}

// Continuer forwards a user response to the coordinator.
type Continuer interface {
	Continue(ctx context.Context, req api.ContinueRequest) (*api.StartResponse, error)
}

type Detail struct {
	store     store.Store
	continuer Continuer
}

func NewDetail(s store.Store, continuer Continuer) *Detail {
	util.Assert(s != nil, "NewDetail nil store")
	util.Assert(continuer != nil, "NewDetail nil continuer")

	return &Detail{store: s, continuer: continuer}
}

// Load fetches the conversation and then its messages. A failed
// conversation fetch skips the message fetch.
func (d *Detail) Load(ctx context.Context, id string) DetailState {
	conversation, err := d.store.Conversation(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "failed to load conversation", "id", id, "error", err)
		return DetailState{Phase: Failed, Err: err}
	}

	messages, err := d.store.Messages(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "failed to load messages", "id", id, "error", err)
		return DetailState{Phase: Failed, Err: err}
	}
	if messages == nil {
		messages = []store.Message{}
	}

	return DetailState{
		Phase:        Loaded,
		Conversation: conversation,
		Messages:     messages,
	}
}

// List fetches the most recent conversations.
func (d *Detail) List(ctx context.Context) ListState {
	conversations, err := d.store.Conversations(ctx, store.DefaultListLimit)
	if err != nil {
		slog.WarnContext(ctx, "failed to list conversations", "error", err)
		return ListState{Phase: Failed, Err: err}
	}
	return ListState{Phase: Loaded, Conversations: conversations}
}

// Continue forwards response to the conversation. Blank responses are
// ignored and report false.
func (d *Detail) Continue(ctx context.Context, id, response string) (bool, error) {
	if util.Blank(response) {
		return false, nil
	}

	result, err := d.continuer.Continue(ctx, api.ContinueRequest{
		ConversationID: id,
		UserResponse:   strings.TrimSpace(response),
	})
	if err != nil {
		slog.ErrorContext(ctx, "continue failed", "id", id, "error", err)
		return false, err
	}

	if result != nil {
		slog.InfoContext(ctx, "continued conversation", "id", id, "status", result.Status)
	}
	return true, nil
}
