package view

import (
	"context"
	"log/slog"
	"strings"

	"github.com/golang/groupcache/singleflight"
	"github.com/google/uuid"
	"github.com/vasilisp/postgen/internal/api"
	"github.com/vasilisp/postgen/internal/util"
)

// GenerateFailedNotice is shown when the coordinator cannot produce a post.
const GenerateFailedNotice = "Failed to generate post. Make sure the backend server is running."

const (
	RunLabel        = "Run Coordinator"
	GeneratingLabel = "Generating..."
)

// Starter runs a generation on the coordinator.
type Starter interface {
	Start(ctx context.Context, req api.StartRequest) (*api.StartResponse, error)
}

// GeneratorState is everything the generator page renders.
type GeneratorState struct {
	Input  string
	Token  string
	Result *api.StartResponse
	Notice string
}

// Generator submits generation requests. Submissions sharing a token are
// collapsed into a single coordinator call.
type Generator struct {
	starter  Starter
	title    string
	inflight singleflight.Group
}

func NewGenerator(starter Starter, title string) *Generator {
	util.Assert(starter != nil, "NewGenerator nil starter")

	if title == "" {
		title = api.DefaultConversationTitle
	}

	return &Generator{starter: starter, title: title}
}

// Form returns the idle state for a fresh form.
func (g *Generator) Form() GeneratorState {
	return GeneratorState{Token: uuid.NewString()}
}

// Submit runs one generation for input. Blank input is a no-op and returns
// the form unchanged.
func (g *Generator) Submit(ctx context.Context, input, token string) GeneratorState {
	state := GeneratorState{Input: input, Token: token}
	if util.Blank(input) {
		return state
	}

	userRequest := strings.TrimSpace(input)
	key := token
	if key == "" {
		key = "text:" + userRequest
	}

	// the shared call outlives any single submitter; each one still stops
	// on its own cancellation
	v, err := g.inflight.Do(key, func() (any, error) {
		return g.starter.Start(context.WithoutCancel(ctx), api.StartRequest{
			UserRequest:       userRequest,
			ConversationTitle: g.title,
		})
	})

	// the next submission from this page is a new one
	state.Token = uuid.NewString()

	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "error", err)
		state.Notice = GenerateFailedNotice
		return state
	}

	result, ok := v.(*api.StartResponse)
	if !ok || result == nil {
		slog.ErrorContext(ctx, "generation returned no result")
		state.Notice = GenerateFailedNotice
		return state
	}

	slog.InfoContext(ctx, "generated post", "conversation_id", result.ConversationID, "status", result.Status)
	state.Result = result
	return state
}
