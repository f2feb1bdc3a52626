package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vasilisp/postgen/internal/backend"
	"github.com/vasilisp/postgen/internal/config"
	"github.com/vasilisp/postgen/internal/coordinator"
	"github.com/vasilisp/postgen/internal/data"
	"github.com/vasilisp/postgen/internal/logger"
	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/util"
	"github.com/vasilisp/postgen/internal/view"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxFormBytes bounds form submissions.
const maxFormBytes = 1 << 20

type ctx struct {
	config    *config.Config
	store     store.Store
	generator *view.Generator
	detail    *view.Detail
	renderer  *renderer
}

func newCtx(c context.Context, config *config.Config) (*ctx, error) {
	util.Assert(config != nil, "newCtx nil config")

	renderer, err := newRenderer(data.Templates)
	if err != nil {
		return nil, err
	}

	s, err := backend.OpenStore(c, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := coordinator.NewClient(config.CoordinatorURL)

	return &ctx{
		config:    config,
		store:     s,
		generator: view.NewGenerator(client, config.ConversationTitle),
		detail:    view.NewDetail(s, client),
		renderer:  renderer,
	}, nil
}

func (ctx *ctx) Close() {
	util.Assert(ctx != nil, "Close nil ctx")
	if ctx.store != nil {
		ctx.store.Close()
	}
}

func (ctx *ctx) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	if err := ctx.renderer.render(w, r, status, page, title, data); err != nil {
		slog.ErrorContext(r.Context(), "failed to render page", "page", page, "error", err)
	}
}

func generateFormHandler(ctx *ctx, w http.ResponseWriter, r *http.Request) {
	ctx.render(w, r, http.StatusOK, "generate.html", "Generate Post", ctx.generator.Form())
}

func generateHandler(ctx *ctx, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to read form", http.StatusBadRequest)
		return
	}

	state := ctx.generator.Submit(r.Context(), r.PostForm.Get("user_request"), r.PostForm.Get("token"))

	status := http.StatusOK
	if state.Notice != "" {
		status = http.StatusBadGateway
	}
	ctx.render(w, r, status, "generate.html", "Generate Post", state)
}

func postsHandler(ctx *ctx, w http.ResponseWriter, r *http.Request) {
	state := ctx.detail.List(r.Context())

	status := http.StatusOK
	if state.Phase == view.Failed {
		status = http.StatusBadGateway
	}
	ctx.render(w, r, status, "posts.html", "Posts", state)
}

type postPage struct {
	State    view.DetailState
	Markdown bool
}

// conversationID returns the {id} route parameter, decoded exactly once.
// chi matches against RawPath when the request has one, so only then is the
// parameter still escaped.
func conversationID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(id)
		if err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
		id = unescaped
	}
	if err := util.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func renderPost(ctx *ctx, w http.ResponseWriter, r *http.Request, state view.DetailState) {
	status := http.StatusOK
	switch {
	case state.NotFound():
		status = http.StatusNotFound
	case state.Phase == view.Failed:
		status = http.StatusBadGateway
	case state.Notice != "":
		status = http.StatusBadGateway
	}

	title := "Post"
	if state.Phase == view.Loaded && state.Conversation.Title != "" {
		title = state.Conversation.Title
	}

	ctx.render(w, r, status, "post.html", title, postPage{
		State:    state,
		Markdown: r.URL.Query().Get("render") == "markdown",
	})
}

func postHandler(ctx *ctx, w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		ctx.render(w, r, http.StatusBadRequest, "post.html", "Post", postPage{
			State: view.DetailState{Phase: view.Failed, Err: err},
		})
		return
	}

	renderPost(ctx, w, r, ctx.detail.Load(r.Context(), id))
}

func continueHandler(ctx *ctx, w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to read form", http.StatusBadRequest)
		return
	}

	if _, err := ctx.detail.Continue(r.Context(), id, r.PostForm.Get("user_response")); err != nil {
		state := ctx.detail.Load(r.Context(), id)
		state.Notice = view.ContinueFailedNotice
		renderPost(ctx, w, r, state)
		return
	}

	http.Redirect(w, r, "/posts/"+url.PathEscape(id), http.StatusSeeOther)
}

func handlerWith[T interface{}](t T, fn func(T, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(t, w, r)
	}
}

func routes(ctx *ctx) http.Handler {
	util.Assert(ctx != nil, "routes nil ctx")

	r := chi.NewRouter()
	r.Use(requestID, logRequests, recoverPanics)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/generate", http.StatusTemporaryRedirect)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/generate", handlerWith(ctx, generateFormHandler))
	r.Post("/generate", handlerWith(ctx, generateHandler))
	r.Get("/posts", handlerWith(ctx, postsHandler))
	r.Get("/posts/{id}", handlerWith(ctx, postHandler))
	r.Post("/posts/{id}/continue", handlerWith(ctx, continueHandler))

	static, err := fs.Sub(data.Static, "static")
	util.Assert(err == nil, "routes missing static assets")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	return r
}

func Main() {
	config, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := config.SlogLevel()
	logger.Setup(os.Stderr, level)

	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, err := newCtx(c, config)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer ctx.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           otelhttp.NewHandler(routes(ctx), "postgen"),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-c.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", config.Port, "store", config.Store, "coordinator", config.CoordinatorURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
