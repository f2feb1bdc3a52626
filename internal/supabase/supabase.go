// Package supabase reads conversations through the PostgREST API of a
// hosted Supabase project.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	restPrefix   = "/rest/v1/"
	singleObject = "application/vnd.pgrst.object+json"
)

// APIError is the error body PostgREST returns.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`

	notFound bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase responded %d", e.StatusCode)
	}
	return e.Message
}

// Is matches store.ErrNotFound for single-row lookups that found nothing.
func (e *APIError) Is(target error) bool {
	return e.notFound && target == store.ErrNotFound
}

type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

var _ store.Store = (*Client)(nil)

func NewClient(baseURL, key string) *Client {
	util.Assert(baseURL != "", "NewClient empty baseURL")
	util.Assert(key != "", "NewClient empty key")

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)

	var conversation store.Conversation
	if err := c.get(ctx, "conversations", q, true, &conversation); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", id, err)
	}
	return &conversation, nil
}

func (c *Client) Conversations(ctx context.Context, limit int) ([]store.Conversation, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	conversations := []store.Conversation{}
	if err := c.get(ctx, "conversations", q, false, &conversations); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]store.Message, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("conversation_id", "eq."+conversationID)
	q.Set("order", "created_at.asc")

	var messages []store.Message
	if err := c.get(ctx, "messages", q, false, &messages); err != nil {
		return nil, fmt.Errorf("messages of %s: %w", conversationID, err)
	}
	if messages == nil {
		messages = []store.Message{}
	}
	return messages, nil
}

func (c *Client) get(ctx context.Context, table string, q url.Values, single bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+restPrefix+table+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if single {
		req.Header.Set("Accept", singleObject)
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, single)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", table, err)
	}
	return nil
}

// decodeError turns a PostgREST failure into an APIError. A single-object
// request that matched no rows answers 406 with code PGRST116; that case
// matches store.ErrNotFound.
func decodeError(resp *http.Response, single bool) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}

	apiErr.notFound = single && (resp.StatusCode == http.StatusNotAcceptable || apiErr.Code == "PGRST116")
	return apiErr
}
