package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/secmon-lab/switchboard/pkg/utils/safe"
)

const (
	// DefaultBaseURL is the Webex REST API endpoint
	DefaultBaseURL = "https://webexapis.com/v1"

	// maxErrorBody bounds how much of an error response is kept for logging
	maxErrorBody = 1024
)

// client implements Service interface
type client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy

	meMu sync.Mutex
	me   *Person
}

// Option is a functional option for client configuration
type Option func(*client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// WithRetryPolicy sets timeout and retry behavior of API calls
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *client) {
		c.policy = policy
	}
}

// New creates a new Webex service with the provided access token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Webex access token is required")
	}

	c := &client{
		token:      token,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		policy:     retry.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type roomResponse struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	TeamID  string    `json:"teamId"`
	Created time.Time `json:"created"`
}

func (r *roomResponse) toModel() *model.Room {
	return &model.Room{
		ID:        r.ID,
		Title:     r.Title,
		TeamID:    r.TeamID,
		Type:      r.Type,
		CreatedAt: r.Created,
	}
}

type messageRequest struct {
	RoomID   string   `json:"roomId"`
	Text     string   `json:"text,omitempty"`
	Markdown string   `json:"markdown,omitempty"`
	Files    []string `json:"files,omitempty"`
}

type webhookPayload struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	TargetURL string `json:"targetUrl"`
	Resource  string `json:"resource"`
	Event     string `json:"event"`
	Filter    string `json:"filter,omitempty"`
	Secret    string `json:"secret,omitempty"`
}

type personResponse struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"displayName"`
}

// ListRooms retrieves all rooms of roomType in teamID, following Link headers
func (c *client) ListRooms(ctx context.Context, teamID, roomType string) ([]*model.Room, error) {
	query := url.Values{}
	query.Set("max", "100")
	if teamID != "" {
		query.Set("teamId", teamID)
	}
	if roomType != "" {
		query.Set("type", roomType)
	}

	var rooms []*model.Room
	next := c.baseURL + "/rooms?" + query.Encode()

	for next != "" {
		var page struct {
			Items []roomResponse `json:"items"`
		}
		header, err := c.call(ctx, "ListRooms", http.MethodGet, next, nil, &page)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list rooms", goerr.V("team_id", teamID))
		}

		for i := range page.Items {
			rooms = append(rooms, page.Items[i].toModel())
		}
		next = nextLink(header.Values("Link"))
	}

	return rooms, nil
}

// GetRoom retrieves a room by ID
func (c *client) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	var resp roomResponse
	if _, err := c.call(ctx, "GetRoom", http.MethodGet, c.baseURL+"/rooms/"+url.PathEscape(roomID), nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get room", goerr.V("room_id", roomID))
	}
	return resp.toModel(), nil
}

// CreateRoom creates a group room titled title in teamID
func (c *client) CreateRoom(ctx context.Context, title, teamID string) (*model.Room, error) {
	req := map[string]string{"title": title}
	if teamID != "" {
		req["teamId"] = teamID
	}

	var resp roomResponse
	if _, err := c.call(ctx, "CreateRoom", http.MethodPost, c.baseURL+"/rooms", req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to create room", goerr.V("title", title), goerr.V("team_id", teamID))
	}
	return resp.toModel(), nil
}

// DeleteRoom deletes a room
func (c *client) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := c.call(ctx, "DeleteRoom", http.MethodDelete, c.baseURL+"/rooms/"+url.PathEscape(roomID), nil, nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return goerr.Wrap(err, "failed to delete room", goerr.V("room_id", roomID))
	}
	return nil
}

// CreateMessage posts msg into roomID
func (c *client) CreateMessage(ctx context.Context, roomID string, msg *model.OutboundMessage) (string, error) {
	if msg == nil || msg.IsEmpty() {
		return "", goerr.New("message has no content", goerr.V("room_id", roomID))
	}

	req := messageRequest{
		RoomID:   roomID,
		Text:     msg.Text,
		Markdown: msg.Markdown,
		Files:    msg.Files,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if _, err := c.call(ctx, "CreateMessage", http.MethodPost, c.baseURL+"/messages", req, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to create message", goerr.V("room_id", roomID))
	}
	return resp.ID, nil
}

// GetMessage retrieves a message by ID
func (c *client) GetMessage(ctx context.Context, messageID string) (*model.ChatMessage, error) {
	var resp model.ChatMessage
	if _, err := c.call(ctx, "GetMessage", http.MethodGet, c.baseURL+"/messages/"+url.PathEscape(messageID), nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get message", goerr.V("message_id", messageID))
	}
	return &resp, nil
}

// CreateWebhook registers hook
func (c *client) CreateWebhook(ctx context.Context, hook *model.Webhook) (*model.Webhook, error) {
	if hook == nil {
		return nil, goerr.New("webhook is nil")
	}

	req := webhookPayload{
		Name:      hook.Name,
		TargetURL: hook.TargetURL,
		Resource:  hook.Resource,
		Event:     hook.Event,
		Filter:    hook.Filter,
		Secret:    hook.Secret,
	}

	var resp webhookPayload
	if _, err := c.call(ctx, "CreateWebhook", http.MethodPost, c.baseURL+"/webhooks", req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to create webhook", goerr.V("name", hook.Name))
	}

	created := *hook
	created.ID = resp.ID
	return &created, nil
}

// GetMe retrieves the person the access token belongs to
func (c *client) GetMe(ctx context.Context) (*Person, error) {
	c.meMu.Lock()
	defer c.meMu.Unlock()

	if c.me != nil {
		copied := *c.me
		return &copied, nil
	}

	var resp personResponse
	if _, err := c.call(ctx, "GetMe", http.MethodGet, c.baseURL+"/people/me", nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get own person")
	}

	c.me = &Person{
		ID:          resp.ID,
		Emails:      resp.Emails,
		DisplayName: resp.DisplayName,
	}
	copied := *c.me
	return &copied, nil
}

// call sends one API request with retries. body is JSON encoded when not nil
// and the response is decoded into out when not nil.
func (c *client) call(ctx context.Context, name, method, endpoint string, body, out any) (http.Header, error) {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode request body", goerr.V("call", name))
		}
		payload = raw
	}

	// POST is not idempotent; a transport error may mean the request was applied
	idempotent := method != http.MethodPost

	return retry.Do(ctx, c.policy, "webex."+name, func(ctx context.Context) (http.Header, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, retry.Permanent(goerr.Wrap(err, "failed to build request", goerr.V("call", name)))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			wrapped := goerr.Wrap(err, "failed to send request", goerr.V("call", name))
			if !idempotent {
				return nil, retry.Permanent(wrapped)
			}
			return nil, wrapped
		}
		defer safe.Drain(ctx, resp.Body)

		if err := checkStatus(resp, name); err != nil {
			return nil, err
		}

		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, retry.Permanent(goerr.Wrap(err, "failed to decode response", goerr.V("call", name)))
			}
		}

		return resp.Header, nil
	})
}

// checkStatus maps a non-2xx response to an error. Rate limits and server
// errors are left retryable, everything else is permanent.
func checkStatus(resp *http.Response, name string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	values := []goerr.Option{
		goerr.V("call", name),
		goerr.V("status", resp.StatusCode),
		goerr.V("body", string(msg)),
		goerr.V("tracking_id", resp.Header.Get("Trackingid")),
	}

	if resp.StatusCode == http.StatusNotFound {
		return retry.Permanent(goerr.Wrap(ErrNotFound, "webex resource not found", values...))
	}

	err := goerr.Wrap(ErrUnexpectedStatus, "webex returned error status", values...)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return retry.Permanent(err)
}

// nextLink extracts the rel="next" target from RFC 8288 Link header values
func nextLink(values []string) string {
	for _, value := range values {
		for _, link := range strings.Split(value, ",") {
			parts := strings.Split(link, ";")
			if len(parts) < 2 {
				continue
			}

			target := strings.TrimSpace(parts[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}

			for _, param := range parts[1:] {
				param = strings.TrimSpace(param)
				if param == `rel="next"` || param == "rel=next" {
					return strings.Trim(target, "<>")
				}
			}
		}
	}
	return ""
}
