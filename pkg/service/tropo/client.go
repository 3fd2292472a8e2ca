package tropo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/secmon-lab/switchboard/pkg/utils/safe"
)

const (
	// DefaultBaseURL is the Tropo REST API endpoint
	DefaultBaseURL = "https://api.tropo.com"

	maxResponseBody = 4096
)

// client implements Service interface
type client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
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

// New creates a new Tropo service with the messaging application token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Tropo token is required")
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

type sessionResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	ID      string `json:"id"`
}

// SendSMS launches a Tropo session that texts the customer
func (c *client) SendSMS(ctx context.Context, to types.CustomerID, text string) (*Delivery, error) {
	if err := to.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid SMS recipient")
	}

	query := url.Values{}
	query.Set("action", "create")
	query.Set("token", c.token)
	query.Set("numbertodial", to.String())
	query.Set("msg", text)
	endpoint := c.baseURL + "/1.0/sessions?" + query.Encode()

	delivery, err := retry.Do(ctx, c.policy, "tropo.SendSMS", func(ctx context.Context) (*Delivery, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, retry.Permanent(goerr.Wrap(err, "failed to build request"))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to send request")
		}
		defer safe.Drain(ctx, resp.Body)

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := goerr.Wrap(ErrUnexpectedStatus, "tropo returned error status",
				goerr.V("status", resp.StatusCode),
				goerr.V("body", string(body)),
			)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, err
			}
			return nil, retry.Permanent(err)
		}

		d := &Delivery{
			StatusCode: resp.StatusCode,
			Success:    true,
		}

		// Older accounts answer with XML; the status code alone decides then
		var parsed sessionResponse
		if err := json.Unmarshal(body, &parsed); err == nil {
			d.Success = parsed.Success
			d.SessionID = parsed.ID
		}
		return d, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send SMS", goerr.V("to", to))
	}

	return delivery, nil
}
