package slack

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/slack-go/slack"
)

// client implements Service interface
type client struct {
	api       *slack.Client
	channelID string
	policy    retry.Policy
}

type config struct {
	apiURL string
	policy retry.Policy
}

// Option is a functional option for client configuration
type Option func(*config)

// WithAPIURL overrides the Slack Web API endpoint. The URL must end with '/'.
func WithAPIURL(apiURL string) Option {
	return func(c *config) {
		c.apiURL = apiURL
	}
}

// WithRetryPolicy sets timeout and retry behavior of API calls
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// New creates a new Slack service posting to channelID with the provided bot token
func New(token, channelID string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}

	cfg := &config{policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(cfg)
	}

	var apiOpts []slack.Option
	if cfg.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(cfg.apiURL))
	}

	return &client{
		api:       slack.New(token, apiOpts...),
		channelID: channelID,
		policy:    cfg.policy,
	}, nil
}

// PostMessage posts a plain text message to the configured channel
func (c *client) PostMessage(ctx context.Context, text string) (string, error) {
	ts, err := retry.Do(ctx, c.policy, "slack.PostMessage", func(ctx context.Context) (string, error) {
		_, ts, err := c.api.PostMessageContext(ctx, c.channelID, slack.MsgOptionText(text, false))
		return ts, classify(err)
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.V("channel_id", c.channelID))
	}
	return ts, nil
}

// classify leaves rate limits and server errors retryable
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return err
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= http.StatusInternalServerError {
		return err
	}

	// Slack API errors such as channel_not_found will not go away on retry
	return retry.Permanent(err)
}
