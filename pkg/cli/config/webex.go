package config

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/service/webex"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/urfave/cli/v3"
)

// Webex holds messaging platform settings
type Webex struct {
	token         string
	teamID        string
	baseURL       string
	webhookSecret string
	apiURL        string
}

func (x *Webex) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "webex-token",
			Usage:       "Webex bot access token",
			Category:    "Webex",
			Destination: &x.token,
			Sources:     cli.EnvVars("SWITCHBOARD_WEBEX_TOKEN", "SPARK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "webex-team-id",
			Usage:       "Webex team that holds customer rooms",
			Category:    "Webex",
			Destination: &x.teamID,
			Sources:     cli.EnvVars("SWITCHBOARD_WEBEX_TEAM_ID", "SPARK_AGENT_TEAM_ID"),
		},
		&cli.StringFlag{
			Name:        "webex-webhook-secret",
			Usage:       "Shared webhook secret for rooms created before per-room secrets. Signature checks are off for such rooms when empty",
			Category:    "Webex",
			Destination: &x.webhookSecret,
			Sources:     cli.EnvVars("SWITCHBOARD_WEBEX_WEBHOOK_SECRET", "SPARK_WEBHOOK_KEY"),
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public URL of this service, used as webhook target (e.g., https://switchboard.example.com)",
			Category:    "Webex",
			Destination: &x.baseURL,
			Sources:     cli.EnvVars("SWITCHBOARD_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "webex-api-url",
			Usage:       "Webex REST API endpoint",
			Category:    "Webex",
			Value:       webex.DefaultBaseURL,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("SWITCHBOARD_WEBEX_API_URL"),
		},
	}
}

func (x Webex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("token.len", len(x.token)),
		slog.String("team_id", x.teamID),
		slog.Int("webhook_secret.len", len(x.webhookSecret)),
		slog.String("base_url", x.baseURL),
		slog.String("api_url", x.apiURL),
	)
}

// WebhookURL joins the public base URL with path
func (x *Webex) WebhookURL(path string) (string, error) {
	if x.baseURL == "" {
		return "", goerr.Wrap(ErrMissingRequired, "base-url is required to register room webhooks")
	}
	u, err := url.Parse(x.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", goerr.Wrap(ErrInvalidConfig, "base-url must be an absolute URL", goerr.V("base_url", x.baseURL))
	}
	return strings.TrimRight(x.baseURL, "/") + path, nil
}

// Configure builds the Webex client and the use case options carrying the
// team, webhook target and shared secret
func (x *Webex) Configure(webhookPath string, policy retry.Policy) (webex.Service, []usecase.Option, error) {
	if x.token == "" {
		return nil, nil, goerr.Wrap(ErrMissingRequired, "webex-token is required")
	}
	if x.teamID == "" {
		return nil, nil, goerr.Wrap(ErrMissingRequired, "webex-team-id is required")
	}

	webhookURL, err := x.WebhookURL(webhookPath)
	if err != nil {
		return nil, nil, err
	}

	svc, err := webex.New(x.token,
		webex.WithBaseURL(x.apiURL),
		webex.WithRetryPolicy(policy),
	)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create webex client")
	}

	return svc, []usecase.Option{
		usecase.WithWebex(svc),
		usecase.WithTeamID(x.teamID),
		usecase.WithWebhookURL(webhookURL),
		usecase.WithSharedSecret(x.webhookSecret),
	}, nil
}
