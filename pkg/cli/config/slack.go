package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/service/slack"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/urfave/cli/v3"
)

// Slack holds settings of the optional signup notice channel
type Slack struct {
	botToken  string
	channelID string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token for signup notices",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("SWITCHBOARD_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel that receives signup notices",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("SWITCHBOARD_SLACK_CHANNEL_ID"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot_token.len", len(x.botToken)),
		slog.String("channel_id", x.channelID),
	)
}

// IsEnabled reports whether a bot token is set
func (x *Slack) IsEnabled() bool {
	return x.botToken != ""
}

// Configure returns nil without error when no bot token is set
func (x *Slack) Configure(policy retry.Policy) (slack.Service, error) {
	if !x.IsEnabled() {
		return nil, nil
	}
	if x.channelID == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "slack-channel-id is required with slack-bot-token")
	}

	svc, err := slack.New(x.botToken, x.channelID, slack.WithRetryPolicy(policy))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack client")
	}
	return svc, nil
}
