package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/service/tropo"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/urfave/cli/v3"
)

// Tropo holds SMS platform settings
type Tropo struct {
	token  string
	apiURL string
}

func (x *Tropo) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tropo-token",
			Usage:       "Tropo messaging application token",
			Category:    "Tropo",
			Destination: &x.token,
			Sources:     cli.EnvVars("SWITCHBOARD_TROPO_TOKEN", "TROPO_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "tropo-api-url",
			Usage:       "Tropo REST API endpoint",
			Category:    "Tropo",
			Value:       tropo.DefaultBaseURL,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("SWITCHBOARD_TROPO_API_URL"),
		},
	}
}

func (x Tropo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("token.len", len(x.token)),
		slog.String("api_url", x.apiURL),
	)
}

func (x *Tropo) Configure(policy retry.Policy) (tropo.Service, error) {
	if x.token == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "tropo-token is required")
	}

	svc, err := tropo.New(x.token,
		tropo.WithBaseURL(x.apiURL),
		tropo.WithRetryPolicy(policy),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create tropo client")
	}
	return svc, nil
}
