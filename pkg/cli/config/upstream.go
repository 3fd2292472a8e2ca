package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/urfave/cli/v3"
)

// Upstream holds timeout and retry settings for third-party API calls and
// the customer signup reservation
type Upstream struct {
	maxTries       uint
	timeout        time.Duration
	reservationTTL time.Duration
	resolveTimeout time.Duration
}

func (x *Upstream) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{
			Name:        "api-max-tries",
			Usage:       "Attempts per third-party API call",
			Category:    "Upstream",
			Value:       retry.DefaultMaxTries,
			Destination: &x.maxTries,
			Sources:     cli.EnvVars("SWITCHBOARD_API_MAX_TRIES"),
		},
		&cli.DurationFlag{
			Name:        "api-timeout",
			Usage:       "Timeout of a single third-party API attempt",
			Category:    "Upstream",
			Value:       retry.DefaultTimeout,
			Destination: &x.timeout,
			Sources:     cli.EnvVars("SWITCHBOARD_API_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:        "reservation-ttl",
			Usage:       "How long a signup holds a customer ID before others may take over",
			Category:    "Upstream",
			Value:       usecase.DefaultReservationTTL,
			Destination: &x.reservationTTL,
			Sources:     cli.EnvVars("SWITCHBOARD_RESERVATION_TTL"),
		},
		&cli.DurationFlag{
			Name:        "resolve-timeout",
			Usage:       "How long a request waits for a concurrent signup of the same customer",
			Category:    "Upstream",
			Value:       usecase.DefaultResolveTimeout,
			Destination: &x.resolveTimeout,
			Sources:     cli.EnvVars("SWITCHBOARD_RESOLVE_TIMEOUT"),
		},
	}
}

func (x Upstream) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("max_tries", uint64(x.maxTries)),
		slog.Duration("timeout", x.timeout),
		slog.Duration("reservation_ttl", x.reservationTTL),
		slog.Duration("resolve_timeout", x.resolveTimeout),
	)
}

// Policy returns the retry policy shared by all API clients
func (x *Upstream) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	if x.maxTries > 0 {
		p.MaxTries = x.maxTries
	}
	if x.timeout > 0 {
		p.Timeout = x.timeout
	}
	return p
}

// Configure validates the settings and returns the matching use case options
func (x *Upstream) Configure() ([]usecase.Option, error) {
	if x.reservationTTL <= 0 || x.resolveTimeout <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "reservation-ttl and resolve-timeout must be positive",
			goerr.V("reservation_ttl", x.reservationTTL),
			goerr.V("resolve_timeout", x.resolveTimeout),
		)
	}
	// A reservation that expires while its owner still retries API calls
	// would let a second signup start.
	if worst := time.Duration(x.Policy().MaxTries) * x.Policy().Timeout; x.reservationTTL < worst {
		return nil, goerr.Wrap(ErrInvalidConfig, "reservation-ttl must outlast the retries of one API call",
			goerr.V("reservation_ttl", x.reservationTTL),
			goerr.V("worst_case", worst),
		)
	}

	return []usecase.Option{
		usecase.WithReservationTTL(x.reservationTTL),
		usecase.WithResolveTimeout(x.resolveTimeout),
	}, nil
}
