package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/service/worker"
	"github.com/urfave/cli/v3"
)

// Worker holds settings of the background task worker
type Worker struct {
	interval     time.Duration
	lease        time.Duration
	batchSize    int
	retryInitial time.Duration
	retryMax     time.Duration
}

func (x *Worker) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "worker-interval",
			Usage:       "Polling interval of the task queue",
			Category:    "Worker",
			Value:       worker.DefaultInterval,
			Destination: &x.interval,
			Sources:     cli.EnvVars("SWITCHBOARD_WORKER_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:        "worker-lease",
			Usage:       "How long a running task is hidden from other workers",
			Category:    "Worker",
			Value:       worker.DefaultLease,
			Destination: &x.lease,
			Sources:     cli.EnvVars("SWITCHBOARD_WORKER_LEASE"),
		},
		&cli.IntFlag{
			Name:        "worker-batch-size",
			Usage:       "Tasks acquired per poll",
			Category:    "Worker",
			Value:       worker.DefaultBatchSize,
			Destination: &x.batchSize,
			Sources:     cli.EnvVars("SWITCHBOARD_WORKER_BATCH_SIZE"),
		},
		&cli.DurationFlag{
			Name:        "worker-retry-initial",
			Usage:       "Delay before retrying a failed task",
			Category:    "Worker",
			Value:       worker.DefaultRetryInitial,
			Destination: &x.retryInitial,
			Sources:     cli.EnvVars("SWITCHBOARD_WORKER_RETRY_INITIAL"),
		},
		&cli.DurationFlag{
			Name:        "worker-retry-max",
			Usage:       "Upper bound of the task retry delay",
			Category:    "Worker",
			Value:       worker.DefaultRetryMax,
			Destination: &x.retryMax,
			Sources:     cli.EnvVars("SWITCHBOARD_WORKER_RETRY_MAX"),
		},
	}
}

func (x Worker) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("interval", x.interval),
		slog.Duration("lease", x.lease),
		slog.Int("batch_size", x.batchSize),
		slog.Duration("retry_initial", x.retryInitial),
		slog.Duration("retry_max", x.retryMax),
	)
}

// Configure validates the settings and returns worker options
func (x *Worker) Configure() ([]worker.TaskWorkerOption, error) {
	if x.interval <= 0 || x.lease <= 0 || x.retryInitial <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "worker durations must be positive",
			goerr.V("interval", x.interval),
			goerr.V("lease", x.lease),
			goerr.V("retry_initial", x.retryInitial),
		)
	}
	if x.batchSize <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "worker-batch-size must be positive", goerr.V("batch_size", x.batchSize))
	}
	if x.retryMax < x.retryInitial {
		return nil, goerr.Wrap(ErrInvalidConfig, "worker-retry-max must not be shorter than worker-retry-initial",
			goerr.V("retry_initial", x.retryInitial),
			goerr.V("retry_max", x.retryMax),
		)
	}

	return []worker.TaskWorkerOption{
		worker.WithInterval(x.interval),
		worker.WithLease(x.lease),
		worker.WithBatchSize(x.batchSize),
		worker.WithRetryBackoff(x.retryInitial, x.retryMax),
	}, nil
}
