package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/switchboard/pkg/cli/config"
	httpctrl "github.com/secmon-lab/switchboard/pkg/controller/http"
	"github.com/secmon-lab/switchboard/pkg/service/worker"
	"github.com/secmon-lab/switchboard/pkg/usecase"
	"github.com/secmon-lab/switchboard/pkg/utils/async"
	"github.com/secmon-lab/switchboard/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 5 * time.Second
)

func cmdServe() *cli.Command {
	var addr string
	var noWorker bool
	var repoCfg config.Repository
	var webexCfg config.Webex
	var tropoCfg config.Tropo
	var sheetsCfg config.Sheets
	var slackCfg config.Slack
	var workerCfg config.Worker
	var upstreamCfg config.Upstream
	var messagesCfg config.Messages

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SWITCHBOARD_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "no-worker",
			Usage:       "Do not run the task worker in this process (another instance drains the queue)",
			Category:    "Worker",
			Sources:     cli.EnvVars("SWITCHBOARD_NO_WORKER"),
			Destination: &noWorker,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, webexCfg.Flags()...)
	flags = append(flags, tropoCfg.Flags()...)
	flags = append(flags, sheetsCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, workerCfg.Flags()...)
	flags = append(flags, upstreamCfg.Flags()...)
	flags = append(flags, messagesCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and task worker",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"repository", repoCfg,
				"webex", webexCfg,
				"tropo", tropoCfg,
				"sheets", sheetsCfg,
				"slack", slackCfg,
				"worker", workerCfg,
				"upstream", upstreamCfg,
				"messages", messagesCfg,
			)

			policy := upstreamCfg.Policy()
			ucOpts, err := upstreamCfg.Configure()
			if err != nil {
				return err
			}
			workerOpts, err := workerCfg.Configure()
			if err != nil {
				return err
			}

			_, webexOpts, err := webexCfg.Configure(httpctrl.PathSparkWebhook, policy)
			if err != nil {
				return goerr.Wrap(err, "failed to configure webex")
			}
			ucOpts = append(ucOpts, webexOpts...)

			tropoSvc, err := tropoCfg.Configure(policy)
			if err != nil {
				return goerr.Wrap(err, "failed to configure tropo")
			}
			ucOpts = append(ucOpts, usecase.WithTropo(tropoSvc))

			sheetsSvc, err := sheetsCfg.Configure(ctx, policy)
			if err != nil {
				return goerr.Wrap(err, "failed to configure signup sheet")
			}
			if sheetsSvc != nil {
				ucOpts = append(ucOpts, usecase.WithSheets(sheetsSvc))
				logging.Default().Info("Signup logging to spreadsheet enabled")
			}

			slackSvc, err := slackCfg.Configure(policy)
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack")
			}
			if slackSvc != nil {
				ucOpts = append(ucOpts, usecase.WithSlack(slackSvc))
				logging.Default().Info("Signup notices to Slack enabled")
			}

			messages, err := messagesCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load messages")
			}
			ucOpts = append(ucOpts, usecase.WithMessages(messages))

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, ucOpts...)

			var taskWorker *worker.TaskWorker
			if !noWorker {
				taskWorker = worker.NewTaskWorker(repo, uc.Task, workerOpts...)
				if err := taskWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start task worker")
				}
			} else {
				logging.Default().Warn("Task worker disabled, signup side effects wait for another instance")
			}

			httpHandler, err := httpctrl.New(
				httpctrl.WithCustomerUseCase(uc.Customer),
				httpctrl.WithRelayUseCase(uc.Relay),
				httpctrl.WithMessages(uc.Messages()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				if taskWorker != nil {
					taskWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				// Stop accepting webhooks before the worker so no task is left behind
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				if taskWorker != nil {
					taskWorker.Stop()
				}

				if !async.Wait(drainTimeout) {
					logging.Default().Warn("Background handlers still running at shutdown")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
