package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

const maxSignInput = 1 << 20

func cmdSign() *cli.Command {
	var secret string
	var input string
	var verify string
	var curl string

	return &cli.Command{
		Name:      "sign",
		Usage:     "Compute the X-Spark-Signature of a webhook payload",
		ArgsUsage: "[payload file, stdin when omitted]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "secret",
				Usage:       "Webhook secret of the room",
				Required:    true,
				Sources:     cli.EnvVars("SWITCHBOARD_WEBEX_WEBHOOK_SECRET", "SPARK_WEBHOOK_KEY"),
				Destination: &secret,
			},
			&cli.StringFlag{
				Name:        "verify",
				Usage:       "Check this signature instead of printing one",
				Destination: &verify,
			},
			&cli.StringFlag{
				Name:        "curl",
				Usage:       "Print a curl command posting the payload to this URL",
				Destination: &curl,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			input = c.Args().First()

			var r io.Reader = os.Stdin
			if input != "" && input != "-" {
				// #nosec G304 - path is expected to be provided by CLI argument
				f, err := os.Open(input)
				if err != nil {
					return goerr.Wrap(err, "failed to open payload", goerr.V("path", input))
				}
				defer safe.Close(ctx, f)
				r = f
			}

			return runSign(c.Root().Writer, r, signOptions{
				secret: secret,
				verify: verify,
				curl:   curl,
				input:  input,
			})
		},
	}
}

type signOptions struct {
	secret string
	verify string
	curl   string
	input  string
}

func runSign(w io.Writer, r io.Reader, opts signOptions) error {
	body, err := io.ReadAll(io.LimitReader(r, maxSignInput+1))
	if err != nil {
		return goerr.Wrap(err, "failed to read payload")
	}
	if len(body) > maxSignInput {
		return goerr.New("payload too large", goerr.V("limit", maxSignInput))
	}

	if opts.verify != "" {
		if err := model.VerifySignature(opts.secret, body, opts.verify); err != nil {
			_, _ = color.New(color.FgRed).Fprintln(w, "✘ signature does not match")
			return err
		}
		_, _ = color.New(color.FgGreen).Fprintln(w, "✔ signature matches")
		return nil
	}

	signature := model.ComputeSignature(opts.secret, body)
	if opts.curl == "" {
		_, _ = fmt.Fprintln(w, signature)
		return nil
	}

	data := "@-"
	if opts.input != "" && opts.input != "-" {
		data = "@" + opts.input
	}
	_, _ = color.New(color.FgCyan).Fprintf(w, "curl -X POST -H 'Content-Type: application/json' -H '%s: %s' --data-binary '%s' '%s'\n",
		model.SignatureHeader, signature, data, opts.curl)
	return nil
}
