package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/service/sheets"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Sheets holds settings of the optional signup spreadsheet
type Sheets struct {
	spreadsheetID   string
	sheetName       string
	credentialsFile string
}

func (x *Sheets) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sheets-spreadsheet-id",
			Usage:       "Google Sheets spreadsheet that records signups. Signup logging is off when empty",
			Category:    "Signup log",
			Destination: &x.spreadsheetID,
			Sources:     cli.EnvVars("SWITCHBOARD_SHEETS_SPREADSHEET_ID"),
		},
		&cli.StringFlag{
			Name:        "sheets-sheet-name",
			Usage:       "Name of the sheet that signup rows are appended to",
			Category:    "Signup log",
			Value:       "Signups",
			Destination: &x.sheetName,
			Sources:     cli.EnvVars("SWITCHBOARD_SHEETS_SHEET_NAME"),
		},
		&cli.StringFlag{
			Name:        "sheets-credentials-file",
			Usage:       "Service account key file. Application default credentials are used when empty",
			Category:    "Signup log",
			Destination: &x.credentialsFile,
			Sources:     cli.EnvVars("SWITCHBOARD_SHEETS_CREDENTIALS_FILE"),
		},
	}
}

func (x Sheets) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("spreadsheet_id", x.spreadsheetID),
		slog.String("sheet_name", x.sheetName),
		slog.Bool("credentials_file", x.credentialsFile != ""),
	)
}

// IsEnabled reports whether signup logging is configured
func (x *Sheets) IsEnabled() bool {
	return x.spreadsheetID != ""
}

// Configure returns nil without error when signup logging is not configured
func (x *Sheets) Configure(ctx context.Context, policy retry.Policy) (sheets.Service, error) {
	if !x.IsEnabled() {
		return nil, nil
	}

	opts := []sheets.Option{sheets.WithRetryPolicy(policy)}
	if x.credentialsFile != "" {
		opts = append(opts, sheets.WithClientOptions(option.WithCredentialsFile(x.credentialsFile)))
	}

	svc, err := sheets.New(ctx, x.spreadsheetID, x.sheetName, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create sheets client")
	}
	return svc, nil
}
