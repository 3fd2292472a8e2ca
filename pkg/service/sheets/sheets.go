// Package sheets appends customer signups to a Google Sheets spreadsheet
package sheets

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"github.com/secmon-lab/switchboard/pkg/utils/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Service records signups
type Service interface {
	// LogSignup appends a (timestamp, customer ID) row to the signup sheet
	LogSignup(ctx context.Context, customerID types.CustomerID, at time.Time) error
}

type client struct {
	api           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	policy        retry.Policy

	mu       sync.Mutex
	verified bool
}

type config struct {
	clientOptions []option.ClientOption
	policy        retry.Policy
}

// Option is a functional option for client configuration
type Option func(*config)

// WithClientOptions passes options to the Google API client, such as
// credentials or an endpoint override
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *config) {
		c.clientOptions = append(c.clientOptions, opts...)
	}
}

// WithRetryPolicy sets timeout and retry behavior of API calls
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// New creates a signup log writing to the sheet named sheetName of spreadsheetID
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...Option) (Service, error) {
	if spreadsheetID == "" {
		return nil, goerr.New("spreadsheet ID is required")
	}
	if sheetName == "" {
		return nil, goerr.New("sheet name is required", goerr.V("spreadsheet_id", spreadsheetID))
	}

	cfg := &config{policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(cfg)
	}

	api, err := sheetsapi.NewService(ctx, cfg.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create sheets client", goerr.V("spreadsheet_id", spreadsheetID))
	}

	return &client{
		api:           api,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		policy:        cfg.policy,
	}, nil
}

// ErrSheetNotFound is returned when the spreadsheet has no sheet of the configured name
var ErrSheetNotFound = errors.New("signup sheet not found")

// verifySheet checks once that the configured sheet exists
func (c *client) verifySheet(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.verified {
		return nil
	}

	spreadsheet, err := retry.Do(ctx, c.policy, "sheets.Get", func(ctx context.Context) (*sheetsapi.Spreadsheet, error) {
		resp, err := c.api.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		return resp, classify(err)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to get spreadsheet", goerr.V("spreadsheet_id", c.spreadsheetID))
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			c.verified = true
			return nil
		}
	}

	return goerr.Wrap(ErrSheetNotFound, "sheet is not in spreadsheet",
		goerr.V("spreadsheet_id", c.spreadsheetID),
		goerr.V("sheet_name", c.sheetName),
	)
}

func (c *client) LogSignup(ctx context.Context, customerID types.CustomerID, at time.Time) error {
	if err := c.verifySheet(ctx); err != nil {
		return err
	}

	row := &sheetsapi.ValueRange{
		Values: [][]any{{at.UTC().Format(time.RFC3339), customerID.String()}},
	}
	target := "'" + c.sheetName + "'!A:B"

	_, err := retry.Do(ctx, c.policy, "sheets.Append", func(ctx context.Context) (*sheetsapi.AppendValuesResponse, error) {
		resp, err := c.api.Spreadsheets.Values.Append(c.spreadsheetID, target, row).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return resp, classify(err)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to append signup row",
			goerr.V("spreadsheet_id", c.spreadsheetID),
			goerr.V("customer_id", customerID),
		)
	}
	return nil
}

// classify marks client errors other than rate limiting as permanent
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return err
		}
		return retry.Permanent(err)
	}
	return err
}
