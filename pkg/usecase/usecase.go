package usecase

import (
	"time"

	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model/config"
	"github.com/secmon-lab/switchboard/pkg/service/sheets"
	"github.com/secmon-lab/switchboard/pkg/service/slack"
	"github.com/secmon-lab/switchboard/pkg/service/tropo"
	"github.com/secmon-lab/switchboard/pkg/service/webex"
)

const (
	// DefaultReservationTTL bounds how long a signup may hold a customer ID.
	// It must outlast the retries of the signup API calls.
	DefaultReservationTTL = 2 * time.Minute

	// DefaultResolveTimeout bounds how long a caller waits for another signup
	DefaultResolveTimeout = 30 * time.Second
)

type UseCases struct {
	repo           interfaces.Repository
	webex          webex.Service
	tropo          tropo.Service
	sheets         sheets.Service
	slack          slack.Service
	messages       *config.Messages
	teamID         string
	webhookURL     string
	sharedSecret   string
	reservationTTL time.Duration
	resolveTimeout time.Duration
	now            func() time.Time

	Customer *CustomerUseCase
	Signup   *SignupUseCase
	Relay    *RelayUseCase
	Task     *TaskUseCase
}

type Option func(*UseCases)

// WithWebex sets the messaging platform client
func WithWebex(svc webex.Service) Option {
	return func(uc *UseCases) {
		uc.webex = svc
	}
}

// WithTropo sets the SMS client
func WithTropo(svc tropo.Service) Option {
	return func(uc *UseCases) {
		uc.tropo = svc
	}
}

// WithSheets enables signup logging to a spreadsheet
func WithSheets(svc sheets.Service) Option {
	return func(uc *UseCases) {
		uc.sheets = svc
	}
}

// WithSlack enables signup notices to a Slack channel
func WithSlack(svc slack.Service) Option {
	return func(uc *UseCases) {
		uc.slack = svc
	}
}

// WithMessages overrides customer-facing phrases
func WithMessages(messages *config.Messages) Option {
	return func(uc *UseCases) {
		uc.messages = messages
	}
}

// WithTeamID sets the team whose rooms hold customer conversations
func WithTeamID(teamID string) Option {
	return func(uc *UseCases) {
		uc.teamID = teamID
	}
}

// WithWebhookURL sets the public URL of the chat webhook endpoint
func WithWebhookURL(url string) Option {
	return func(uc *UseCases) {
		uc.webhookURL = url
	}
}

// WithSharedSecret sets the webhook secret used for rooms without a stored one
func WithSharedSecret(secret string) Option {
	return func(uc *UseCases) {
		uc.sharedSecret = secret
	}
}

// WithReservationTTL sets how long a signup holds a customer ID
func WithReservationTTL(ttl time.Duration) Option {
	return func(uc *UseCases) {
		uc.reservationTTL = ttl
	}
}

// WithResolveTimeout sets how long to wait for a concurrent signup
func WithResolveTimeout(timeout time.Duration) Option {
	return func(uc *UseCases) {
		uc.resolveTimeout = timeout
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:           repo,
		reservationTTL: DefaultReservationTTL,
		resolveTimeout: DefaultResolveTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}
	uc.messages = uc.messages.WithDefaults()

	uc.Signup = NewSignupUseCase(uc)
	uc.Customer = NewCustomerUseCase(uc, uc.Signup)
	uc.Relay = NewRelayUseCase(uc)
	uc.Task = NewTaskUseCase(uc)

	return uc
}

// Messages returns the configured customer-facing phrases
func (uc *UseCases) Messages() *config.Messages {
	return uc.messages
}

func (uc *UseCases) clock() time.Time {
	return uc.now().UTC()
}
