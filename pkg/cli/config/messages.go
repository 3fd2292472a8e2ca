package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/switchboard/pkg/domain/model/config"
	"github.com/urfave/cli/v3"
)

// Messages points to an optional TOML file overriding customer-facing phrases
type Messages struct {
	path string
}

type messagesFile struct {
	Welcome      string `toml:"welcome"`
	Received     string `toml:"received"`
	Failed       string `toml:"failed"`
	SignupNotice string `toml:"signup_notice"`
}

func (x *Messages) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "messages",
			Usage:       "TOML file with customer-facing phrases (welcome, received, failed, signup_notice)",
			Category:    "Messages",
			Destination: &x.path,
			Sources:     cli.EnvVars("SWITCHBOARD_MESSAGES"),
		},
	}
}

func (x Messages) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the phrases. Without a file the defaults are returned.
func (x *Messages) Configure() (*domainConfig.Messages, error) {
	if x.path == "" {
		return domainConfig.DefaultMessages(), nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(errors.Join(ErrConfigNotFound, err), "messages file not found", goerr.V("path", x.path))
		}
		return nil, goerr.Wrap(err, "failed to read messages file", goerr.V("path", x.path))
	}

	return ParseMessages(data)
}

// ParseMessages decodes a TOML phrase document. Missing keys keep their defaults.
func ParseMessages(data []byte) (*domainConfig.Messages, error) {
	var f messagesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse messages TOML")
	}

	msgs := &domainConfig.Messages{
		Welcome:      f.Welcome,
		Received:     f.Received,
		Failed:       f.Failed,
		SignupNotice: f.SignupNotice,
	}
	if err := domainConfig.ValidateSignupNotice(msgs.SignupNotice); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid signup_notice")
	}
	return msgs.WithDefaults(), nil
}
