package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	hstls "github.com/sadopc/hookscope/internal/core/tls"
)

// Config holds the application configuration.
type Config struct {
	Server          string        `yaml:"server" validate:"required,http_url"`
	Account         string        `yaml:"account" validate:"omitempty,alphanum"`
	PageSize        int           `yaml:"page_size" validate:"gt=0,lte=1000"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" validate:"gt=0"`
	ReconnectJitter time.Duration `yaml:"reconnect_jitter" validate:"gte=0"`
	Theme           string        `yaml:"theme"`
	Proxy           string        `yaml:"proxy" validate:"omitempty,url"`
	NoProxy         string        `yaml:"no_proxy"`
	TLS             hstls.Config  `yaml:"tls"`
	History         bool          `yaml:"history"`
	HistoryPath     string        `yaml:"history_path"`
	LogFile         string        `yaml:"log_file"`
	LogLevel        string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	Filter          string        `yaml:"filter"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server:          "http://localhost:8080",
		PageSize:        100,
		RequestTimeout:  30 * time.Second,
		ReconnectDelay:  5 * time.Second,
		ReconnectJitter: 5 * time.Second,
		Theme:           "catppuccin-mocha",
		History:         true,
		LogLevel:        "info",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", yamlKey(fe.StructField()), rule(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// RequireAccount fails when no account is configured.
func (c Config) RequireAccount() error {
	if c.Account == "" {
		return fmt.Errorf("no account configured (set account in %s, HOOKSCOPE_ACCOUNT, or pass --account)", Path())
	}
	return nil
}

func yamlKey(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "http_url", "url":
		return "must be a URL"
	case "alphanum":
		return "must be alphanumeric"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "lte":
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
