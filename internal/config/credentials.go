package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is matched by every configuration error so callers can
// tell a fatal setup problem from a remote or I/O failure.
var ErrConfiguration = errors.New("configuration error")

// MissingKeyError reports the first required credential that is not set.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("received bad config: missing %s", e.Key)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrConfiguration
}

// Credentials are the script-app secrets needed to open a Reddit session.
type Credentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	UserAgent    string `env:"USERAGENT"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
}

// Validate checks the keys in a fixed order and names the first one missing.
func (c Credentials) Validate() error {
	for _, field := range c.fields() {
		if strings.TrimSpace(field.value) == "" {
			return &MissingKeyError{Key: field.key}
		}
	}
	return nil
}

// Redacted is safe to log.
func (c Credentials) Redacted() map[string]string {
	out := make(map[string]string, 5)
	for _, field := range c.fields() {
		switch {
		case field.value == "":
			out[field.key] = ""
		case field.key == "CLIENT_SECRET" || field.key == "PASSWORD":
			out[field.key] = "***"
		default:
			out[field.key] = field.value
		}
	}
	return out
}

type credentialField struct {
	key   string
	value string
}

func (c Credentials) fields() []credentialField {
	return []credentialField{
		{"CLIENT_ID", c.ClientID},
		{"CLIENT_SECRET", c.ClientSecret},
		{"USERAGENT", c.UserAgent},
		{"USERNAME", c.Username},
		{"PASSWORD", c.Password},
	}
}

func (c Credentials) trimmed() Credentials {
	return Credentials{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		UserAgent:    strings.TrimSpace(c.UserAgent),
		Username:     strings.TrimSpace(c.Username),
		Password:     c.Password,
	}
}
