// Package config loads the optional settings file for idp-token.
//
// The file is INI formatted and only the [exchange] section is read:
//
//	[exchange]
//	endpoint             = https://idp-auth-s2s-svc.lb.service/auth/v1/access_token
//	region               = us-west-2
//	insecure_skip_verify = true
//	timeout              = 15s
//
// A missing file is not an error; every key falls back to its default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eculver/aws-idp-token/pkg/token"
	ini "gopkg.in/ini.v1"
)

const (
	// SelfName names the settings file.
	SelfName = "idp-token"
	// DefaultRegion is the signing region when neither flag nor file sets one.
	DefaultRegion = "us-west-2"
	// Section is the only INI section Load reads.
	Section = "exchange"
)

// ErrConfigFailure wraps every settings file error.
var ErrConfigFailure = errors.New("config error")

// Settings are the fixed deployment parameters of the token exchange.
type Settings struct {
	Endpoint           string
	Region             string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Defaults returns the settings used when no file overrides them.
func Defaults() Settings {
	return Settings{
		Endpoint:           token.DefaultEndpoint,
		Region:             DefaultRegion,
		InsecureSkipVerify: true,
		Timeout:            token.DefaultTimeout,
	}
}

// TokenOptions converts the settings into token client options.
func (s Settings) TokenOptions() token.Options {
	return token.Options{
		Endpoint:           s.Endpoint,
		InsecureSkipVerify: s.InsecureSkipVerify,
		Timeout:            s.Timeout,
	}
}

// DefaultPath is $HOME/.idp-token.ini, or empty when the home dir is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fmt.Sprintf(".%s.ini", SelfName))
}

// Load reads settings from path on top of Defaults.
func Load(path string) (Settings, error) {
	settings := Defaults()
	if path == "" {
		return settings, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return Settings{}, fmt.Errorf("fail to read ini file %s: %v, %w", path, err, ErrConfigFailure)
	}

	sct := cfg.Section(Section)
	if sct.HasKey("endpoint") {
		settings.Endpoint = sct.Key("endpoint").String()
	}
	if sct.HasKey("region") {
		settings.Region = sct.Key("region").String()
	}
	if sct.HasKey("insecure_skip_verify") {
		insecure, err := sct.Key("insecure_skip_verify").Bool()
		if err != nil {
			return Settings{}, fmt.Errorf("invalid insecure_skip_verify in %s: %v, %w", path, err, ErrConfigFailure)
		}
		settings.InsecureSkipVerify = insecure
	}
	if sct.HasKey("timeout") {
		timeout, err := sct.Key("timeout").Duration()
		if err != nil {
			return Settings{}, fmt.Errorf("invalid timeout in %s: %v, %w", path, err, ErrConfigFailure)
		}
		settings.Timeout = timeout
	}

	if settings.Endpoint == "" {
		return Settings{}, fmt.Errorf("endpoint in %s is empty, %w", path, ErrConfigFailure)
	}
	if settings.Region == "" {
		return Settings{}, fmt.Errorf("region in %s is empty, %w", path, ErrConfigFailure)
	}
	return settings, nil
}
