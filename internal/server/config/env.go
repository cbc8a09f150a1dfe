package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// EnvPrefix is prepended to every variable name in the Config env tags.
const EnvPrefix = "AUTH_"

// envTTLs holds the raw token lifetimes. A bare integer is minutes for the
// access token and days for the refresh token, matching the -t and -r flags.
type envTTLs struct {
	Access  string `env:"ACCESS_TOKEN_TTL"`
	Refresh string `env:"REFRESH_TOKEN_TTL"`
}

// parseEnv overlays config with AUTH_* environment variables. Unset variables
// leave fields untouched. A nil environ reads the process environment.
func parseEnv(config *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}

	if err := env.ParseWithOptions(config, opts); err != nil {
		return err
	}

	var ttls envTTLs
	if err := env.ParseWithOptions(&ttls, opts); err != nil {
		return err
	}

	if ttls.Access != "" {
		d, err := timex.ParseDurationUnit(ttls.Access, time.Minute)
		if err != nil {
			return fmt.Errorf("%sACCESS_TOKEN_TTL: %w", EnvPrefix, err)
		}
		config.AccessTokenValidityDuration = d
	}
	if ttls.Refresh != "" {
		d, err := timex.ParseDurationUnit(ttls.Refresh, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("%sREFRESH_TOKEN_TTL: %w", EnvPrefix, err)
		}
		config.RefreshTokenValidityDuration = d
	}

	return nil
}
