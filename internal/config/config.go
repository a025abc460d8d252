// Package config loads gcalfeed settings from a YAML file and GCAL_*
// environment variables.
//
// The first underscore after the prefix separates the section from the key;
// later underscores are dropped. GCAL_AUTH_REFRESH_TOKEN and
// GCAL_AUTH_REFRESHTOKEN both set auth.refreshtoken. Recognized variables:
//
//	GCAL_AUTH_EMAIL, GCAL_AUTH_PASSWORD, GCAL_AUTH_TOKEN, GCAL_AUTH_OAUTH_TOKEN,
//	GCAL_AUTH_CLIENT_ID, GCAL_AUTH_CLIENT_SECRET, GCAL_AUTH_REFRESH_TOKEN,
//	GCAL_AUTH_TOKEN_URL, GCAL_PROXY_URL, GCAL_PROXY_USER, GCAL_PROXY_PASSWORD,
//	GCAL_FEEDS_DEFAULT, GCAL_FEEDS_LIST, GCAL_LOG_LEVEL, GCAL_LOG_FORMAT
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. GCAL_AUTH_EMAIL sets
// auth.email.
const EnvPrefix = "GCAL_"

const (
	defaultFeed      = "http://www.google.com/calendar/feeds/default/private/full"
	defaultListFeed  = "http://www.google.com/calendar/feeds/default/allcalendars/full"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// Config is the gcalfeed configuration.
type Config struct {
	Auth  Auth  `koanf:"auth"`
	Proxy Proxy `koanf:"proxy"`
	Feeds Feeds `koanf:"feeds"`
	Log   Log   `koanf:"log"`
}

// Auth selects the credential. One of email/password, token, refreshtoken
// or oauthtoken is expected, in that order of precedence.
type Auth struct {
	Email      string `koanf:"email" validate:"required_without_all=Token RefreshToken OAuthToken,omitempty,email"`
	Password   string `koanf:"password" validate:"required_with=Email"`
	Token      string `koanf:"token"`
	OAuthToken string `koanf:"oauthtoken"`

	// OAuth2 installed-client credentials used with RefreshToken.
	ClientID     string `koanf:"clientid" validate:"required_with=RefreshToken"`
	ClientSecret string `koanf:"clientsecret"`
	RefreshToken string `koanf:"refreshtoken"`
	TokenURL     string `koanf:"tokenurl" validate:"omitempty,url"`
}

// Proxy configures the outbound HTTP proxy.
type Proxy struct {
	URL      string `koanf:"url" validate:"omitempty,url"`
	User     string `koanf:"user"`
	Password string `koanf:"password" validate:"excluded_without=User"`
}

// Feeds holds feed endpoints.
type Feeds struct {
	Default string `koanf:"default" validate:"url"`
	List    string `koanf:"list" validate:"url"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// envKey maps GCAL_SECTION_SOME_KEY to section.somekey.
func envKey(name string) string {
	section, key, _ := strings.Cut(strings.TrimPrefix(name, EnvPrefix), "_")
	key = strings.ReplaceAll(key, "_", "")
	if key == "" {
		return strings.ToLower(section)
	}
	return strings.ToLower(section + "." + key)
}

// Load reads path (if non-empty) and then applies GCAL_* environment
// overrides. Missing values get defaults. The result is not validated;
// call Validate before use.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feeds.Default == "" {
		c.Feeds.Default = defaultFeed
	}
	if c.Feeds.List == "" {
		c.Feeds.List = defaultListFeed
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HasPassword reports whether password authentication is configured.
func (a Auth) HasPassword() bool {
	return a.Email != "" && a.Password != ""
}
