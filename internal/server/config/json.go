package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/flagx"
	"github.com/dmitrijs2005/inkwell/internal/timex"
)

// JsonConfig is the on-disk representation of Config. Duration fields use
// timex.Duration so both "30m" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	TokenTTL           timex.Duration `json:"token_ttl"`
	OAuthTokenTTL      timex.Duration `json:"oauth_token_ttl"`
	CookieMaxAge       timex.Duration `json:"cookie_max_age"`
	SessionTTL         timex.Duration `json:"session_ttl"`
	Environment        string         `json:"environment"`
	RedisAddr          string         `json:"redis_addr"`
	GoogleClientID     string         `json:"google_client_id"`
	GoogleClientSecret string         `json:"google_client_secret"`
	GoogleRedirectURL  string         `json:"google_redirect_url"`
	LogBackend         string         `json:"log_backend"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without the flag nothing is loaded. Keys missing from the file
// keep their current values. Unreadable files or invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Environment, c.Environment)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&config.LogBackend, c.LogBackend)

	setDuration(&config.TokenTTL, c.TokenTTL)
	setDuration(&config.OAuthTokenTTL, c.OAuthTokenTTL)
	setDuration(&config.CookieMaxAge, c.CookieMaxAge)
	setDuration(&config.SessionTTL, c.SessionTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
