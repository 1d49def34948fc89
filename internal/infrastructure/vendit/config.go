package vendit

import (
	"errors"
	"strings"
)

const (
	// DefaultOAuthURL is the production token endpoint
	DefaultOAuthURL = "https://oauth.vendit.online/Api/GetToken"
	// DefaultAPIURL is the production API base
	DefaultAPIURL = "https://api2.vendit.online"
	// ImportEndpoint is the pre-purchase-order import path, relative to the API base
	ImportEndpoint = "/VenditPublicApi/PrePurchaseOrders/Import"

	defaultTimeoutSeconds = 30
)

// Errors for Vendit configuration and authentication
var (
	ErrConfigMissingAPIKey      = errors.New("vendit: missing required 'api_key' or 'vendit_api_key'")
	ErrConfigMissingCredentials = errors.New("vendit: either 'token' or both 'username' and 'password' are required")
	ErrConfigMissingAPIURL      = errors.New("vendit: api url is required")
	ErrConfigInvalidTimeout     = errors.New("vendit: timeout must not be negative")
	ErrTokenRequestFailed       = errors.New("vendit: oauth token request failed")
	ErrTokenMissing             = errors.New("vendit: invalid token response format")
)

// Config holds the credentials and endpoints of a Vendit account
type Config struct {
	// APIKey is sent as the ApiKey header on every request
	APIKey string
	// Token is a pre-issued token; when set, OAuth is skipped
	Token    string
	Username string
	Password string
	// OAuthURL is the token endpoint
	OAuthURL string
	// APIURL is the base URL of the public API
	APIURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewConfig creates a configuration with production endpoints
func NewConfig(apiKey, username, password string) *Config {
	return &Config{
		APIKey:         apiKey,
		Username:       username,
		Password:       password,
		OAuthURL:       DefaultOAuthURL,
		APIURL:         DefaultAPIURL,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// Validate checks the configuration and fills endpoint defaults
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.Token == "" && (c.Username == "" || c.Password == "") {
		return ErrConfigMissingCredentials
	}
	if c.TimeoutSeconds < 0 {
		return ErrConfigInvalidTimeout
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.OAuthURL == "" {
		c.OAuthURL = DefaultOAuthURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.APIURL == "" {
		return ErrConfigMissingAPIURL
	}
	return nil
}

// ImportURL returns the absolute import endpoint
func (c *Config) ImportURL() string {
	return c.APIURL + ImportEndpoint
}
