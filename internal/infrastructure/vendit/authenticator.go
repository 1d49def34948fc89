package vendit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
)

// Header names sent to the Vendit API
const (
	HeaderToken  = "Token"
	HeaderAPIKey = "ApiKey"
)

// maxTokenResponseSize bounds the OAuth response body
const maxTokenResponseSize = 1 << 20

// TokenStore shares issued tokens between runs using the same account.
// Get reports found=false with a nil error on a miss.
type TokenStore interface {
	Get(ctx context.Context, key string) (token string, found bool, err error)
	Set(ctx context.Context, key, token string) error
	Delete(ctx context.Context, key string) error
}

// Authenticator resolves request headers, fetching an OAuth token on first use.
// The token is cached until Invalidate is called.
type Authenticator struct {
	config     *Config
	httpClient *http.Client
	store      TokenStore
	logger     *zap.Logger

	mu    sync.Mutex
	token string
	// stale skips the pre-issued and shared tokens after a rejection
	stale bool
}

// AuthOption configures an Authenticator
type AuthOption func(*Authenticator)

// WithTokenStore shares tokens through store
func WithTokenStore(store TokenStore) AuthOption {
	return func(a *Authenticator) {
		a.store = store
	}
}

// WithAuthLogger sets the logger
func WithAuthLogger(logger *zap.Logger) AuthOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthHTTPClient replaces the HTTP client used for token requests
func WithAuthHTTPClient(client *http.Client) AuthOption {
	return func(a *Authenticator) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// NewAuthenticator validates config and creates an authenticator
func NewAuthenticator(config *Config, opts ...AuthOption) (*Authenticator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Authenticator{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Headers returns the headers of an authenticated JSON request.
// Errors wrap prepurchase.ErrCredentialsUnavailable.
func (a *Authenticator) Headers(ctx context.Context) (http.Header, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	h := make(http.Header, 4)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set(HeaderToken, token)
	h.Set(HeaderAPIKey, a.config.APIKey)
	return h, nil
}

// Token returns the cached token, resolving it when absent
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" {
		return a.token, nil
	}

	if !a.stale {
		if a.config.Token != "" {
			a.token = a.config.Token
			return a.token, nil
		}
		if token, ok := a.fromStore(ctx); ok {
			a.token = token
			return a.token, nil
		}
	}

	if a.config.Username == "" || a.config.Password == "" {
		// Nothing to exchange; the pre-issued token is all there is
		if a.config.Token != "" {
			a.token = a.config.Token
			return a.token, nil
		}
		return "", fmt.Errorf("%w: %w", prepurchase.ErrCredentialsUnavailable, ErrConfigMissingCredentials)
	}

	token, err := a.requestToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", prepurchase.ErrCredentialsUnavailable, err)
	}
	a.token = token
	a.stale = false
	a.toStore(ctx, token)
	return a.token, nil
}

// Invalidate drops the cached token so the next request fetches a new one
func (a *Authenticator) Invalidate(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = ""
	a.stale = true
	if a.store != nil {
		if err := a.store.Delete(ctx, a.storeKey()); err != nil {
			a.logger.Warn("Failed to delete shared token", zap.Error(err))
		}
	}
}

// Refresh invalidates the cached token and resolves a new one
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	a.Invalidate(ctx)
	return a.Token(ctx)
}

func (a *Authenticator) requestToken(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("apiKey", a.config.APIKey)
	q.Set("username", a.config.Username)
	q.Set("password", a.config.Password)

	endpoint := a.config.OAuthURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("vendit: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, a.config.APIKey)

	a.logger.Info("Requesting OAuth token", zap.String("oauth_url", a.config.OAuthURL))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("OAuth token request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrTokenRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Error("OAuth token request rejected", zap.Int("status_code", resp.StatusCode))
		return "", fmt.Errorf("%w: HTTP %d", ErrTokenRequestFailed, resp.StatusCode)
	}

	var out struct {
		Token any `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMissing, err)
	}
	token, ok := out.Token.(string)
	if !ok || token == "" {
		return "", ErrTokenMissing
	}

	a.logger.Info("Obtained OAuth token")
	return token, nil
}

func (a *Authenticator) fromStore(ctx context.Context) (string, bool) {
	if a.store == nil {
		return "", false
	}
	token, found, err := a.store.Get(ctx, a.storeKey())
	if err != nil {
		a.logger.Warn("Failed to read shared token", zap.Error(err))
		return "", false
	}
	return token, found && token != ""
}

func (a *Authenticator) toStore(ctx context.Context, token string) {
	if a.store == nil {
		return
	}
	if err := a.store.Set(ctx, a.storeKey(), token); err != nil {
		a.logger.Warn("Failed to share token", zap.Error(err))
	}
}

// storeKey identifies the account without exposing its secrets
func (a *Authenticator) storeKey() string {
	sum := sha256.Sum256([]byte(a.config.APIKey + "\x00" + a.config.Username))
	return hex.EncodeToString(sum[:16])
}
