// Package oauth supplies per-user token sources for the Fitbit Web
// API, refreshing and rotating stored tokens as needed.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	shared "github.com/pulseboard/server/pkg"
)

const fitbitTokenURL = "https://api.fitbit.com/oauth2/token"

// ErrNotLinked marks users whose Fitbit integration is absent or
// disabled. Handlers map it to 403.
var ErrNotLinked = errors.New("fitbit not linked/enabled")

// Token is the OAuth token triple we care about.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenSource returns a valid token.
// It is safe for concurrent use by multiple goroutines.
type TokenSource interface {
	Token(context.Context) (*Token, error)
	ForceRefresh(context.Context) (*Token, error)
}

// ClientCredentials identifies this application to Fitbit's token
// endpoint. Fitbit wants them as Basic auth, not form fields.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

func (c ClientCredentials) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  fitbitTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// FirestoreTokenSource reads tokens from the user document and
// refreshes them when expired or on demand, persisting rotations.
type FirestoreTokenSource struct {
	db    shared.Database
	creds ClientCredentials
	userID string
	mu     sync.Mutex
}

func NewFirestoreTokenSource(db shared.Database, creds ClientCredentials, userID string) *FirestoreTokenSource {
	return &FirestoreTokenSource{
		db:     db,
		creds:  creds,
		userID: userID,
	}
}

// Token returns the stored token, refreshing proactively when it has
// expired or expires within the next minute.
func (s *FirestoreTokenSource) Token(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fitbit, err := s.loadIntegration(ctx)
	if err != nil {
		return nil, err
	}

	if fitbit.AccessToken == "" {
		return nil, fmt.Errorf("missing access token: %w", ErrNotLinked)
	}
	if fitbit.RefreshToken == "" {
		return nil, fmt.Errorf("missing refresh token: %w", ErrNotLinked)
	}

	if !fitbit.ExpiresAt.IsZero() && time.Now().Add(1*time.Minute).After(fitbit.ExpiresAt) {
		return s.refresh(ctx, fitbit.RefreshToken)
	}

	return &Token{
		AccessToken:  fitbit.AccessToken,
		RefreshToken: fitbit.RefreshToken,
		Expiry:       fitbit.ExpiresAt,
	}, nil
}

// ForceRefresh refreshes the token regardless of expiry. Used after an
// upstream 401, which means the stored access token is already dead.
func (s *FirestoreTokenSource) ForceRefresh(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fitbit, err := s.loadIntegration(ctx)
	if err != nil {
		return nil, err
	}
	if fitbit.RefreshToken == "" {
		return nil, fmt.Errorf("missing refresh token: %w", ErrNotLinked)
	}

	return s.refresh(ctx, fitbit.RefreshToken)
}

func (s *FirestoreTokenSource) loadIntegration(ctx context.Context) (*fitbitIntegration, error) {
	user, err := s.db.GetUser(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", s.userID)
	}
	if user.Integrations == nil || user.Integrations.Fitbit == nil || !user.Integrations.Fitbit.Enabled {
		return nil, ErrNotLinked
	}
	f := user.Integrations.Fitbit
	return &fitbitIntegration{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		ExpiresAt:    f.ExpiresAt,
	}, nil
}

type fitbitIntegration struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// refresh exchanges the refresh token and persists the rotated pair.
// Fitbit rotates refresh tokens on every exchange; losing the write
// would strand the user, so persistence failure fails the refresh.
func (s *FirestoreTokenSource) refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := s.creds.config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	newRefreshToken := tok.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	err = s.db.UpdateUserIntegration(ctx, s.userID, map[string]interface{}{
		"access_token":  tok.AccessToken,
		"refresh_token": newRefreshToken,
		"expires_at":    tok.Expiry,
		"last_used_at":  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist new tokens: %w", err)
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: newRefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

