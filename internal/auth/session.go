package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token of the signed-in user on the client side.
// The signature is not checked here; the backend does that on every call.
type Session struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewSession returns a session holding token, which may be empty.
func NewSession(token string) *Session {
	return &Session{token: token, now: time.Now}
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear signs the user out.
func (s *Session) Clear() { s.SetToken("") }

// Token returns the raw bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser implements remote.Authenticator. No token, or an expired one,
// means no session. A malformed token is an error.
func (s *Session) CurrentUser(ctx context.Context) (remote.Identity, bool, error) {
	token := s.Token()
	if token == "" {
		return remote.Identity{}, false, nil
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return remote.Identity{}, false, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return remote.Identity{}, false, common.ErrInvalidToken
	}
	if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
		return remote.Identity{}, false, nil
	}

	return claims.Identity(), true, nil
}
