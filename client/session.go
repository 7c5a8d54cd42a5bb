package client

import (
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/user"
)

var ErrInvalidToken = errors.New("invalid session token")

// Identity is who the session token was issued to.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Role      user.Role
	ExpiresAt time.Time
}

func (id *Identity) IsMentor() bool  { return id != nil && id.Role == user.RoleMentor }
func (id *Identity) IsStudent() bool { return id != nil && id.Role == user.RoleStudent }

type tokenClaims struct {
	jwt.StandardClaims
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
	Role  user.Role `json:"role,omitempty"`
}

// Session holds the bearer token of the signed in user. The server verifies the signature;
// the session only checks the claims it relies on.
type Session struct {
	mu      sync.RWMutex
	token   string
	current *Value[*Identity]
	now     func() time.Time
}

func NewSession() *Session {
	return &Session{current: NewValue[*Identity](nil), now: time.Now}
}

// Start validates token and makes it the current session.
func (s *Session) Start(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	var claims tokenClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	if !claims.Role.Valid() {
		return nil, errors.Wrapf(ErrInvalidToken, "unknown role %q", claims.Role)
	}
	id := &Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if claims.ExpiresAt > 0 {
		id.ExpiresAt = time.Unix(claims.ExpiresAt, 0)
		if !s.now().Before(id.ExpiresAt) {
			return nil, errors.Wrap(ErrInvalidToken, "token has expired")
		}
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.current.Set(id)
	return id, nil
}

func (s *Session) End() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.current.Set(nil)
}

// Token returns the current bearer token, or ErrNoSession if there is none or it expired.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return "", ErrNoSession
	}
	if id := s.current.Get(); id != nil && !id.ExpiresAt.IsZero() && !s.now().Before(id.ExpiresAt) {
		return "", errors.Wrap(ErrNoSession, "token has expired")
	}
	return token, nil
}

// Current publishes the signed in identity, nil when signed out.
func (s *Session) Current() Observable[*Identity] {
	return s.current
}
