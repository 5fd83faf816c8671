package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the locally cached account profile.
type User struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenFile struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Session is the injected credential/user provider. It holds the current
// token and profile in memory and optionally persists them to a file so a
// login survives process restarts. An empty path disables persistence.
type Session struct {
	mu    sync.Mutex
	path  string
	token string
	user  User
}

func NewSession(path string) *Session {
	return &Session{path: path}
}

// Restore loads a previously persisted credential. A missing file is not an
// error; a corrupt file is reported but leaves the session unauthenticated.
func (s *Session) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read token file: %w", err)
	}

	var stored tokenFile
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode token file: %w", err)
	}

	s.token = stored.Token
	s.user = stored.User
	return nil
}

// Login stores the issued credential and profile, persisting them if a path
// is configured.
func (s *Session) Login(token string, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = user

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(tokenFile{Token: token, User: user})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Logout discards the credential and removes the persisted copy.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = User{}

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// Credential returns the current token, or "" when no token is held or the
// held token is a JWT whose expiry has passed. An expired credential is
// indistinguishable from an absent one to callers, which routes them to the
// login flow without a doomed network call.
func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || tokenExpired(s.token, time.Now()) {
		return ""
	}
	return s.token
}

// User returns the cached profile and whether a usable credential is held.
func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.token != "" && !tokenExpired(s.token, time.Now())
	return s.user, ok
}

// tokenExpired inspects the token's exp claim without verifying its
// signature; verification is the server's job. Opaque (non-JWT) tokens and
// JWTs without an exp claim are never considered expired client-side.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
