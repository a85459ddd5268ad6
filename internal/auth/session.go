// Package auth wraps the remote client's session handling and tracks the
// uploader identity tied to the signed-in user.
package auth

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/models"
	"github.com/picvault/picvault/internal/remote"
)

// Session is the authentication state for the running application.
type Session struct {
	client *remote.Client

	mu       sync.RWMutex
	uploader *models.Uploader
}

// NewSession creates a session over the given remote client.
func NewSession(client *remote.Client) *Session {
	return &Session{client: client}
}

// Valid reports whether a user is signed in.
func (s *Session) Valid() bool {
	return s.client.AuthValid()
}

// User returns the signed-in user record, or nil.
func (s *Session) User() *models.User {
	return s.client.AuthUser()
}

// Uploader returns the uploader record owned by the signed-in user, or nil
// when the user has none (or nobody is signed in).
func (s *Session) Uploader() *models.Uploader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploader
}

// Login authenticates with the remote store and resolves the user's
// uploader identity.
func (s *Session) Login(ctx context.Context, identity, password string) error {
	if _, err := s.client.AuthWithPassword(ctx, identity, password); err != nil {
		return err
	}
	s.refreshUploader(ctx)
	return nil
}

// Register creates a user account and immediately signs it in.
func (s *Session) Register(ctx context.Context, email, password, passwordConfirm string) error {
	body := map[string]string{
		"email":           email,
		"password":        password,
		"passwordConfirm": passwordConfirm,
	}
	if _, err := remote.Create[models.User](ctx, s.client, remote.CollectionUsers, body); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	return s.Login(ctx, email, password)
}

// Logout drops the session and the cached uploader.
func (s *Session) Logout() {
	s.client.ClearAuth()
	s.mu.Lock()
	s.uploader = nil
	s.mu.Unlock()
}

// refreshUploader looks up the uploader record owned by the current user.
// Failure is logged and leaves the uploader unset; uploads are simply not
// attributed until the next login.
func (s *Session) refreshUploader(ctx context.Context) {
	user := s.client.AuthUser()
	if user == nil {
		return
	}

	result, err := remote.GetList[models.Uploader](ctx, s.client, remote.CollectionUploaders, 1, 50, remote.ListOptions{
		Filter: fmt.Sprintf("user=%q", user.ID),
	})
	if err != nil {
		log.Errorf("Failed to fetch uploader details: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(result.Items) > 0 {
		s.uploader = &result.Items[0]
	} else {
		s.uploader = nil
	}
}
