// Package auth persists each session's bearer credentials under fixed keys,
// the way the observed client keeps them in browser storage. Token contents
// are opaque here; decoding stays with the issuing service.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrNoCredential = errors.New("no stored credential for session")

// Credentials is the persisted access/refresh pair plus the decoded
// identity fields the front end keeps alongside them.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Role         string `json:"role,omitempty"`
	Email        string `json:"email,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// field names mirror the storage keys of the observed client
var fields = []string{"access_token", "refresh_token", "role", "email", "id"}

func credentialKey(sessionID string) string {
	return fmt.Sprintf("auth:%s", sessionID)
}

// Get returns the stored credentials; ErrNoCredential when the session has
// never logged in (or logged out). No expiry is enforced here.
func (s *Store) Get(ctx context.Context, sessionID string) (*Credentials, error) {
	vals, err := s.client.HMGet(ctx, credentialKey(sessionID), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget failed: %w", err)
	}

	str := func(i int) string {
		if v, ok := vals[i].(string); ok {
			return v
		}
		return ""
	}

	c := &Credentials{
		AccessToken:  str(0),
		RefreshToken: str(1),
		Role:         str(2),
		Email:        str(3),
		UserID:       str(4),
	}
	if c.AccessToken == "" {
		return nil, ErrNoCredential
	}
	return c, nil
}

// Set stores the credentials for a session.
func (s *Store) Set(ctx context.Context, sessionID string, c *Credentials) error {
	if c == nil || c.AccessToken == "" {
		return errors.New("access token is required")
	}

	err := s.client.HSet(ctx, credentialKey(sessionID),
		"access_token", c.AccessToken,
		"refresh_token", c.RefreshToken,
		"role", c.Role,
		"email", c.Email,
		"id", c.UserID,
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

// Clear removes the credentials; the logout path.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, credentialKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
