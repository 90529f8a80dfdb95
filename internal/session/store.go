package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stagedesk/internal/ids"
	"stagedesk/internal/models"
	"stagedesk/internal/security"
)

var ErrNoStoredSession = errors.New("no stored session")

// Store maps browser cookie ids to platform token bundles. Refresh tokens
// are sealed at rest.
type Store struct {
	client *redis.Client
	sealer *security.Sealer
	ttl    time.Duration
}

func NewStore(client *redis.Client, sealer *security.Sealer, ttl time.Duration) *Store {
	return &Store{client: client, sealer: sealer, ttl: ttl}
}

func key(sid string) string {
	return "sess:" + sid
}

// Save persists the session under a fresh cookie id and returns it.
func (s *Store) Save(ctx context.Context, sess models.Session) (string, error) {
	sid := ids.New()
	if err := s.Update(ctx, sid, sess); err != nil {
		return "", err
	}
	return sid, nil
}

// Update overwrites the token bundle behind an existing cookie id.
func (s *Store) Update(ctx context.Context, sid string, sess models.Session) error {
	sealed, err := s.sealer.Seal(sess.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	fields := map[string]any{
		"access_token":   sess.AccessToken,
		"refresh_sealed": sealed,
		"token_type":     sess.TokenType,
		"expires_at":     sess.ExpiresAt.Unix(),
		"user_id":        sess.UserID,
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key(sid), fields)
	pipe.Expire(ctx, key(sid), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sid string) (models.Session, error) {
	fields, err := s.client.HGetAll(ctx, key(sid)).Result()
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return models.Session{}, ErrNoStoredSession
	}

	refreshToken, err := s.sealer.Open(fields["refresh_sealed"])
	if err != nil {
		return models.Session{}, fmt.Errorf("unseal refresh token: %w", err)
	}

	expiresUnix, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return models.Session{}, fmt.Errorf("parse expires_at: %w", err)
	}

	return models.Session{
		AccessToken:  fields["access_token"],
		RefreshToken: refreshToken,
		TokenType:    fields["token_type"],
		ExpiresAt:    time.Unix(expiresUnix, 0),
		UserID:       fields["user_id"],
	}, nil
}

func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, key(sid)).Err()
}
