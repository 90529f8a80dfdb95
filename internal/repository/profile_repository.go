package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stagedesk/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository writes the profile rows that accompany platform
// identities. Identity creation and profile insertion are separate steps
// with no shared transaction.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Create(ctx context.Context, profile models.Profile) error {
	const query = `
		INSERT INTO profiles (
			user_id, display_name, company, avatar_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.Company,
		profile.AvatarURL,
	)
	return err
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (models.Profile, error) {
	const query = `
		SELECT user_id, display_name, company, avatar_url, created_at, updated_at
		FROM profiles WHERE user_id = $1
	`

	row := r.pool.QueryRow(ctx, query, userID)
	var profile models.Profile
	if err := row.Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Company,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, userID string, avatarURL string) error {
	const query = `
		UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, userID, avatarURL)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) UpdateDisplayName(ctx context.Context, userID string, displayName string) error {
	const query = `
		UPDATE profiles SET display_name = $2, updated_at = NOW() WHERE user_id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, userID, displayName)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
