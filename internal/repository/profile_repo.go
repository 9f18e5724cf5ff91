package repository

import (
	"context"
	"fmt"
	"time"

	"go-contact-api/internal/database"
	"go-contact-api/internal/model"
)

type ProfileRepository struct {
	db database.Querier
}

func NewProfileRepository(db database.Querier) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	err := database.Executor(ctx, r.db).QueryRow(ctx,
		`INSERT INTO profiles (uuid, user_id, phone, profile, profile_photo_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING id, created_at, updated_at`,
		p.UUID, p.UserID, p.Phone, p.Profile, p.ProfilePhotoPath, time.Now().UTC()).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}
