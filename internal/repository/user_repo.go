package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medibook-server/internal/apperrors"
	"medibook-server/internal/models"
)

// UserRepository reads the identity records referenced by appointments.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetDoctor(ctx context.Context, id string) (*models.User, error)
	DoctorProfiles(ctx context.Context, userIDs []string) (map[string]models.DoctorProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetDoctor(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, models.RoleDoctor).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("doctor")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DoctorProfiles returns the profiles of the given doctors keyed by user id.
// Doctors without a profile are absent from the map.
func (r *userRepository) DoctorProfiles(ctx context.Context, userIDs []string) (map[string]models.DoctorProfile, error) {
	out := make(map[string]models.DoctorProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []models.DoctorProfile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}
