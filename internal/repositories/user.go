package repositories

import (
	"fmt"

	"findr/internal/models"

	"gorm.io/gorm"
)

// UserStore covers the narrow slice of user state the core mutates.
type UserStore interface {
	GetUser(id uint) (*models.User, error)
	MarkUserBanned(id uint) error
}

func (s *store) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *store) MarkUserBanned(id uint) error {
	result := s.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"banned": true, "status": "banned"})
	if result.Error != nil {
		return fmt.Errorf("failed to mark user %d banned: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
