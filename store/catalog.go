package store

import (
	"errors"

	"bookhub-backend/models"
	"bookhub-backend/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) GetUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetService(id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := s.db.First(&svc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &svc, nil
}

func (s *Store) ActivePolicy(serviceID uuid.UUID, policyType string) (*models.BookingPolicy, error) {
	var policy models.BookingPolicy
	err := s.db.Where("service_id = ? AND type = ? AND active = true", serviceID, policyType).
		First(&policy).Error
	if err != nil {
		return nil, translate(err)
	}
	return &policy, nil
}

// translate maps gorm errors onto the service-level taxonomy.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrNotFound
	}
	return err
}
