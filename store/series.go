package store

import (
	"bookhub-backend/models"

	"github.com/google/uuid"
)

func (s *Store) GetSeries(id uuid.UUID) (*models.RecurringSeries, error) {
	var series models.RecurringSeries
	if err := s.db.First(&series, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &series, nil
}

func (s *Store) SaveSeries(series *models.RecurringSeries) error {
	return s.db.Save(series).Error
}

func (s *Store) SeriesBookings(seriesID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.Where("series_id = ?", seriesID).
		Order("booking_date, start_minute").
		Find(&bookings).Error
	return bookings, err
}

func (s *Store) OpenEndedSeries() ([]models.RecurringSeries, error) {
	var list []models.RecurringSeries
	err := s.db.Where("status = ? AND end_date IS NULL AND occurrences IS NULL", models.SeriesActive).
		Find(&list).Error
	return list, err
}
