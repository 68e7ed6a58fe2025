package catalog

import (
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/slots"
)

// Service is a bookable salon treatment.
type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration"`
	ImageURL        *string   `json:"image_url"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// SlotService projects the fields the slot allocator needs.
func (s Service) SlotService() slots.Service {
	return slots.Service{
		ID:              s.ID,
		Name:            s.Name,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
	}
}

// SlotServices projects a list of services.
func SlotServices(in []Service) []slots.Service {
	out := make([]slots.Service, len(in))
	for i, s := range in {
		out[i] = s.SlotService()
	}
	return out
}

// ServiceInput is the admin create/update payload.
type ServiceInput struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration"`
	ImageURL        *string `json:"image_url"`
	IsActive        *bool   `json:"is_active"`
}

// Validate checks required fields and positive price and duration.
func (in *ServiceInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Price <= 0 {
		return ErrInvalidPrice
	}
	if in.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		in.Description = nil
	}
	return nil
}

func (in *ServiceInput) active() bool {
	if in.IsActive == nil {
		return true
	}
	return *in.IsActive
}
