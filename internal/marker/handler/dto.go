package handler

import (
	"strings"
	"time"

	"markers-api/internal/marker/domain"
	"markers-api/internal/marker/service"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/validate"
	userhandler "markers-api/internal/user/handler"
)

// MarkerResponse is the public JSON form of a marker with its owner.
type MarkerResponse struct {
	ID          string                       `json:"id"`
	Title       string                       `json:"title"`
	Description *string                      `json:"description"`
	Latitude    float64                      `json:"latitude"`
	Longitude   float64                      `json:"longitude"`
	Address     *string                      `json:"address"`
	ImageURL    *string                      `json:"imageUrl"`
	UserID      string                       `json:"userId"`
	CreatedAt   time.Time                    `json:"createdAt"`
	UpdatedAt   time.Time                    `json:"updatedAt"`
	User        *userhandler.SummaryResponse `json:"user,omitempty"`
}

func newMarkerResponse(m *domain.Marker) MarkerResponse {
	resp := MarkerResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Address:     m.Address,
		ImageURL:    m.ImageURL,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Owner != nil {
		owner := userhandler.NewSummaryResponse(*m.Owner)
		resp.User = &owner
	}
	return resp
}

func newMarkerResponses(markers []*domain.Marker) []MarkerResponse {
	out := make([]MarkerResponse, 0, len(markers))
	for _, m := range markers {
		out = append(out, newMarkerResponse(m))
	}
	return out
}

type createMarkerRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     *string  `json:"address"`
	ImageURL    *string  `json:"imageUrl"`
}

func (r createMarkerRequest) validate() error {
	if r.Latitude == nil {
		return apperr.Validation("latitude", "Latitude is required")
	}
	if r.Longitude == nil {
		return apperr.Validation("longitude", "Longitude is required")
	}
	return validate.First(
		validateTitle(r.Title),
		validateOptional(r.Description, r.Address, r.ImageURL),
		validateLatitude(*r.Latitude),
		validateLongitude(*r.Longitude),
	)
}

func (r createMarkerRequest) input() service.CreateInput {
	return service.CreateInput{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		Address:     r.Address,
		ImageURL:    r.ImageURL,
	}
}

type updateMarkerRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     *string  `json:"address"`
	ImageURL    *string  `json:"imageUrl"`
}

func (r updateMarkerRequest) validate() error {
	var errs []error
	if r.Title != nil {
		errs = append(errs, validateTitle(*r.Title))
	}
	errs = append(errs, validateOptional(r.Description, r.Address, r.ImageURL))
	if r.Latitude != nil {
		errs = append(errs, validateLatitude(*r.Latitude))
	}
	if r.Longitude != nil {
		errs = append(errs, validateLongitude(*r.Longitude))
	}
	return validate.First(errs...)
}

func (r updateMarkerRequest) patch() service.Patch {
	p := service.Patch{
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Address:     r.Address,
		ImageURL:    r.ImageURL,
	}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		p.Title = &title
	}
	return p
}

func validateTitle(title string) error {
	return validate.Length("title", title, 1, 100, "Title must be between 1 and 100 characters")
}

func validateLatitude(v float64) error {
	return validate.Range("latitude", v, -90, 90, "Latitude must be between -90 and 90")
}

func validateLongitude(v float64) error {
	return validate.Range("longitude", v, -180, 180, "Longitude must be between -180 and 180")
}

func validateOptional(description, address, imageURL *string) error {
	if description != nil {
		if err := validate.Length("description", *description, 0, 500, "Description must be at most 500 characters"); err != nil {
			return err
		}
	}
	if address != nil {
		if err := validate.Length("address", *address, 0, 255, "Address must be at most 255 characters"); err != nil {
			return err
		}
	}
	if imageURL != nil {
		if err := validate.URI("imageUrl", *imageURL, "Image URL must be a valid URL"); err != nil {
			return err
		}
	}
	return nil
}
