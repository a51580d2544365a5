package handler

import (
	"time"

	"markers-api/internal/platform/validate"
	"markers-api/internal/security"
	"markers-api/internal/user/domain"
)

// UserResponse is the public JSON form of a user. The password hash is never part of it.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SummaryResponse is the owner projection embedded in marker responses.
type SummaryResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

// NewUserResponse maps u to its public form.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewSummaryResponse maps s to its public form.
func NewSummaryResponse(s domain.Summary) SummaryResponse {
	return SummaryResponse{ID: s.ID, Name: s.Name, Email: s.Email, Avatar: s.Avatar}
}

func newUserResponses(users []*domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// ValidateName checks the display name rules shared by registration and profile updates.
func ValidateName(name string) error {
	return validate.Length("name", name, 2, 50, "Name must be between 2 and 50 characters")
}

// ValidatePassword checks a new password: 6 to 100 characters and within the bcrypt input limit.
func ValidatePassword(field, password string) error {
	return validate.First(
		validate.RuneLength(field, password, 6, 100, "Password must be between 6 and 100 characters"),
		validate.ByteLength(field, password, 0, security.MaxPasswordBytes, "Password must be at most 72 bytes"),
	)
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (r updateProfileRequest) validate() error {
	if r.Name != nil {
		if err := ValidateName(*r.Name); err != nil {
			return err
		}
	}
	if r.Avatar != nil {
		if err := validate.URI("avatar", *r.Avatar, "Avatar must be a valid URL"); err != nil {
			return err
		}
	}
	return nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r changePasswordRequest) validate() error {
	return validate.First(
		validate.Required("currentPassword", r.CurrentPassword, "Current password is required"),
		ValidatePassword("newPassword", r.NewPassword),
		ValidatePassword("confirmPassword", r.ConfirmPassword),
	)
}
