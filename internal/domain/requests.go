package domain

import (
	"fmt"
	"strings"
	"time"
)

type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"max=50"`
	Username        string `json:"username" validate:"qs_username"`
	Email           string `json:"email" validate:"qs_email"`
	Phone           string `json:"phone" validate:"qs_phone"`
	Password        string `json:"password" validate:"qs_password"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

func (r *RegisterRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = NormalizePhone(r.Phone)
}

func (r *RegisterRequest) Validate() error { return ValidateStruct(r) }

type LoginRequest struct {
	Email    string `json:"email" validate:"qs_email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() { r.Email = NormalizeEmail(r.Email) }

func (r *LoginRequest) Validate() error { return ValidateStruct(r) }

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *UserProfile `json:"user"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitnil,min=1,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitnil,max=50"`
	Phone     *string `json:"phone,omitempty" validate:"omitnil,qs_phone"`
}

func (r *UpdateProfileRequest) Normalize() {
	if r.FirstName != nil {
		v := strings.TrimSpace(*r.FirstName)
		r.FirstName = &v
	}
	if r.LastName != nil {
		v := strings.TrimSpace(*r.LastName)
		r.LastName = &v
	}
	if r.Phone != nil {
		v := NormalizePhone(*r.Phone)
		r.Phone = &v
	}
}

func (r *UpdateProfileRequest) Validate() error { return ValidateStruct(r) }

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"qs_password"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=NewPassword"`
}

func (r *ChangePasswordRequest) Validate() error { return ValidateStruct(r) }

// ForgotPasswordRequest starts credential recovery.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"qs_email"`
}

func (r *ForgotPasswordRequest) Normalize() { r.Email = NormalizeEmail(r.Email) }

func (r *ForgotPasswordRequest) Validate() error { return ValidateStruct(r) }

type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required"`
}

func (r *VerifyOTPRequest) Normalize() { r.OTP = strings.TrimSpace(r.OTP) }

// Validate checks the code is exactly length digits.
func (r *VerifyOTPRequest) Validate(length int) error {
	if err := ValidateStruct(r); err != nil {
		return err
	}
	if !IsOTPFormat(r.OTP, length) {
		return NewValidationError("otp", fmt.Sprintf("OTP must be %d digits", length))
	}
	return nil
}

type ResetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"qs_password"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=NewPassword"`
}

func (r *ResetPasswordRequest) Validate() error { return ValidateStruct(r) }

type CreateBookingRequest struct {
	RoomID      int64  `json:"room_id" validate:"required,gte=1"`
	CheckIn     string `json:"check_in" validate:"required"`
	CheckOut    string `json:"check_out" validate:"required"`
	GuestsCount int    `json:"guests_count" validate:"gte=1"`
}

func (r *CreateBookingRequest) Normalize() {
	r.CheckIn = strings.TrimSpace(r.CheckIn)
	r.CheckOut = strings.TrimSpace(r.CheckOut)
	if r.GuestsCount == 0 {
		r.GuestsCount = 1
	}
}

func (r *CreateBookingRequest) Validate() error { return ValidateStruct(r) }

// Dates parses both dates; call after Validate.
func (r *CreateBookingRequest) Dates() (time.Time, time.Time, error) {
	in, err := ParseDate("check_in", r.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := ParseDate("check_out", r.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

type RejectBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r *RejectBookingRequest) Validate() error { return ValidateStruct(r) }

type CreateRoomRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	RoomType      string   `json:"room_type" validate:"required,oneof=standard deluxe premium family"`
	Description   string   `json:"description"`
	PricePerNight float64  `json:"price_per_night" validate:"gte=0"`
	MaxGuests     int      `json:"max_guests" validate:"gte=1,lte=20"`
	RoomSize      string   `json:"room_size" validate:"max=50"`
	Amenities     []string `json:"amenities"`
	Image         string   `json:"image" validate:"max=255"`
}

func (r *CreateRoomRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.RoomType = strings.ToLower(strings.TrimSpace(r.RoomType))
	if r.MaxGuests == 0 {
		r.MaxGuests = 2
	}
}

func (r *CreateRoomRequest) Validate() error { return ValidateStruct(r) }

type UpdateRoomStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available booked maintenance"`
}

func (r *UpdateRoomStatusRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *UpdateRoomStatusRequest) Validate() error { return ValidateStruct(r) }

type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (r *CreateReviewRequest) Normalize() { r.Comment = strings.TrimSpace(r.Comment) }

func (r *CreateReviewRequest) Validate() error {
	if err := ValidateRating(r.Rating); err != nil {
		return err
	}
	return ValidateStruct(r)
}
