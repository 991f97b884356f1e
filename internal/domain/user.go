package domain

import (
	"crypto/subtle"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int64      `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	OTPCode      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) IsBlocked() bool { return !u.IsActive }

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// DisplayName is used to greet the user in emails.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName()); name != "" {
		return name
	}
	return u.Username
}

// ProfileCompletion is the percentage of filled profile fields.
func (u *User) ProfileCompletion() int {
	fields := []string{u.FirstName, u.LastName, u.Username, u.Email, u.Phone}
	filled := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return filled * 100 / len(fields)
}

// SetOTP stores code with an expiry of now+ttl, replacing any previous code.
func (u *User) SetOTP(code string, now time.Time, ttl time.Duration) {
	expires := now.Add(ttl)
	u.OTPCode = &code
	u.OTPExpiresAt = &expires
}

// VerifyOTP is true while now is not after the expiry and the codes match.
func (u *User) VerifyOTP(code string, now time.Time) bool {
	if u.OTPCode == nil || u.OTPExpiresAt == nil {
		return false
	}
	if now.After(*u.OTPExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*u.OTPCode), []byte(code)) == 1
}

func (u *User) ClearOTP() {
	u.OTPCode = nil
	u.OTPExpiresAt = nil
}

type UserProfile struct {
	ID                int64     `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	FullName          string    `json:"full_name"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Role              string    `json:"role"`
	IsActive          bool      `json:"is_active"`
	ProfileCompletion int       `json:"profile_completion"`
	CreatedAt         time.Time `json:"created_at"`
}

func (u *User) ToProfile() *UserProfile {
	return &UserProfile{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		FullName:          u.FullName(),
		Username:          u.Username,
		Email:             u.Email,
		Phone:             u.Phone,
		Role:              u.Role,
		IsActive:          u.IsActive,
		ProfileCompletion: u.ProfileCompletion(),
		CreatedAt:         u.CreatedAt,
	}
}
