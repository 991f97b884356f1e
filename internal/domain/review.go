package domain

import "time"

type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return NewValidationError("rating", "Rating must be between 1 and 5")
	}
	return nil
}
