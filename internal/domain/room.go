package domain

import (
	"math"
	"strings"
	"time"
)

type RoomType string

const (
	RoomStandard RoomType = "standard"
	RoomDeluxe   RoomType = "deluxe"
	RoomPremium  RoomType = "premium"
	RoomFamily   RoomType = "family"
)

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomBooked      RoomStatus = "booked"
	RoomMaintenance RoomStatus = "maintenance"
)

type Room struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	RoomType      RoomType   `json:"room_type"`
	Description   string     `json:"description"`
	PricePerNight float64    `json:"price_per_night"`
	MaxGuests     int        `json:"max_guests"`
	RoomSize      string     `json:"room_size"`
	Amenities     string     `json:"-"`
	Image         string     `json:"image"`
	Status        RoomStatus `json:"status"`
	Rating        float64    `json:"rating"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (r *Room) AmenitiesList() []string {
	if strings.TrimSpace(r.Amenities) == "" {
		return []string{}
	}
	parts := strings.Split(r.Amenities, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) SetAmenitiesList(amenities []string) {
	clean := make([]string, 0, len(amenities))
	for _, a := range amenities {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	r.Amenities = strings.Join(clean, ",")
}

func (r *Room) IsAvailable() bool { return r.Status == RoomAvailable }

func (r *Room) IsUnderMaintenance() bool { return r.Status == RoomMaintenance }

// AverageRating is the mean of ratings rounded to one decimal, or 0 with no ratings.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	return math.Round(float64(total)/float64(len(ratings))*10) / 10
}

func ParseRoomType(s string) (RoomType, bool) {
	switch t := RoomType(strings.ToLower(strings.TrimSpace(s))); t {
	case RoomStandard, RoomDeluxe, RoomPremium, RoomFamily:
		return t, true
	}
	return "", false
}

func ParseRoomStatus(s string) (RoomStatus, bool) {
	switch st := RoomStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RoomAvailable, RoomBooked, RoomMaintenance:
		return st, true
	}
	return "", false
}

type RoomFilter struct {
	Status   *RoomStatus
	RoomType *RoomType
	Limit    int
	Offset   int
}

type RoomDTO struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	RoomType      RoomType   `json:"room_type"`
	Description   string     `json:"description"`
	PricePerNight float64    `json:"price_per_night"`
	MaxGuests     int        `json:"max_guests"`
	RoomSize      string     `json:"room_size"`
	Amenities     []string   `json:"amenities"`
	Image         string     `json:"image"`
	Status        RoomStatus `json:"status"`
	Rating        float64    `json:"rating"`
}

func (r *Room) ToDTO() RoomDTO {
	return RoomDTO{
		ID:            r.ID,
		Name:          r.Name,
		RoomType:      r.RoomType,
		Description:   r.Description,
		PricePerNight: r.PricePerNight,
		MaxGuests:     r.MaxGuests,
		RoomSize:      r.RoomSize,
		Amenities:     r.AmenitiesList(),
		Image:         r.Image,
		Status:        r.Status,
		Rating:        r.Rating,
	}
}

type Availability struct {
	RoomID     int64   `json:"room_id"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Available  bool    `json:"available"`
	Nights     int     `json:"nights"`
	TotalPrice float64 `json:"total_price"`
}
