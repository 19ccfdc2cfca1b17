package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleExecutor Role = "executor"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleExecutor || r == RoleCustomer
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:150;not null;uniqueIndex:uq_users_username"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:uq_users_email"`
	Phone        *string   `gorm:"size:16;uniqueIndex:uq_users_phone"`
	FirstName    string    `gorm:"size:150;not null"`
	LastName     string    `gorm:"size:150;not null"`
	Role         Role      `gorm:"size:16;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	AvatarPath   string    `gorm:"size:255;not null"`
	IsActive     bool      `gorm:"not null"`
	IsStaff      bool      `gorm:"not null"`
	Rating       *float64
	Profile      PublicProfile `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }

// FullName falls back to the username when no name is set.
func (u User) FullName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full == "" {
		return u.Username
	}
	return full
}

func (u User) Card() UserCard {
	return UserCard{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName(),
		AvatarPath: u.AvatarPath,
		Rating:     u.Rating,
		Role:       u.Role,
	}
}

// UserCard is the public subset of a user shown next to jobs and proposals.
type UserCard struct {
	ID         uuid.UUID
	Username   string
	FullName   string
	AvatarPath string
	Rating     *float64
	Role       Role
}

type AvailabilityStatus string

const (
	AvailabilityOpen    AvailabilityStatus = "open"
	AvailabilityPartial AvailabilityStatus = "partial"
	AvailabilityBusy    AvailabilityStatus = "busy"
)

type RateType string

const (
	RateHour    RateType = "hour"
	RateProject RateType = "project"
)

// PublicProfile is the questionnaire shown on a user's public page.
type PublicProfile struct {
	Title        string              `json:"title"`
	Bio          string              `json:"bio"`
	Location     string              `json:"location"`
	Gender       string              `json:"gender"`
	Education    string              `json:"education"`
	Status       AvailabilityStatus  `json:"status"`
	Categories   []string            `json:"categories"`
	Skills       []string            `json:"skills"`
	RateType     RateType            `json:"rate_type"`
	HourlyRate   *int64              `json:"hourly_rate"`
	ProjectRate  *int64              `json:"project_rate"`
	Availability bool                `json:"availability"`
	Links        []map[string]string `json:"links"`
	Socials      map[string]string   `json:"socials"`
	Portfolio    []map[string]string `json:"portfolio"`
	BusyDates    []string            `json:"busy_dates"`
}

func DefaultPublicProfile() PublicProfile {
	return PublicProfile{
		Status:       AvailabilityOpen,
		Categories:   []string{},
		Skills:       []string{},
		RateType:     RateHour,
		Availability: true,
		Links:        []map[string]string{},
		Socials:      map[string]string{},
		Portfolio:    []map[string]string{},
		BusyDates:    []string{},
	}
}

func (p PublicProfile) Value() (driver.Value, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (p *PublicProfile) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return err
	}
	profile := DefaultPublicProfile()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &profile); err != nil {
			return err
		}
	}
	*p = profile
	return nil
}
