package models

import (
	"slices"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User owns no collections. Events and enrollments point back at it by id and
// are listed through queries.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Username     string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Roles        []string  `gorm:"serializer:json;type:text;not null" json:"roles"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

type Event struct {
	ID                  uint      `gorm:"primarykey" json:"id"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	Title               string    `gorm:"size:255;not null" json:"title"`
	Description         string    `gorm:"size:1000;not null" json:"description"`
	DescriptionMarkdown string    `gorm:"type:text" json:"descriptionMarkdown,omitempty"`
	ImageURL            string    `gorm:"size:1024" json:"imageUrl,omitempty"`
	ImageKey            string    `gorm:"size:1024" json:"-"`
	EventTime           time.Time `gorm:"not null" json:"eventTime"`
	// Capacity nil means unlimited.
	Capacity *int  `json:"capacity"`
	Hidden   bool  `gorm:"not null;default:false;index" json:"hidden"`
	OwnerID  uint  `gorm:"not null;index" json:"ownerId"`
	Owner    *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Enrollment holds weak references to its user and event. The composite
// unique index is the storage-level guard against double enrollment.
type Enrollment struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	EnrolledAt time.Time `gorm:"not null" json:"enrollmentTime"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_enrollments_user_event,priority:1" json:"userId"`
	EventID    uint      `gorm:"not null;uniqueIndex:idx_enrollments_user_event,priority:2;index" json:"eventId"`
	User       *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Event      *Event    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
