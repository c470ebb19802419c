package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants
const (
	RoleOwner      = "owner"
	RoleAccountant = "accountant"
)

// User is an owner or accountant able to sign in
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	Role      string         `gorm:"type:varchar(20);not null" json:"role"` // owner, accountant
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// ActingUser identifies who performs an operation. Handlers build it from the
// verified token and pass it into every service call.
type ActingUser struct {
	ID   uuid.UUID
	Role string
}

func (a ActingUser) IsOwner() bool { return a.Role == RoleOwner }

// UserRef returns the id as a nullable foreign key.
func (a ActingUser) UserRef() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

// IsValidRole reports whether role is one of the supported roles.
func IsValidRole(role string) bool {
	return role == RoleOwner || role == RoleAccountant
}
