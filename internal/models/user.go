package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// User is the local projection of an identity issued elsewhere. Only the
// fields needed for audience resolution and role checks are kept.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Email       string    `json:"email" gorm:"uniqueIndex"`
	Role        Role      `json:"role" gorm:"size:20;default:user;index"`
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // set when the account is linked to Firebase Auth
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserCompact is the public view of a user embedded in other responses.
type UserCompact struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanManageEvents reports whether the actor may create events.
func (a Actor) CanManageEvents() bool {
	return a.Role == RoleManager || a.Role == RoleAdmin
}
