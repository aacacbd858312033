package model

import (
	"encoding/json"
	"time"
)

// Role classifies an account. The set is closed: handlers validate
// incoming role strings with Valid() before they reach storage so no
// unknown role ever lands in the users table.
type Role string

const (
	RoleRider   Role = "rider"   // regular motorcyclist account
	RoleClub    Role = "club"    // riding club account
	RoleCreator Role = "creator" // content creator account
	RoleAdmin   Role = "admin"   // administrator
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRider, RoleClub, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

// User represents a row in the `users` table. BikeInfo and ClubInfo are
// free-form JSON documents supplied by the client; only riders carry
// BikeInfo and only clubs carry ClubInfo. The password hash is never
// serialized.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Name         string          `json:"name"`
	Role         Role            `json:"role"`
	Bio          string          `json:"bio"`
	ProfileImage string          `json:"profileImage"`
	BikeInfo     json.RawMessage `json:"bikeInfo,omitempty"`
	ClubInfo     json.RawMessage `json:"clubInfo,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// UserSummary is the denormalized view of a user embedded in event and
// payment responses (read-time join, never stored).
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Summary returns the embeddable view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Role: u.Role, ProfileImage: u.ProfileImage}
}
