package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type Profile struct {
	Bio         string     `bson:"bio,omitempty" json:"bio,omitempty"`
	Location    string     `bson:"location,omitempty" json:"location,omitempty"`
	DateOfBirth *time.Time `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
}

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash" json:"-"` // never expose
	Role         Role          `bson:"role" json:"role"`
	IsActive     bool          `bson:"isActive" json:"isActive"`

	IsEmailVerified          bool       `bson:"isEmailVerified" json:"isEmailVerified"`
	EmailVerificationToken   string     `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationExpires *time.Time `bson:"emailVerificationExpires,omitempty" json:"-"`
	PasswordResetToken       string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires     *time.Time `bson:"passwordResetExpires,omitempty" json:"-"`

	LoginAttempts int        `bson:"loginAttempts" json:"-"`
	LockUntil     *time.Time `bson:"lockUntil,omitempty" json:"-"`
	LastLogin     *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`

	Preferences map[string]any `bson:"preferences,omitempty" json:"preferences"`
	Profile     Profile        `bson:"profile" json:"profile"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsLocked reports whether a lockout window is still open at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
