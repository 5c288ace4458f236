// Package models defines server-side data models persisted in the database
// and the projections handed to transport code.
package models

import "time"

// User is the full account row. PasswordHash never leaves the service layer;
// transport code receives PublicUser instead.
type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	IsVerified        bool
	IsProfileComplete bool
	Name              string
	Bio               string
	ProfilePic        string
	Hashtags          []string
	DeviceToken       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the caller-facing view of a user: everything but the hash.
type PublicUser struct {
	ID                string    `json:"_id"`
	Username          string    `json:"Username"`
	Email             string    `json:"Email,omitempty"`
	IsVerified        bool      `json:"isVerified"`
	IsProfileComplete bool      `json:"isProfileComplete"`
	Name              string    `json:"Name"`
	Bio               string    `json:"Bio"`
	ProfilePic        string    `json:"ProfilePic"`
	Hashtags          []string  `json:"Hashtags"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Public strips the secret digest and device token.
func (u *User) Public() *PublicUser {
	tags := u.Hashtags
	if tags == nil {
		tags = []string{}
	}
	return &PublicUser{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		IsVerified:        u.IsVerified,
		IsProfileComplete: u.IsProfileComplete,
		Name:              u.Name,
		Bio:               u.Bio,
		ProfilePic:        u.ProfilePic,
		Hashtags:          tags,
		CreatedAt:         u.CreatedAt,
	}
}

// PublicProfile is what other users may see: no email, no account flags.
type PublicProfile struct {
	ID         string   `json:"_id"`
	Username   string   `json:"Username"`
	Name       string   `json:"Name"`
	Bio        string   `json:"Bio"`
	ProfilePic string   `json:"ProfilePic"`
	Hashtags   []string `json:"Hashtags"`
}

// Profile projects u onto PublicProfile.
func (u *User) Profile() *PublicProfile {
	p := u.Public()
	return &PublicProfile{
		ID:         p.ID,
		Username:   p.Username,
		Name:       p.Name,
		Bio:        p.Bio,
		ProfilePic: p.ProfilePic,
		Hashtags:   p.Hashtags,
	}
}

// ProfileFields is the column set written when a profile is completed.
type ProfileFields struct {
	Name       string
	Bio        string
	Hashtags   []string
	ProfilePic string
}
