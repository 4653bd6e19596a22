// Package models defines the server-side records persisted in the database
// and the projections handed to clients.
package models

import "time"

// User is the full credential record. PasswordHash and RefreshToken never
// leave the server; use Public for anything sent to a client.
type User struct {
	ID           string
	UserName     string
	Email        string
	FullName     string
	PasswordHash string  `json:"-"`
	RefreshToken *string `json:"-"`
	Avatar       string
	CoverImage   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the sanitized projection of a User.
type PublicUser struct {
	ID         string    `json:"id"`
	UserName   string    `json:"userName"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public strips credentials from u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		UserName:   u.UserName,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// ChannelProfile is a user's public page together with subscription counts.
type ChannelProfile struct {
	PublicUser
	SubscribersCount          int64 `json:"subscribersCount"`
	ChannelsSubscribedToCount int64 `json:"channelsSubscribedToCount"`
	IsSubscribed              bool  `json:"isSubscribed"`
}
