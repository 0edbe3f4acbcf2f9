package model

import "time"

type Organizer struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordDigest string    `json:"-"`
	Token          *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
