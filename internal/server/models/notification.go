package models

import "time"

// Notification tells a user that a post matching their interests appeared.
type Notification struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
