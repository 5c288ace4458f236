package models

import (
	"slices"
	"time"
)

// Post is a hashtag-tagged message that disappears at ExpiresAt.
type Post struct {
	ID        string    `json:"_id"`
	AuthorID  string    `json:"postedBy"`
	Content   string    `json:"content"`
	Hashtags  []string  `json:"hashtags"`
	LikedBy   []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the post is past its lifetime at now.
func (p *Post) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// LikedByUser reports whether userID is in the like set.
func (p *Post) LikedByUser(userID string) bool {
	return slices.Contains(p.LikedBy, userID)
}

// AuthorSummary is the minimal author projection shown next to a post.
type AuthorSummary struct {
	ID         string `json:"_id"`
	Name       string `json:"Name"`
	ProfilePic string `json:"ProfilePic"`
}

// PostView is a post as seen by a particular viewer.
type PostView struct {
	ID         string        `json:"_id"`
	Author     AuthorSummary `json:"postedBy"`
	Content    string        `json:"content"`
	Hashtags   []string      `json:"hashtags"`
	LikesCount int           `json:"likesCount"`
	LikedByMe  bool          `json:"likedByMe"`
	CreatedAt  time.Time     `json:"createdAt"`
	ExpiresAt  time.Time     `json:"expiresAt"`
}
