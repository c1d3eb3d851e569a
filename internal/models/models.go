package models

// Stored entities.

type User struct {
	ID             int64
	Username       string
	HashedPassword string
	Role           string
}

type Post struct {
	ID      int64
	Title   string
	Content string
	UserID  int64
}

type Comment struct {
	ID      int64
	Content string
	PostID  int64
}

type Like struct {
	ID     int64
	PostID int64
}

type Image struct {
	ID     int64
	URL    string
	PostID int64
}

// Outward-facing representations returned across the request boundary.

type PostView struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	LikeCount int           `json:"like_count"`
	Comments  []CommentView `json:"comments"`
	Images    []ImageView   `json:"images"`
}

type CommentView struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	PostID  int64  `json:"post_id"`
}

type LikeView struct {
	ID     int64 `json:"id"`
	PostID int64 `json:"post_id"`
}

type ImageView struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}
