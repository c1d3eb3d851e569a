package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateUsername = errors.New("username already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrPostNotFound      = errors.New("post not found")
	ErrAlreadyLiked      = errors.New("post already liked")
	ErrLikeNotFound      = errors.New("like not found")
)

// Pagination defaults. MaxLimit caps a caller-supplied page size so a single
// request cannot pull the whole table.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PostFilter narrows ListPosts. Title and Content are case-insensitive
// substring matches; UserID is an exact match on the author. Zero values mean
// "not set". All set filters are combined with AND.
type PostFilter struct {
	Title   string
	Content string
	UserID  int64
}

// Page is an offset/limit window. Zero Limit means DefaultLimit.
type Page struct {
	Skip  int
	Limit int
}

func CreateUser(db *sql.DB, username, hashedPassword, role string) (int64, error) {
	res, err := db.Exec(`INSERT INTO users (username, hashed_password, role) VALUES (?, ?, ?)`,
		username, hashedPassword, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	return res.LastInsertId()
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	row := db.QueryRow(`SELECT id, username, hashed_password, role FROM users WHERE username = ?`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreatePost inserts a post and, when imageURL is non-empty, its image in a
// single transaction, so a failed image insert never leaves a bare post.
func CreatePost(db *sql.DB, userID int64, title, content, imageURL string) (*PostView, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	res, err := tx.Exec(`INSERT INTO posts (title, content, user_id) VALUES (?, ?, ?)`, title, content, userID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	postID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	view := &PostView{
		ID:       postID,
		Title:    title,
		Content:  content,
		Comments: []CommentView{},
		Images:   []ImageView{},
	}
	if imageURL != "" {
		res, err := tx.Exec(`INSERT INTO images (url, post_id) VALUES (?, ?)`, imageURL, postID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		imageID, err := res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		view.Images = append(view.Images, ImageView{ID: imageID, URL: imageURL})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return view, nil
}

// ListPosts returns one page of posts matching filter, ordered by id
// ascending, with like counts and nested comments and images.
func ListPosts(db *sql.DB, filter PostFilter, page Page) ([]PostView, error) {
	q := `SELECT id, title, content FROM posts`
	var where []string
	var args []any
	if filter.Title != "" {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Title))+"%")
	}
	if filter.Content != "" {
		where = append(where, `LOWER(content) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Content))+"%")
	}
	if filter.UserID != 0 {
		where = append(where, `user_id = ?`)
		args = append(args, filter.UserID)
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	skip := page.Skip
	if skip < 0 {
		skip = 0
	}
	q += ` ORDER BY id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	views := []PostView{}
	for rows.Next() {
		var v PostView
		if err := rows.Scan(&v.ID, &v.Title, &v.Content); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range views {
		if err := fillPostView(db, &views[i]); err != nil {
			return nil, fmt.Errorf("post %d: %w", views[i].ID, err)
		}
	}
	return views, nil
}

// fillPostView loads the derived like count and the nested comments and
// images for a single post.
func fillPostView(db *sql.DB, v *PostView) error {
	if err := db.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ?`, v.ID).Scan(&v.LikeCount); err != nil {
		return err
	}

	v.Comments = []CommentView{}
	rows, err := db.Query(`SELECT id, content, post_id FROM comments WHERE post_id = ? ORDER BY id ASC`, v.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c CommentView
		if err := rows.Scan(&c.ID, &c.Content, &c.PostID); err != nil {
			return err
		}
		v.Comments = append(v.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	v.Images = []ImageView{}
	rows, err = db.Query(`SELECT id, url FROM images WHERE post_id = ? ORDER BY id ASC`, v.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var img ImageView
		if err := rows.Scan(&img.ID, &img.URL); err != nil {
			return err
		}
		v.Images = append(v.Images, img)
	}
	return rows.Err()
}

func postExists(db *sql.DB, postID int64) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func CreateComment(db *sql.DB, postID int64, content string) (*CommentView, error) {
	ok, err := postExists(db, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostNotFound
	}
	res, err := db.Exec(`INSERT INTO comments (content, post_id) VALUES (?, ?)`, content, postID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &CommentView{ID: id, Content: content, PostID: postID}, nil
}

// LikePost records the single global like for a post. The UNIQUE constraint
// on likes.post_id decides between concurrent callers; a violation surfaces
// as ErrAlreadyLiked.
func LikePost(db *sql.DB, postID int64) error {
	ok, err := postExists(db, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPostNotFound
	}
	if _, err := db.Exec(`INSERT INTO likes (post_id) VALUES (?)`, postID); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: likes.post_id") {
			return ErrAlreadyLiked
		}
		return err
	}
	return nil
}

// UnlikePost removes the like for a post. A post with no like reports
// ErrLikeNotFound whether or not the post itself exists.
func UnlikePost(db *sql.DB, postID int64) error {
	res, err := db.Exec(`DELETE FROM likes WHERE post_id = ?`, postID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLikeNotFound
	}
	return nil
}

func ListLikes(db *sql.DB, postID int64) ([]LikeView, error) {
	ok, err := postExists(db, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostNotFound
	}
	rows, err := db.Query(`SELECT id, post_id FROM likes WHERE post_id = ?`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	likes := []LikeView{}
	for rows.Next() {
		var l LikeView
		if err := rows.Scan(&l.ID, &l.PostID); err != nil {
			return nil, err
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

// escapeLike escapes LIKE metacharacters so filter text matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
