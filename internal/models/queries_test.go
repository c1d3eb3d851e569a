package models

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func newTestUser(t *testing.T, database *sql.DB, username string) int64 {
	t.Helper()
	id, err := CreateUser(database, username, "hash", "user")
	require.NoError(t, err)
	return id
}

func TestCreateUserDuplicate(t *testing.T) {
	database := newTestDB(t)

	_, err := CreateUser(database, "alice", "hash", "admin")
	require.NoError(t, err)

	_, err = CreateUser(database, "alice", "otherhash", "user")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestGetUserByUsername(t *testing.T) {
	database := newTestDB(t)
	newTestUser(t, database, "alice")

	u, err := GetUserByUsername(database, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "user", u.Role)

	_, err = GetUserByUsername(database, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreatePost(t *testing.T) {
	database := newTestDB(t)
	userID := newTestUser(t, database, "alice")

	t.Run("without image", func(t *testing.T) {
		view, err := CreatePost(database, userID, "Alpha", "first", "")
		require.NoError(t, err)
		assert.Equal(t, "Alpha", view.Title)
		assert.Zero(t, view.LikeCount)
		assert.Empty(t, view.Comments)
		assert.Empty(t, view.Images)
	})

	t.Run("with image", func(t *testing.T) {
		view, err := CreatePost(database, userID, "Beta", "second", "https://img.example/cat.png")
		require.NoError(t, err)
		require.Len(t, view.Images, 1)
		assert.Equal(t, "https://img.example/cat.png", view.Images[0].URL)
	})
}

func TestListPostsFilters(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")
	bob := newTestUser(t, database, "bob")

	_, err := CreatePost(database, alice, "Alpha", "about go", "")
	require.NoError(t, err)
	_, err = CreatePost(database, bob, "Beta", "about cats", "")
	require.NoError(t, err)

	t.Run("title substring is case-insensitive", func(t *testing.T) {
		views, err := ListPosts(database, PostFilter{Title: "alp"}, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Alpha", views[0].Title)
	})

	t.Run("content substring", func(t *testing.T) {
		views, err := ListPosts(database, PostFilter{Content: "CATS"}, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Beta", views[0].Title)
	})

	t.Run("user filter", func(t *testing.T) {
		views, err := ListPosts(database, PostFilter{UserID: bob}, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Beta", views[0].Title)
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		views, err := ListPosts(database, PostFilter{Title: "alpha", UserID: bob}, Page{})
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("no filters returns everything", func(t *testing.T) {
		views, err := ListPosts(database, PostFilter{}, Page{})
		require.NoError(t, err)
		assert.Len(t, views, 2)
	})
}

func TestListPostsLikeEscaping(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")

	_, err := CreatePost(database, alice, "100% true", "x", "")
	require.NoError(t, err)
	_, err = CreatePost(database, alice, "100 percent", "x", "")
	require.NoError(t, err)

	views, err := ListPosts(database, PostFilter{Title: "100%"}, Page{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "100% true", views[0].Title)
}

func TestListPostsPagination(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")
	for i := 1; i <= 15; i++ {
		_, err := CreatePost(database, alice, fmt.Sprintf("post %d", i), "content", "")
		require.NoError(t, err)
	}

	views, err := ListPosts(database, PostFilter{}, Page{Skip: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, views, 5)
	// stable order is id ascending
	assert.Equal(t, "post 11", views[0].Title)
	assert.Equal(t, "post 15", views[4].Title)
}

func TestListPostsLimitCapped(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")
	for i := 0; i < MaxLimit+5; i++ {
		_, err := CreatePost(database, alice, fmt.Sprintf("post %d", i), "content", "")
		require.NoError(t, err)
	}

	views, err := ListPosts(database, PostFilter{}, Page{Limit: MaxLimit + 100})
	require.NoError(t, err)
	assert.Len(t, views, MaxLimit)
}

func TestListPostsNesting(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")
	view, err := CreatePost(database, alice, "Alpha", "content", "https://img.example/a.png")
	require.NoError(t, err)

	_, err = CreateComment(database, view.ID, "nice")
	require.NoError(t, err)
	_, err = CreateComment(database, view.ID, "very nice")
	require.NoError(t, err)
	require.NoError(t, LikePost(database, view.ID))

	views, err := ListPosts(database, PostFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	got := views[0]
	assert.Equal(t, 1, got.LikeCount)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "nice", got.Comments[0].Content)
	assert.Equal(t, view.ID, got.Comments[0].PostID)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "https://img.example/a.png", got.Images[0].URL)
}

func TestCreateCommentMissingPost(t *testing.T) {
	database := newTestDB(t)

	_, err := CreateComment(database, 42, "hello")
	assert.ErrorIs(t, err, ErrPostNotFound)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&count))
	assert.Zero(t, count)
}

func TestLikeToggle(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")
	view, err := CreatePost(database, alice, "Alpha", "content", "")
	require.NoError(t, err)

	assert.ErrorIs(t, LikePost(database, 42), ErrPostNotFound)

	require.NoError(t, LikePost(database, view.ID))
	assert.ErrorIs(t, LikePost(database, view.ID), ErrAlreadyLiked)

	likes, err := ListLikes(database, view.ID)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, view.ID, likes[0].PostID)

	require.NoError(t, UnlikePost(database, view.ID))
	assert.ErrorIs(t, UnlikePost(database, view.ID), ErrLikeNotFound)

	// unlike on a missing post also reports the missing like
	assert.ErrorIs(t, UnlikePost(database, 42), ErrLikeNotFound)

	_, err = ListLikes(database, 42)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestLikeCountMatchesRows(t *testing.T) {
	database := newTestDB(t)
	alice := newTestUser(t, database, "alice")
	view, err := CreatePost(database, alice, "Alpha", "content", "")
	require.NoError(t, err)

	check := func() {
		t.Helper()
		likes, err := ListLikes(database, view.ID)
		require.NoError(t, err)
		views, err := ListPosts(database, PostFilter{}, Page{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, len(likes), views[0].LikeCount)
	}

	check()
	require.NoError(t, LikePost(database, view.ID))
	check()
	require.NoError(t, UnlikePost(database, view.ID))
	check()
	require.NoError(t, LikePost(database, view.ID))
	check()
}
