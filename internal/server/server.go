package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"blog/internal/auth"
	"blog/internal/models"
)

type Server struct {
	DB     *sql.DB
	Tokens *auth.TokenService
	Log    *slog.Logger
}

func New(db *sql.DB, tokens *auth.TokenService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{DB: db, Tokens: tokens, Log: logger}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /token", s.handleLogin)
	mux.HandleFunc("POST /posts/{$}", s.requireAuth(s.handleCreatePost))
	mux.HandleFunc("GET /posts/{$}", s.handleListPosts)
	mux.HandleFunc("POST /comments/{post_id}", s.handleCreateComment)
	mux.HandleFunc("POST /likes/{post_id}", s.handleLikePost)
	mux.HandleFunc("DELETE /likes/{post_id}", s.handleUnlikePost)
	mux.HandleFunc("GET /likes/{post_id}", s.handleListLikes)
	return s.withRecover(s.withLogging(mux))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.routes().ServeHTTP(w, r)
}

// request/response shapes

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type imagePayload struct {
	URL string `json:"url"`
}

type createPostRequest struct {
	Title   string        `json:"title"`
	Content string        `json:"content"`
	Image   *imagePayload `json:"image"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type msgResponse struct {
	Msg string `json:"msg"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, detail string) {
	s.writeJSON(w, code, errorResponse{Detail: detail})
}

// writeDomainError maps model errors onto status codes; anything unexpected
// is a 500 and gets logged.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrPostNotFound):
		s.writeError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, models.ErrLikeNotFound):
		s.writeError(w, http.StatusNotFound, "Like not found")
	case errors.Is(err, models.ErrAlreadyLiked):
		s.writeError(w, http.StatusBadRequest, "This post has already been liked")
	case errors.Is(err, models.ErrDuplicateUsername):
		s.writeError(w, http.StatusBadRequest, "Username already registered")
	default:
		s.Log.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	s.writeError(w, http.StatusUnauthorized, detail)
}

// handlers

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if _, err := models.CreateUser(s.DB, req.Username, hash, req.Role); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msgResponse{Msg: "User registered successfully"})
}

// handleLogin exchanges form-encoded credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	user, err := models.GetUserByUsername(s.DB, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.unauthorized(w, "Incorrect username or password")
			return
		}
		s.writeDomainError(w, err)
		return
	}
	if !auth.CheckPassword(password, user.HashedPassword) {
		s.unauthorized(w, "Incorrect username or password")
		return
	}
	token, err := s.Tokens.Issue(user.Username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}
	imageURL := ""
	if req.Image != nil {
		imageURL = req.Image.URL
	}
	view, err := models.CreatePost(s.DB, user.ID, req.Title, req.Content, imageURL)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PostFilter{
		Title:   q.Get("title"),
		Content: q.Get("content"),
	}
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "user_id must be an integer")
			return
		}
		filter.UserID = id
	}
	page := models.Page{Limit: models.DefaultLimit}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "skip must be a non-negative integer")
			return
		}
		page.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		page.Limit = n
	}
	views, err := models.ListPosts(s.DB, filter, page)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.postIDParam(w, r)
	if !ok {
		return
	}
	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "Content is required")
		return
	}
	view, err := models.CreateComment(s.DB, postID, req.Content)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.postIDParam(w, r)
	if !ok {
		return
	}
	if err := models.LikePost(s.DB, postID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msgResponse{Msg: "Post liked successfully"})
}

func (s *Server) handleUnlikePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.postIDParam(w, r)
	if !ok {
		return
	}
	if err := models.UnlikePost(s.DB, postID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msgResponse{Msg: "Like removed"})
}

func (s *Server) handleListLikes(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.postIDParam(w, r)
	if !ok {
		return
	}
	likes, err := models.ListLikes(s.DB, postID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, likes)
}

// postIDParam parses the {post_id} path segment. A non-numeric id can never
// name a post, so it reports not found.
func (s *Server) postIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("post_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Post not found")
		return 0, false
	}
	return id, true
}
