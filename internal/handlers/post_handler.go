package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository  repositories.PostRepository
	eventRepository repositories.EventRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, eventRepo repositories.EventRepository) *PostHandler {
	return &PostHandler{
		postRepository:  postRepo,
		eventRepository: eventRepo,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
}

// CreatePost creates a new post, optionally inside an event's channel
func (h *PostHandler) CreatePost(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	ctx := c.Request().Context()
	if req.EventID != nil {
		if _, err := h.eventRepository.GetByID(ctx, *req.EventID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "Event not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load event")
		}
	}

	post := &models.Post{
		AuthorID: actor.UserID,
		EventID:  req.EventID,
		Content:  content,
	}
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create post")
	}
	return respond(c, http.StatusCreated, "Post created", echo.Map{"post": post})
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := idParam(c, "id", "post")
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load post")
	}
	return respond(c, http.StatusOK, "", echo.Map{"post": post})
}
