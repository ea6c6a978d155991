package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/labstack/echo/v4"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"capacity", apperrors.CapacityExceeded("Event is full"), http.StatusConflict, "Event is full"},
		{"wrapped not found", fmt.Errorf("load: %w", apperrors.NotFound("Event not found")), http.StatusNotFound, "Event not found"},
		{"unauthorized", apperrors.Unauthorized("Only event managers can do that"), http.StatusForbidden, "Only event managers can do that"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "Invalid event ID"), http.StatusBadRequest, "Invalid event ID"},
		{"plain error hides details", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Success || body.Message != tt.wantMessage {
				t.Fatalf("body = %+v, want message %q", body, tt.wantMessage)
			}
		})
	}
}

func TestPageParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 20},
		{"?page=3&limit=50", 3, 50},
		{"?page=-1&limit=500", 1, 20},
		{"?page=x&limit=y", 1, 20},
	}
	for _, tt := range tests {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), httptest.NewRecorder())
		page, limit := pageParams(c, 100)
		if page != tt.wantPage || limit != tt.wantLimit {
			t.Errorf("pageParams(%q) = %d, %d, want %d, %d", tt.query, page, limit, tt.wantPage, tt.wantLimit)
		}
	}
}

func TestPaginatedMeta(t *testing.T) {
	t.Parallel()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := paginated(c, "items", []int{1, 2}, 2, 2, 5); err != nil {
		t.Fatal(err)
	}
	var body struct {
		Meta struct {
			TotalPages      int  `json:"totalPages"`
			HasNextPage     bool `json:"hasNextPage"`
			HasPreviousPage bool `json:"hasPreviousPage"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Meta.TotalPages != 3 || !body.Meta.HasNextPage || !body.Meta.HasPreviousPage {
		t.Fatalf("meta = %+v", body.Meta)
	}
}
