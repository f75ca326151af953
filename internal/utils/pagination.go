package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-chat-api/internal/constants"
)

var ErrInvalidCursor = errors.New("invalid cursor parameter")

// CursorParams holds the id cursor and page size of a message listing
type CursorParams struct {
	Before *uint64
	Limit  int
}

// GetCursorParams extracts ?before and ?limit. An absent or out of range
// limit falls back to the default or the hard cap.
func GetCursorParams(c *gin.Context) (CursorParams, error) {
	params := CursorParams{Limit: constants.DefaultMessageLimit}

	if raw := c.Query("before"); raw != "" {
		before, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || before == 0 {
			return params, ErrInvalidCursor
		}
		params.Before = &before
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, ErrInvalidCursor
		}
		params.Limit = ClampLimit(limit)
	}

	return params, nil
}

// ClampLimit maps a requested page size onto [1, MaxMessageLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return constants.DefaultMessageLimit
	}
	if limit > constants.MaxMessageLimit {
		return constants.MaxMessageLimit
	}
	return limit
}

// ParseOptionalID parses a positive id query value; empty means absent.
func ParseOptionalID(raw string) (*uint64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, ErrInvalidCursor
	}
	return &id, nil
}
