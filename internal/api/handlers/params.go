package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CursorParams holds parsed cursor pagination parameters
type CursorParams struct {
	Cursor string
	Limit  int
}

// QueryParamParser provides helpers for parsing and validating query parameters
type QueryParamParser struct {
	c   *gin.Context
	err error
}

// NewQueryParamParser creates a new query parameter parser
func NewQueryParamParser(c *gin.Context) *QueryParamParser {
	return &QueryParamParser{c: c}
}

// Error returns any parsing error that occurred
func (p *QueryParamParser) Error() error {
	return p.err
}

// Cursor parses the cursor and limit parameters. The limit is bounded to
// [1, maxLimit]; a missing limit gives defaultLimit.
func (p *QueryParamParser) Cursor(defaultLimit, maxLimit int) CursorParams {
	if p.err != nil {
		return CursorParams{Limit: defaultLimit}
	}

	limit := p.Int("limit", defaultLimit)
	if p.err != nil {
		return CursorParams{Limit: defaultLimit}
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return CursorParams{
		Cursor: strings.TrimSpace(p.c.Query("cursor")),
		Limit:  limit,
	}
}

// Int gets an integer parameter with a default
func (p *QueryParamParser) Int(key string, defaultValue int) int {
	if p.err != nil {
		return defaultValue
	}

	value := p.c.Query(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.err = fmt.Errorf("invalid '%s' parameter: must be a number", key)
		return defaultValue
	}
	return parsed
}

// String gets a string parameter with optional default
func (p *QueryParamParser) String(key, defaultValue string) string {
	if p.err != nil {
		return defaultValue
	}

	value := p.c.Query(key)
	if value == "" {
		return defaultValue
	}
	return strings.TrimSpace(value)
}
