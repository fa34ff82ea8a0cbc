package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/feed"
)

// ReactionSource returns the paginated reactions feed of a space
func (c *Client) ReactionSource(spaceID string) feed.PageFetcher {
	path := "/api/v1/spaces/" + url.PathEscape(spaceID) + "/reactions"

	return feed.PageFetcherFunc(func(ctx context.Context, cursor string, pageSize int) (*domain.Page, error) {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page domain.Page
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// UserAPI serves user search and follow toggles
type UserAPI struct {
	c *Client
}

// Users returns the user endpoints
func (c *Client) Users() *UserAPI {
	return &UserAPI{c: c}
}

// FetchByQuery searches users by keyword
func (u *UserAPI) FetchByQuery(ctx context.Context, keyword string) ([]domain.UserSummary, error) {
	query := url.Values{}
	query.Set("q", keyword)

	var users []domain.UserSummary
	if err := u.c.do(ctx, http.MethodGet, "/api/v1/users/search", query, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetFollowing follows or unfollows userID
func (u *UserAPI) SetFollowing(ctx context.Context, userID string, follow bool) error {
	method := http.MethodPut
	if !follow {
		method = http.MethodDelete
	}
	return u.c.do(ctx, method, "/api/v1/users/"+url.PathEscape(userID)+"/follow", nil, nil, nil)
}

// PositionAPI stores scroll positions on the server for the logged-in user
type PositionAPI struct {
	c *Client
}

// Positions returns the position endpoints
func (c *Client) Positions() *PositionAPI {
	return &PositionAPI{c: c}
}

func positionPath(feedKey string) string {
	return "/api/v1/positions/" + url.PathEscape(feedKey)
}

// Save overwrites the stored index
func (p *PositionAPI) Save(ctx context.Context, feedKey string, index int) error {
	body := &domain.PositionUpdateRequest{Index: &index}
	return p.c.do(ctx, http.MethodPut, positionPath(feedKey), nil, body, nil)
}

// Restore returns the stored index, or found=false when none is stored
func (p *PositionAPI) Restore(ctx context.Context, feedKey string) (int, bool, error) {
	var pos domain.ScrollPosition
	err := p.c.do(ctx, http.MethodGet, positionPath(feedKey), nil, nil, &pos)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return pos.Index, true, nil
}

// Clear removes the stored index
func (p *PositionAPI) Clear(ctx context.Context, feedKey string) error {
	return p.c.do(ctx, http.MethodDelete, positionPath(feedKey), nil, nil, nil)
}
