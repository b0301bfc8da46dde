package backend

import (
	"context"
	"net/url"
	"strconv"
)

// PageRequest selects a page of a list endpoint. Zero values pick the
// client defaults.
type PageRequest struct {
	Page  int
	Limit int
}

func (c *Client) pageQuery(p PageRequest) url.Values {
	page := p.Page
	if page <= 0 {
		page = 1
	}
	limit := p.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// collectAll walks pages until a short page is returned or maxPages is hit.
func collectAll[T any](ctx context.Context, c *Client, fetch func(context.Context, PageRequest) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; page <= c.maxPages; page++ {
		items, err := fetch(ctx, PageRequest{Page: page, Limit: c.pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < c.pageSize {
			break
		}
	}
	return all, nil
}
