package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/picvault/picvault/internal/models"
)

// GetOne fetches a single record by id.
func GetOne[T any](ctx context.Context, c *Client, collection, id string, opts ListOptions) (T, error) {
	var record T
	path := fmt.Sprintf("/api/collections/%s/records/%s", collection, url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, opts.values(), nil, &record); err != nil {
		return record, fmt.Errorf("failed to get record %s/%s: %w", collection, id, err)
	}
	return record, nil
}

// GetList fetches one page of records.
func GetList[T any](ctx context.Context, c *Client, collection string, page, perPage int, opts ListOptions) (models.Page[T], error) {
	var result models.Page[T]

	query := opts.values()
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))

	path := fmt.Sprintf("/api/collections/%s/records", collection)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &result); err != nil {
		return result, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return result, nil
}

// GetFullList drains every page of a collection into one slice.
func GetFullList[T any](ctx context.Context, c *Client, collection string, opts ListOptions) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		result, err := GetList[T](ctx, c, collection, page, fullListBatch, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Items...)
		if page >= result.TotalPages || len(result.Items) == 0 {
			break
		}
	}

	return all, nil
}

// Create inserts a record and returns the stored form.
func Create[T any](ctx context.Context, c *Client, collection string, body any) (T, error) {
	var record T
	path := fmt.Sprintf("/api/collections/%s/records", collection)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &record); err != nil {
		return record, fmt.Errorf("failed to create record in %s: %w", collection, err)
	}
	return record, nil
}

// Update patches a record and returns the stored form. The body may use the
// store's field modifiers (e.g. "likes+"/"likes-") to append to or remove
// from multi-value relation fields.
func Update[T any](ctx context.Context, c *Client, collection, id string, body any) (T, error) {
	var record T
	path := fmt.Sprintf("/api/collections/%s/records/%s", collection, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &record); err != nil {
		return record, fmt.Errorf("failed to update record %s/%s: %w", collection, id, err)
	}
	return record, nil
}
