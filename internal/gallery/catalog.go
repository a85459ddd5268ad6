package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/filter"
	"github.com/picvault/picvault/internal/models"
	"github.com/picvault/picvault/internal/remote"
)

// Catalog caches the server-sourced facet data (idols, groups, tags,
// uploaders) and the current user's saved filters.
type Catalog struct {
	client  *remote.Client
	session *auth.Session

	mu           sync.RWMutex
	loaded       bool
	idols        []models.Idol
	groups       []models.Group
	tags         []models.Tag
	uploaders    []models.Uploader
	savedFilters []models.SavedFilter
}

// NewCatalog creates an empty catalog over the remote client.
func NewCatalog(client *remote.Client, session *auth.Session) *Catalog {
	return &Catalog{client: client, session: session}
}

// loadRecords drains one facet collection sorted by name. A failed fetch is
// logged and yields an empty list so one broken facet doesn't block the rest.
func loadRecords[T any](ctx context.Context, client *remote.Client, collection string) []T {
	records, err := remote.GetFullList[T](ctx, client, collection, remote.ListOptions{Sort: "name"})
	if err != nil {
		log.Errorf("Error fetching records from %s: %v", collection, err)
		return nil
	}
	return records
}

// Load populates the catalog once. Subsequent calls are no-ops; use
// RefreshSavedFilters to pick up new saved filters.
func (c *Catalog) Load(ctx context.Context) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	idols := loadRecords[models.Idol](ctx, c.client, remote.CollectionIdols)
	groups := loadRecords[models.Group](ctx, c.client, remote.CollectionGroups)
	tags := loadRecords[models.Tag](ctx, c.client, remote.CollectionTags)
	uploaders := loadRecords[models.Uploader](ctx, c.client, remote.CollectionUploaders)
	savedFilters := loadRecords[models.SavedFilter](ctx, c.client, remote.CollectionFilters)

	c.mu.Lock()
	c.idols = idols
	c.groups = groups
	c.tags = tags
	c.uploaders = uploaders
	c.savedFilters = savedFilters
	c.loaded = true
	c.mu.Unlock()
}

// RefreshSavedFilters re-fetches only the saved filter list.
func (c *Catalog) RefreshSavedFilters(ctx context.Context) {
	savedFilters := loadRecords[models.SavedFilter](ctx, c.client, remote.CollectionFilters)
	c.mu.Lock()
	c.savedFilters = savedFilters
	c.mu.Unlock()
}

// Loaded reports whether the catalog has been populated.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Idols returns the cached idol records.
func (c *Catalog) Idols() []models.Idol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idols
}

// Groups returns the cached group records.
func (c *Catalog) Groups() []models.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groups
}

// Tags returns the cached tag records.
func (c *Catalog) Tags() []models.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tags
}

// Uploaders returns the cached uploader records.
func (c *Catalog) Uploaders() []models.Uploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uploaders
}

// SavedFilters returns the cached saved filter records.
func (c *Catalog) SavedFilters() []models.SavedFilter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.savedFilters
}

// Lookup converts the catalog into the resolver the URL query decoder uses.
// Facet values are resolved to their match kind here, once, rather than at
// query-build time.
func (c *Catalog) Lookup() filter.Lookup {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lookup := filter.Lookup{}
	for _, idol := range c.idols {
		lookup[filter.FacetIdol] = append(lookup[filter.FacetIdol], filter.Named(idol.Name))
	}
	for _, group := range c.groups {
		lookup[filter.FacetGroup] = append(lookup[filter.FacetGroup], filter.Named(group.Name))
	}
	for _, tag := range c.tags {
		lookup[filter.FacetTag] = append(lookup[filter.FacetTag], filter.Named(tag.Name))
	}
	for _, uploader := range c.uploaders {
		lookup[filter.FacetUploader] = append(lookup[filter.FacetUploader], filter.Named(uploader.Name))
	}
	lookup[filter.FacetFileType] = append([]filter.FacetValue{}, filter.ContentTypes...)
	return lookup
}

// SaveFilter stores the given filter state as a named saved filter for the
// current user and refreshes the cached list.
func (c *Catalog) SaveFilter(ctx context.Context, name string, state filter.State) (models.SavedFilter, error) {
	user := c.session.User()
	if user == nil {
		return models.SavedFilter{}, fmt.Errorf("not authenticated")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return models.SavedFilter{}, fmt.Errorf("failed to marshal filter state: %w", err)
	}

	record, err := remote.Create[models.SavedFilter](ctx, c.client, remote.CollectionFilters, map[string]string{
		"name":    name,
		"user":    user.ID,
		"filters": string(data),
	})
	if err != nil {
		return models.SavedFilter{}, err
	}

	c.RefreshSavedFilters(ctx)
	return record, nil
}

// DeleteFilter removes a saved filter and refreshes the cached list.
func (c *Catalog) DeleteFilter(ctx context.Context, id string) error {
	if err := c.client.Delete(ctx, remote.CollectionFilters, id); err != nil {
		return err
	}
	c.RefreshSavedFilters(ctx)
	return nil
}

// DecodeSavedFilter parses a saved filter record back into a filter state.
func DecodeSavedFilter(record models.SavedFilter) (filter.State, error) {
	state := filter.Default()
	if err := json.Unmarshal([]byte(record.Filters), &state); err != nil {
		return filter.Default(), fmt.Errorf("failed to parse saved filter %q: %w", record.Name, err)
	}
	return state, nil
}
