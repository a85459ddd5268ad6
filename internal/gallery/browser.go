// Package gallery orchestrates page fetches against the remote record store:
// one feed per view variant, the facet catalog, like toggling, and the
// masonry column distribution used by the presentation layer.
package gallery

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/activity"
	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/filter"
	"github.com/picvault/picvault/internal/models"
	"github.com/picvault/picvault/internal/prefs"
	"github.com/picvault/picvault/internal/remote"
)

// Variant names the view a fetch serves. Variants differ only in target
// collection, expanded relations, and one extra ownership or membership
// clause AND-ed onto the built filter.
type Variant string

const (
	VariantAllContents        Variant = "allContents"
	VariantLikedContents      Variant = "likedContents"
	VariantAllSets            Variant = "allSets"
	VariantAllCollections     Variant = "allCollections"
	VariantSetContents        Variant = "setContents"
	VariantCollectionContents Variant = "collectionContents"
	VariantSavedCollections   Variant = "savedCollections"
	VariantMyContents         Variant = "myContents"
)

// Expand lists per collection.
const (
	expandContents      = "idol,group,tag,uploader,likes"
	expandContentsNoTag = "idol,group,uploader,likes"
	expandContentDetail = "idol,group,uploader,tag,set,collections,likes"
	expandSets          = "idol,group,uploader,contents_via_set"
	expandCollections   = "user,contents_via_collections"
)

// Browser owns the per-variant feeds and performs all page fetches.
type Browser struct {
	client  *remote.Client
	prefs   *prefs.Store
	session *auth.Session
	tracker *activity.Tracker

	AllContents        *Feed[models.Content]
	LikedContents      *Feed[models.Content]
	SetContents        *Feed[models.Content]
	CollectionContents *Feed[models.Content]
	MyContents         *Feed[models.Content]
	AllSets            *Feed[models.Set]
	AllCollections     *Feed[models.Collection]
	SavedCollections   *Feed[models.Collection]
}

// NewBrowser creates a browser. tracker may be nil to disable activity
// broadcasting.
func NewBrowser(client *remote.Client, store *prefs.Store, session *auth.Session, tracker *activity.Tracker) *Browser {
	return &Browser{
		client:  client,
		prefs:   store,
		session: session,
		tracker: tracker,

		AllContents:        &Feed[models.Content]{},
		LikedContents:      &Feed[models.Content]{},
		SetContents:        &Feed[models.Content]{},
		CollectionContents: &Feed[models.Content]{},
		MyContents:         &Feed[models.Content]{},
		AllSets:            &Feed[models.Set]{},
		AllCollections:     &Feed[models.Collection]{},
		SavedCollections:   &Feed[models.Collection]{},
	}
}

// buildQuery composes the filter expression and sort key from the persisted
// filter state, search text, and most-liked mode.
func (b *Browser) buildQuery(relationPrefix string) (string, string) {
	return filter.BuildStored(b.prefs.FiltersRaw(), b.prefs.SearchValue(), b.prefs.MostLikedMode(), relationPrefix)
}

// pageSize reads the persisted items-per-page setting, falling back to the
// default when the settings document is unreadable.
func (b *Browser) pageSize() int {
	settings, err := b.prefs.SettingsLoad()
	if err != nil {
		log.Errorf("Failed to load settings, using defaults: %v", err)
		settings = prefs.DefaultSettings()
	}
	return settings.PageSize()
}

// withClause ANDs an extra clause onto a built query.
func withClause(query, extra string) string {
	if extra == "" {
		return query
	}
	if query == "" {
		return extra
	}
	return query + "&&" + extra
}

// fetchPage runs one paginated list call for a variant and installs the
// result in its feed. On failure the previous page state is kept; there is
// no retry.
func fetchPage[T any](ctx context.Context, b *Browser, feed *Feed[T], variant Variant, collection string, page int, opts remote.ListOptions) error {
	token := feed.begin()
	start := time.Now()

	result, err := remote.GetList[T](ctx, b.client, collection, page, b.pageSize(), opts)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		feed.fail(token)
		log.Errorf("Error fetching %s page %d: %v", variant, page, err)
		b.tracker.Publish(activity.Event{
			Type:      activity.TypeFetch,
			Variant:   string(variant),
			Page:      page,
			Failed:    true,
			ElapsedMS: elapsed,
		})
		return err
	}

	if !feed.apply(token, result.Items, result.TotalItems, page) {
		log.Debugf("Discarding stale %s response for page %d", variant, page)
		return nil
	}

	b.tracker.Publish(activity.Event{
		Type:      activity.TypeFetch,
		Variant:   string(variant),
		Page:      page,
		Count:     len(result.Items),
		Total:     result.TotalItems,
		ElapsedMS: elapsed,
	})
	return nil
}

// FetchAllContents loads one page of the unrestricted contents view.
func (b *Browser) FetchAllContents(ctx context.Context, page int) error {
	query, sortValue := b.buildQuery("")
	return fetchPage(ctx, b, b.AllContents, VariantAllContents, remote.CollectionContents, page, remote.ListOptions{
		Sort:   sortValue,
		Filter: query,
		Expand: expandContents,
	})
}

// FetchLikedContents loads one page of contents liked by the current user.
func (b *Browser) FetchLikedContents(ctx context.Context, page int) error {
	user := b.session.User()
	if user == nil {
		return fmt.Errorf("not authenticated")
	}

	query, sortValue := b.buildQuery("")
	return fetchPage(ctx, b, b.LikedContents, VariantLikedContents, remote.CollectionContents, page, remote.ListOptions{
		Sort:   sortValue,
		Filter: withClause(query, fmt.Sprintf("(likes.user?=%q)", user.ID)),
		Expand: expandContents,
	})
}

// FetchAllSets loads one page of content sets.
func (b *Browser) FetchAllSets(ctx context.Context, page int) error {
	query, _ := b.buildQuery("")
	return fetchPage(ctx, b, b.AllSets, VariantAllSets, remote.CollectionSets, page, remote.ListOptions{
		Sort:   "-created",
		Filter: query,
		Expand: expandSets,
	})
}

// FetchAllCollections loads one page of public collections.
func (b *Browser) FetchAllCollections(ctx context.Context, page int) error {
	query, _ := b.buildQuery("")
	return fetchPage(ctx, b, b.AllCollections, VariantAllCollections, remote.CollectionCollections, page, remote.ListOptions{
		Sort:   "-created",
		Filter: withClause(query, "(isPublic=true)"),
		Expand: expandCollections,
	})
}

// FetchSetContents loads one page of the contents belonging to a set.
func (b *Browser) FetchSetContents(ctx context.Context, setID string, page int) error {
	query, sortValue := b.buildQuery("")
	return fetchPage(ctx, b, b.SetContents, VariantSetContents, remote.CollectionContents, page, remote.ListOptions{
		Sort:   sortValue,
		Filter: withClause(query, fmt.Sprintf("(set=%q)", setID)),
		Expand: expandContents,
	})
}

// FetchCollectionContents loads one page of the contents in a collection.
func (b *Browser) FetchCollectionContents(ctx context.Context, collectionID string, page int) error {
	query, sortValue := b.buildQuery("")
	return fetchPage(ctx, b, b.CollectionContents, VariantCollectionContents, remote.CollectionContents, page, remote.ListOptions{
		Sort:   sortValue,
		Filter: withClause(query, fmt.Sprintf("(collections~%q)", collectionID)),
		Expand: expandContentsNoTag,
	})
}

// FetchSavedCollections loads one page of the current user's collections.
func (b *Browser) FetchSavedCollections(ctx context.Context, page int) error {
	user := b.session.User()
	if user == nil {
		return fmt.Errorf("not authenticated")
	}

	query, _ := b.buildQuery("")
	return fetchPage(ctx, b, b.SavedCollections, VariantSavedCollections, remote.CollectionCollections, page, remote.ListOptions{
		Sort:   "-created",
		Filter: withClause(query, fmt.Sprintf("(user?~'%s')", user.ID)),
		Expand: expandCollections,
	})
}

// FetchMyContents loads one page of the contents uploaded by the current
// user's uploader identity.
func (b *Browser) FetchMyContents(ctx context.Context, page int) error {
	uploader := b.session.Uploader()
	if uploader == nil {
		return fmt.Errorf("no uploader identity for current user")
	}

	query, _ := b.buildQuery("")
	return fetchPage(ctx, b, b.MyContents, VariantMyContents, remote.CollectionContents, page, remote.ListOptions{
		Sort:   "-created",
		Filter: withClause(query, fmt.Sprintf("(uploader.id=%q)", uploader.ID)),
		Expand: expandContents,
	})
}

// FetchItem loads a single content record with its detail relations.
func (b *Browser) FetchItem(ctx context.Context, id string) (models.Content, error) {
	return remote.GetOne[models.Content](ctx, b.client, remote.CollectionContents, id, remote.ListOptions{
		Expand: expandContentDetail,
	})
}
