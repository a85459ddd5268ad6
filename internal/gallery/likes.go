package gallery

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/activity"
	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/models"
	"github.com/picvault/picvault/internal/remote"
)

// LikeToggler flips the (user, content) like state. Each toggle is two
// remote writes: the like record itself and the content's denormalized
// like-reference list; when the second write fails the first is compensated
// so the pair doesn't drift apart.
type LikeToggler struct {
	client  *remote.Client
	session *auth.Session
	tracker *activity.Tracker
}

// NewLikeToggler creates a toggler. tracker may be nil.
func NewLikeToggler(client *remote.Client, session *auth.Session, tracker *activity.Tracker) *LikeToggler {
	return &LikeToggler{client: client, session: session, tracker: tracker}
}

// IsLiked reports whether the current user has liked the content, by
// scanning its expanded like records.
func (l *LikeToggler) IsLiked(content *models.Content) bool {
	user := l.session.User()
	if user == nil {
		return false
	}
	for _, like := range content.Expand.Likes {
		if like.User == user.ID {
			return true
		}
	}
	return false
}

// Toggle flips the like state for the content and updates its expanded like
// list in place. Requires an authenticated user; returns the new state.
func (l *LikeToggler) Toggle(ctx context.Context, content *models.Content) (bool, error) {
	user := l.session.User()
	if user == nil {
		return false, fmt.Errorf("user is not authenticated")
	}

	if l.IsLiked(content) {
		if err := l.unlike(ctx, user.ID, content); err != nil {
			return true, err
		}
		l.tracker.Publish(activity.Event{Type: activity.TypeLike, ContentID: content.ID, Liked: false})
		return false, nil
	}

	if err := l.like(ctx, user.ID, content); err != nil {
		return false, err
	}
	l.tracker.Publish(activity.Event{Type: activity.TypeLike, ContentID: content.ID, Liked: true})
	return true, nil
}

// like creates the like record, then appends it to the content's
// denormalized reference list. If the append fails the created record is
// deleted again.
func (l *LikeToggler) like(ctx context.Context, userID string, content *models.Content) error {
	record, err := remote.Create[models.Like](ctx, l.client, remote.CollectionLikes, map[string]string{
		"user":    userID,
		"content": content.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to create like record: %w", err)
	}

	update := map[string]any{"likes+": record.ID}
	if _, err := remote.Update[models.Content](ctx, l.client, remote.CollectionContents, content.ID, update); err != nil {
		// Compensate: drop the orphaned like record.
		if delErr := l.client.Delete(ctx, remote.CollectionLikes, record.ID); delErr != nil {
			log.Errorf("Failed to roll back like record %s: %v", record.ID, delErr)
		}
		return fmt.Errorf("failed to update like references: %w", err)
	}

	content.Likes = append(content.Likes, record.ID)
	content.Expand.Likes = append(content.Expand.Likes, record)
	return nil
}

// unlike deletes the like record, then removes it from the content's
// denormalized reference list. If the removal fails a replacement like
// record is created, since the deleted one cannot be restored.
func (l *LikeToggler) unlike(ctx context.Context, userID string, content *models.Content) error {
	var record *models.Like
	for i := range content.Expand.Likes {
		if content.Expand.Likes[i].User == userID {
			record = &content.Expand.Likes[i]
			break
		}
	}
	if record == nil {
		return fmt.Errorf("no like record for current user on content %s", content.ID)
	}
	likeID := record.ID

	if err := l.client.Delete(ctx, remote.CollectionLikes, likeID); err != nil {
		return fmt.Errorf("failed to delete like record: %w", err)
	}

	update := map[string]any{"likes-": likeID}
	if _, err := remote.Update[models.Content](ctx, l.client, remote.CollectionContents, content.ID, update); err != nil {
		// Compensate: the deleted record cannot come back under the same
		// id, so create a replacement to keep the pair consistent.
		if _, createErr := remote.Create[models.Like](ctx, l.client, remote.CollectionLikes, map[string]string{
			"user":    userID,
			"content": content.ID,
		}); createErr != nil {
			log.Errorf("Failed to restore like record for content %s: %v", content.ID, createErr)
		}
		return fmt.Errorf("failed to update like references: %w", err)
	}

	content.Likes = removeString(content.Likes, likeID)
	for i := range content.Expand.Likes {
		if content.Expand.Likes[i].ID == likeID {
			content.Expand.Likes = append(content.Expand.Likes[:i], content.Expand.Likes[i+1:]...)
			break
		}
	}
	return nil
}

func removeString(values []string, target string) []string {
	for i, v := range values {
		if v == target {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}
