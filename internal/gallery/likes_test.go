package gallery

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/picvault/picvault/internal/models"
)

// fakeLikeStore is an HTTP handler emulating the like and content
// collections for toggler tests.
type fakeLikeStore struct {
	t *testing.T

	failReferenceUpdate bool

	createdLikes   int
	deletedLikes   []string
	patchedContent []string
}

func (f *fakeLikeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/collections/users/auth-with-password":
		user := models.User{Username: "u"}
		user.ID = "user1"
		writeJSONValue(w, map[string]any{"token": "tok", "record": user})

	case r.URL.Path == "/api/collections/uploaders/records":
		writeJSONValue(w, models.Page[models.Uploader]{Page: 1, TotalPages: 1, Items: []models.Uploader{}})

	case r.Method == http.MethodPost && r.URL.Path == "/api/collections/users_likes/records":
		f.createdLikes++
		like := models.Like{User: "user1", Content: "c1"}
		like.ID = "like1"
		writeJSONValue(w, like)

	case r.Method == http.MethodDelete && r.URL.Path == "/api/collections/users_likes/records/like1":
		f.deletedLikes = append(f.deletedLikes, "like1")
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPatch && r.URL.Path == "/api/collections/contents/records/c1":
		if f.failReferenceUpdate {
			http.Error(w, `{"message":"boom"}`, http.StatusBadRequest)
			return
		}
		f.patchedContent = append(f.patchedContent, "c1")
		content := models.Content{}
		content.ID = "c1"
		writeJSONValue(w, content)

	default:
		f.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	}
}

func writeJSONValue(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newLikeEnv(t *testing.T, store *fakeLikeStore) (*testEnv, *LikeToggler) {
	t.Helper()
	store.t = t
	env, _ := newTestEnv(t, store)
	if err := env.session.Login(context.Background(), "u@example.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return env, NewLikeToggler(env.client, env.session, nil)
}

func TestToggleRequiresAuth(t *testing.T) {
	env, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected remote call without authentication")
	}))
	toggler := NewLikeToggler(env.client, env.session, nil)

	content := models.Content{}
	content.ID = "c1"
	if _, err := toggler.Toggle(context.Background(), &content); err == nil {
		t.Error("Toggle() expected error when signed out")
	}
}

func TestToggleLikeThenUnlike(t *testing.T) {
	store := &fakeLikeStore{}
	_, toggler := newLikeEnv(t, store)

	content := models.Content{}
	content.ID = "c1"

	liked, err := toggler.Toggle(context.Background(), &content)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !liked {
		t.Error("Toggle() = false, want true")
	}
	if !toggler.IsLiked(&content) {
		t.Error("IsLiked() = false after like")
	}
	if len(content.Likes) != 1 || content.Likes[0] != "like1" {
		t.Errorf("content.Likes = %v, want [like1]", content.Likes)
	}
	if store.createdLikes != 1 || len(store.patchedContent) != 1 {
		t.Errorf("remote writes = %d creates, %d patches, want 1/1", store.createdLikes, len(store.patchedContent))
	}

	liked, err = toggler.Toggle(context.Background(), &content)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if liked {
		t.Error("Toggle() = true, want false")
	}
	if toggler.IsLiked(&content) {
		t.Error("IsLiked() = true after unlike")
	}
	if len(content.Likes) != 0 || len(content.Expand.Likes) != 0 {
		t.Errorf("content likes not cleared: %v / %v", content.Likes, content.Expand.Likes)
	}
	if len(store.deletedLikes) != 1 {
		t.Errorf("deleted likes = %v, want [like1]", store.deletedLikes)
	}
}

func TestToggleRollsBackOnReferenceUpdateFailure(t *testing.T) {
	store := &fakeLikeStore{failReferenceUpdate: true}
	_, toggler := newLikeEnv(t, store)

	content := models.Content{}
	content.ID = "c1"

	liked, err := toggler.Toggle(context.Background(), &content)
	if err == nil {
		t.Fatal("Toggle() expected error when reference update fails")
	}
	if liked {
		t.Error("Toggle() = true, want false")
	}

	// The orphaned like record must have been deleted again.
	if len(store.deletedLikes) != 1 || store.deletedLikes[0] != "like1" {
		t.Errorf("deleted likes = %v, want [like1]", store.deletedLikes)
	}
	if toggler.IsLiked(&content) {
		t.Error("IsLiked() = true after rolled back like")
	}
	if len(content.Likes) != 0 {
		t.Errorf("content.Likes = %v, want empty", content.Likes)
	}
}
