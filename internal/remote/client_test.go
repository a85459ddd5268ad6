package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/picvault/picvault/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, 1000, 1000)
}

func TestAuthWithPassword(t *testing.T) {
	var gotBody map[string]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/users/auth-with-password" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		user := models.User{Username: "alice"}
		user.ID = "u1"
		json.NewEncoder(w).Encode(map[string]any{"token": "tok123", "record": user})
	}))

	user, err := client.AuthWithPassword(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("AuthWithPassword() error = %v", err)
	}
	if gotBody["identity"] != "alice@example.com" || gotBody["password"] != "secret" {
		t.Errorf("request body = %v", gotBody)
	}
	if user.ID != "u1" {
		t.Errorf("user.ID = %q, want u1", user.ID)
	}
	if client.AuthToken() != "tok123" {
		t.Errorf("AuthToken() = %q, want tok123", client.AuthToken())
	}
	if !client.AuthValid() {
		t.Error("AuthValid() = false after successful auth")
	}

	client.ClearAuth()
	if client.AuthValid() || client.AuthToken() != "" {
		t.Error("session not cleared")
	}
}

func TestAuthorizationHeaderSent(t *testing.T) {
	var gotAuth string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/collections/users/auth-with-password":
			json.NewEncoder(w).Encode(map[string]any{"token": "tok123", "record": models.User{}})
		default:
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(models.Page[models.Tag]{Page: 1, TotalPages: 1})
		}
	}))

	if _, err := client.AuthWithPassword(context.Background(), "a", "b"); err != nil {
		t.Fatalf("AuthWithPassword() error = %v", err)
	}
	if _, err := GetList[models.Tag](context.Background(), client, CollectionTags, 1, 10, ListOptions{}); err != nil {
		t.Fatalf("GetList() error = %v", err)
	}
	if gotAuth != "tok123" {
		t.Errorf("Authorization header = %q, want tok123", gotAuth)
	}
}

func TestGetListQueryParameters(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("perPage") != "24" {
			t.Errorf("pagination = %s/%s", q.Get("page"), q.Get("perPage"))
		}
		if q.Get("sort") != "-created" {
			t.Errorf("sort = %q", q.Get("sort"))
		}
		if q.Get("filter") != `(idol.name?="a")` {
			t.Errorf("filter = %q", q.Get("filter"))
		}
		if q.Get("expand") != "idol,group" {
			t.Errorf("expand = %q", q.Get("expand"))
		}
		json.NewEncoder(w).Encode(models.Page[models.Content]{Page: 2, PerPage: 24, TotalItems: 30, TotalPages: 2})
	}))

	result, err := GetList[models.Content](context.Background(), client, CollectionContents, 2, 24, ListOptions{
		Sort:   "-created",
		Filter: `(idol.name?="a")`,
		Expand: "idol,group",
	})
	if err != nil {
		t.Fatalf("GetList() error = %v", err)
	}
	if result.TotalItems != 30 || result.Page != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestGetFullListDrainsPages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		items := []models.Tag{}
		switch page {
		case "1":
			for i := 0; i < fullListBatch; i++ {
				tag := models.Tag{Name: fmt.Sprintf("tag%03d", i)}
				tag.ID = fmt.Sprintf("t%03d", i)
				items = append(items, tag)
			}
		case "2":
			tag := models.Tag{Name: "last"}
			tag.ID = "tlast"
			items = append(items, tag)
		default:
			t.Errorf("unexpected page %q", page)
		}
		json.NewEncoder(w).Encode(models.Page[models.Tag]{
			Page:       1,
			PerPage:    fullListBatch,
			TotalItems: fullListBatch + 1,
			TotalPages: 2,
			Items:      items,
		})
	}))

	all, err := GetFullList[models.Tag](context.Background(), client, CollectionTags, ListOptions{Sort: "name"})
	if err != nil {
		t.Fatalf("GetFullList() error = %v", err)
	}
	if len(all) != fullListBatch+1 {
		t.Fatalf("len(all) = %d, want %d", len(all), fullListBatch+1)
	}
	if all[len(all)-1].Name != "last" {
		t.Errorf("last item = %q, want last", all[len(all)-1].Name)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  404,
			"message": "The requested resource wasn't found.",
			"data":    map[string]any{},
		})
	}))

	_, err := GetOne[models.Content](context.Background(), client, CollectionContents, "missing", ListOptions{})
	if err == nil {
		t.Fatal("GetOne() expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", apiErr.Status)
	}
	if apiErr.Message != "The requested resource wasn't found." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestAPIErrorWithoutBodyFallsBackToStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.Delete(context.Background(), CollectionLikes, "x")
	if err == nil {
		t.Fatal("Delete() expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", apiErr.Status)
	}
}
