package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/activity"
	"github.com/picvault/picvault/internal/filter"
	"github.com/picvault/picvault/internal/gallery"
	"github.com/picvault/picvault/internal/remote"
)

// respondJSON is a helper function to send JSON responses
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("Failed to encode JSON response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// respondRemoteError maps a record store failure onto an HTTP status.
func respondRemoteError(w http.ResponseWriter, err error) {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			http.Error(w, "Not found", http.StatusNotFound)
			return
		case http.StatusUnauthorized, http.StatusForbidden:
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}
	}
	http.Error(w, "Remote store request failed", http.StatusBadGateway)
}

// columns reads the column count from the display settings.
func (s *Server) columns() int {
	settings, err := s.Store.SettingsLoad()
	if err != nil {
		log.Errorf("Failed to load settings: %v", err)
		return 3
	}
	return settings.Columns()
}

// feedResponse shapes one feed's state for the API, with items already
// distributed into masonry columns.
func feedResponse[T any](state gallery.FeedState[T], columns int) map[string]interface{} {
	return map[string]interface{}{
		"items":      state.Items,
		"columns":    gallery.Distribute(state.Items, columns),
		"totalItems": state.TotalItems,
		"page":       state.Page,
		"loading":    state.Loading,
	}
}

// handleGallery fetches one page for a view variant and returns the feed
func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	variant := gallery.Variant(query.Get("variant"))
	if variant == "" {
		variant = gallery.VariantAllContents
	}

	page := 1
	if p := query.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	id := query.Get("id")

	ctx := r.Context()
	cols := s.columns()

	var (
		err      error
		response map[string]interface{}
	)

	switch variant {
	case gallery.VariantAllContents:
		err = s.Browser.FetchAllContents(ctx, page)
		response = feedResponse(s.Browser.AllContents.State(), cols)
	case gallery.VariantLikedContents:
		err = s.Browser.FetchLikedContents(ctx, page)
		response = feedResponse(s.Browser.LikedContents.State(), cols)
	case gallery.VariantAllSets:
		err = s.Browser.FetchAllSets(ctx, page)
		response = feedResponse(s.Browser.AllSets.State(), cols)
	case gallery.VariantAllCollections:
		err = s.Browser.FetchAllCollections(ctx, page)
		response = feedResponse(s.Browser.AllCollections.State(), cols)
	case gallery.VariantSetContents:
		if id == "" {
			http.Error(w, "Missing set id", http.StatusBadRequest)
			return
		}
		err = s.Browser.FetchSetContents(ctx, id, page)
		response = feedResponse(s.Browser.SetContents.State(), cols)
	case gallery.VariantCollectionContents:
		if id == "" {
			http.Error(w, "Missing collection id", http.StatusBadRequest)
			return
		}
		err = s.Browser.FetchCollectionContents(ctx, id, page)
		response = feedResponse(s.Browser.CollectionContents.State(), cols)
	case gallery.VariantSavedCollections:
		err = s.Browser.FetchSavedCollections(ctx, page)
		response = feedResponse(s.Browser.SavedCollections.State(), cols)
	case gallery.VariantMyContents:
		err = s.Browser.FetchMyContents(ctx, page)
		response = feedResponse(s.Browser.MyContents.State(), cols)
	default:
		http.Error(w, "Unknown gallery variant", http.StatusBadRequest)
		return
	}

	if err != nil {
		if !s.Session.Valid() && requiresAuth(variant) {
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		log.Errorf("Gallery fetch failed for %s: %v", variant, err)
		respondRemoteError(w, err)
		return
	}

	response["variant"] = variant
	respondJSON(w, response)
}

func requiresAuth(variant gallery.Variant) bool {
	switch variant {
	case gallery.VariantLikedContents, gallery.VariantSavedCollections, gallery.VariantMyContents:
		return true
	}
	return false
}

// handleGetItem returns a single content record with detail relations
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/items/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	item, err := s.Browser.FetchItem(r.Context(), id)
	if err != nil {
		log.Errorf("Failed to fetch item %s: %v", id, err)
		respondRemoteError(w, err)
		return
	}

	respondJSON(w, item)
}

// handleCatalog returns the facet value catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.Catalog.Load(r.Context())

	respondJSON(w, map[string]interface{}{
		"idols":        s.Catalog.Idols(),
		"groups":       s.Catalog.Groups(),
		"tags":         s.Catalog.Tags(),
		"uploaders":    s.Catalog.Uploaders(),
		"contentTypes": filter.ContentTypes,
	})
}

// handleFilters manages the persisted filter state
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := s.Store.FiltersLoad()
		if err != nil {
			log.Errorf("Failed to load filters: %v", err)
			http.Error(w, "Stored filters are unreadable", http.StatusInternalServerError)
			return
		}
		respondJSON(w, state)

	case http.MethodPut:
		var state filter.State
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.Store.FiltersSave(state); err != nil {
			log.Errorf("Failed to save filters: %v", err)
			http.Error(w, "Failed to save filters", http.StatusInternalServerError)
			return
		}
		respondJSON(w, state)

	case http.MethodDelete:
		state, err := s.Store.FiltersReset()
		if err != nil {
			log.Errorf("Failed to reset filters: %v", err)
			http.Error(w, "Failed to reset filters", http.StatusInternalServerError)
			return
		}
		respondJSON(w, state)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFiltersQuery round-trips the filter state through its URL query
// form: GET encodes the current state, POST applies query parameters to it.
func (s *Server) handleFiltersQuery(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := s.Store.FiltersLoad()
		if err != nil {
			log.Errorf("Failed to load filters: %v", err)
			http.Error(w, "Stored filters are unreadable", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]string{"query": filter.EncodeQuery(state)})

	case http.MethodPost:
		state, err := s.Store.FiltersLoad()
		if err != nil {
			state = filter.Default()
		}

		s.Catalog.Load(r.Context())
		filter.ApplyQuery(&state, r.URL.Query(), s.Catalog.Lookup())

		if err := s.Store.FiltersSave(state); err != nil {
			log.Errorf("Failed to save filters: %v", err)
			http.Error(w, "Failed to save filters", http.StatusInternalServerError)
			return
		}
		respondJSON(w, state)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSearch manages the persisted free-text search value
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, map[string]string{"search": s.Store.SearchValue()})

	case http.MethodPut:
		var body struct {
			Search string `json:"search"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.Store.SetSearchValue(body.Search); err != nil {
			log.Errorf("Failed to save search value: %v", err)
			http.Error(w, "Failed to save search value", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]string{"search": body.Search})

	case http.MethodDelete:
		if err := s.Store.SetSearchValue(""); err != nil {
			log.Errorf("Failed to clear search value: %v", err)
			http.Error(w, "Failed to clear search value", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]string{"search": ""})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMostLiked manages the persisted most-liked window
func (s *Server) handleMostLiked(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, map[string]string{"mode": string(s.Store.MostLikedMode())})

	case http.MethodPut:
		var body struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.Store.SetMostLikedMode(filter.MostLikedMode(body.Mode)); err != nil {
			http.Error(w, "Invalid most-liked mode", http.StatusBadRequest)
			return
		}
		respondJSON(w, map[string]string{"mode": body.Mode})

	case http.MethodDelete:
		if err := s.Store.SetMostLikedMode(""); err != nil {
			log.Errorf("Failed to clear most-liked mode: %v", err)
			http.Error(w, "Failed to clear most-liked mode", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]string{"mode": ""})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSettings manages the persisted display settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.Store.SettingsLoad()
		if err != nil {
			log.Errorf("Failed to load settings: %v", err)
			http.Error(w, "Stored settings are unreadable", http.StatusInternalServerError)
			return
		}
		respondJSON(w, settings)

	case http.MethodPut:
		settings, err := s.Store.SettingsLoad()
		if err != nil {
			http.Error(w, "Stored settings are unreadable", http.StatusInternalServerError)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		settings.Normalize()
		if err := s.Store.SettingsSave(settings); err != nil {
			log.Errorf("Failed to save settings: %v", err)
			http.Error(w, "Failed to save settings", http.StatusInternalServerError)
			return
		}
		respondJSON(w, settings)

	case http.MethodDelete:
		settings, err := s.Store.SettingsReset()
		if err != nil {
			log.Errorf("Failed to reset settings: %v", err)
			http.Error(w, "Failed to reset settings", http.StatusInternalServerError)
			return
		}
		respondJSON(w, settings)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLikeToggle flips the current user's like on a content record
func (s *Server) handleLikeToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !s.Session.Valid() {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	content, err := s.Browser.FetchItem(r.Context(), body.ID)
	if err != nil {
		log.Errorf("Failed to fetch content %s for like toggle: %v", body.ID, err)
		respondRemoteError(w, err)
		return
	}

	liked, err := s.Toggler.Toggle(r.Context(), &content)
	if err != nil {
		log.Errorf("Failed to toggle like on %s: %v", body.ID, err)
		respondRemoteError(w, err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"id":    content.ID,
		"liked": liked,
		"likes": len(content.Likes),
	})
}

// handleLogin signs in against the remote store
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Identity == "" || body.Password == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Session.Login(r.Context(), body.Identity, body.Password); err != nil {
		log.Warnf("Login failed for %s: %v", body.Identity, err)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	s.Tracker.Publish(activity.Event{Type: activity.TypeAuth, Variant: "login"})
	respondJSON(w, map[string]interface{}{
		"user":     s.Session.User(),
		"uploader": s.Session.Uploader(),
	})
}

// handleRegister creates a user account and signs in
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.PasswordConfirm == "" {
		body.PasswordConfirm = body.Password
	}

	if err := s.Session.Register(r.Context(), body.Email, body.Password, body.PasswordConfirm); err != nil {
		log.Warnf("Registration failed for %s: %v", body.Email, err)
		respondRemoteError(w, err)
		return
	}

	s.Tracker.Publish(activity.Event{Type: activity.TypeAuth, Variant: "register"})
	respondJSON(w, map[string]interface{}{
		"user": s.Session.User(),
	})
}

// handleLogout drops the current session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.Session.Logout()
	s.Tracker.Publish(activity.Event{Type: activity.TypeAuth, Variant: "logout"})
	respondJSON(w, map[string]bool{"ok": true})
}

// handleMe returns the current session state
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, map[string]interface{}{
		"authenticated": s.Session.Valid(),
		"user":          s.Session.User(),
		"uploader":      s.Session.Uploader(),
	})
}

// handleSavedFilters lists and creates saved filter presets
func (s *Server) handleSavedFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.Catalog.RefreshSavedFilters(r.Context())
		respondJSON(w, map[string]interface{}{
			"filters": s.Catalog.SavedFilters(),
		})

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		state, err := s.Store.FiltersLoad()
		if err != nil {
			http.Error(w, "Stored filters are unreadable", http.StatusInternalServerError)
			return
		}

		record, err := s.Catalog.SaveFilter(r.Context(), body.Name, state)
		if err != nil {
			log.Errorf("Failed to save filter preset: %v", err)
			if !s.Session.Valid() {
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}
			respondRemoteError(w, err)
			return
		}
		respondJSON(w, record)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSavedFilterByID deletes a preset or applies it as the current state
func (s *Server) handleSavedFilterByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/saved-filters/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Invalid filter id", http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodDelete && action == "":
		if err := s.Catalog.DeleteFilter(r.Context(), id); err != nil {
			log.Errorf("Failed to delete filter preset %s: %v", id, err)
			respondRemoteError(w, err)
			return
		}
		respondJSON(w, map[string]bool{"ok": true})

	case r.Method == http.MethodPost && action == "apply":
		s.Catalog.RefreshSavedFilters(r.Context())
		for _, record := range s.Catalog.SavedFilters() {
			if record.ID != id {
				continue
			}
			state, err := gallery.DecodeSavedFilter(record)
			if err != nil {
				log.Errorf("Saved filter %s is unreadable: %v", id, err)
				http.Error(w, "Saved filter is unreadable", http.StatusUnprocessableEntity)
				return
			}
			if err := s.Store.FiltersSave(state); err != nil {
				http.Error(w, "Failed to save filters", http.StatusInternalServerError)
				return
			}
			respondJSON(w, state)
			return
		}
		http.Error(w, "Saved filter not found", http.StatusNotFound)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWebSocket handles WebSocket connections for real-time activity
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.Tracker == nil {
		http.Error(w, "Activity tracking not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	s.Tracker.RegisterClient(conn)

	// Keep connection alive and listen for close
	go func() {
		defer s.Tracker.UnregisterClient(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// handleThumbnail serves a locally generated thumbnail for a media URL
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.ThumbnailGen == nil {
		http.Error(w, "Thumbnails not available", http.StatusServiceUnavailable)
		return
	}

	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}
	mediaType := r.URL.Query().Get("type")

	thumb, err := s.ThumbnailGen.Get(r.Context(), mediaURL, mediaType)
	if err != nil {
		log.Errorf("Failed to generate thumbnail for %s: %v", mediaURL, err)
		http.Error(w, "Failed to generate thumbnail", http.StatusBadGateway)
		return
	}

	http.ServeFile(w, r, thumb.FilePath)
}
