// Package web exposes the gallery over a local HTTP API. Handlers are thin:
// they parse the request, call into the gallery and preference layers, and
// encode the result as JSON.
package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/activity"
	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/config"
	"github.com/picvault/picvault/internal/gallery"
	"github.com/picvault/picvault/internal/prefs"
	"github.com/picvault/picvault/internal/thumbnails"
)

// Server represents the web server
type Server struct {
	Config       *config.Config
	Store        *prefs.Store
	Session      *auth.Session
	Browser      *gallery.Browser
	Catalog      *gallery.Catalog
	Toggler      *gallery.LikeToggler
	Tracker      *activity.Tracker
	ThumbnailGen *thumbnails.Generator

	handler           http.Handler
	websocketUpgrader websocket.Upgrader
}

// New creates a new web server
func New(cfg *config.Config, store *prefs.Store, session *auth.Session, browser *gallery.Browser, catalog *gallery.Catalog, toggler *gallery.LikeToggler, tracker *activity.Tracker, thumbnailGen *thumbnails.Generator) *Server {
	s := &Server{
		Config:       cfg,
		Store:        store,
		Session:      session,
		Browser:      browser,
		Catalog:      catalog,
		Toggler:      toggler,
		Tracker:      tracker,
		ThumbnailGen: thumbnailGen,
		websocketUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local single-user server
			},
		},
	}
	s.setupRoutes()
	return s
}

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		csp := "default-src 'self'; " +
			"img-src 'self' data: https:; " +
			"media-src 'self' https:; " +
			"connect-src 'self'; " +
			"object-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	mux := http.NewServeMux()

	// Gallery feeds and single items
	mux.HandleFunc("/api/gallery", s.handleGallery)
	mux.HandleFunc("/api/items/", s.handleGetItem)

	// Facet catalog and saved filters
	mux.HandleFunc("/api/catalog", s.handleCatalog)
	mux.HandleFunc("/api/saved-filters", s.handleSavedFilters)
	mux.HandleFunc("/api/saved-filters/", s.handleSavedFilterByID)

	// Persisted preferences
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/filters/query", s.handleFiltersQuery)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/most-liked", s.handleMostLiked)
	mux.HandleFunc("/api/settings", s.handleSettings)

	// Likes
	mux.HandleFunc("/api/likes/toggle", s.handleLikeToggle)

	// Auth
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/logout", s.handleLogout)
	mux.HandleFunc("/api/auth/me", s.handleMe)

	// WebSocket endpoint for real-time activity
	mux.HandleFunc("/ws/activity", s.handleWebSocket)

	// Locally generated thumbnails
	mux.HandleFunc("/thumbnails", s.handleThumbnail)

	// Wrap with security headers middleware
	s.handler = securityHeadersMiddleware(mux)
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.WebServer.Host, s.Config.WebServer.Port)
	log.Infof("Starting web server on http://%s", addr)
	return http.ListenAndServe(addr, s.handler)
}
