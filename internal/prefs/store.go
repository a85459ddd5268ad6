// Package prefs persists per-user view preferences (filter state, display
// settings, search text, most-liked mode) in a local SQLite database, and
// hosts the cache index for data-saving thumbnails.
package prefs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/filter"
)

// Preference keys. Filters and settings are independent domains; they are
// saved separately and can be out of sync with each other.
const (
	keyFilters       = "filters"
	keySearchValue   = "searchValue"
	keyMostLikedMode = "mostLikedMode"
	keySettings      = "settings"
)

// Store is the local preference database.
type Store struct {
	*sqlx.DB
}

// Open opens (creating if needed) the preference database at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping preference database: %w", err)
	}

	store := &Store{DB: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS thumbnail_cache (
		url_hash TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		file_path TEXT NOT NULL,
		width INTEGER,
		height INTEGER,
		generated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_thumbnail_generated ON thumbnail_cache(generated_at);
	`

	if _, err := s.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// get returns the stored value for a key; ok is false when the key is unset.
func (s *Store) get(key string) (string, bool, error) {
	var value string
	err := s.Get(&value, `SELECT value FROM preferences WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read preference %q: %w", key, err)
	}
	return value, true, nil
}

// set writes the value for a key unconditionally.
func (s *Store) set(key, value string) error {
	query := `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write preference %q: %w", key, err)
	}
	return nil
}

// delete removes a key.
func (s *Store) delete(key string) error {
	if _, err := s.Exec(`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference %q: %w", key, err)
	}
	return nil
}

// FiltersLoad reads the stored filter state. Unlike the query-build path,
// a malformed stored document propagates as an error here.
func (s *Store) FiltersLoad() (filter.State, error) {
	state := filter.Default()

	raw, ok, err := s.get(keyFilters)
	if err != nil {
		return state, err
	}
	if !ok {
		return state, nil
	}

	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return filter.Default(), fmt.Errorf("failed to parse stored filters: %w", err)
	}
	return state, nil
}

// FiltersRaw returns the stored filter document without parsing it, for the
// query-build path which degrades on malformed input instead of failing.
func (s *Store) FiltersRaw() []byte {
	raw, ok, err := s.get(keyFilters)
	if err != nil {
		log.Errorf("Failed to read stored filters: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	return []byte(raw)
}

// FiltersSave serializes and persists the filter state unconditionally.
// A single-endpoint date range is completed to a same-day range first.
func (s *Store) FiltersSave(state filter.State) error {
	if len(state.Date) == 1 && !state.Date[0].IsZero() {
		state.Date = append(state.Date, state.Date[0])
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}
	return s.set(keyFilters, string(data))
}

// FiltersReset restores the default filter state, clears the search text and
// most-liked mode, and persists the defaults.
func (s *Store) FiltersReset() (filter.State, error) {
	if err := s.delete(keySearchValue); err != nil {
		return filter.State{}, err
	}
	if err := s.delete(keyMostLikedMode); err != nil {
		return filter.State{}, err
	}

	state := filter.Default()
	if err := s.FiltersSave(state); err != nil {
		return filter.State{}, err
	}
	return state, nil
}

// SearchValue returns the stored free-text search, empty when unset.
func (s *Store) SearchValue() string {
	value, _, err := s.get(keySearchValue)
	if err != nil {
		log.Errorf("Failed to read search value: %v", err)
		return ""
	}
	return value
}

// SetSearchValue persists the free-text search. An empty value clears it.
func (s *Store) SetSearchValue(value string) error {
	if value == "" {
		return s.delete(keySearchValue)
	}
	return s.set(keySearchValue, value)
}

// MostLikedMode returns the stored most-liked window, empty when unset.
func (s *Store) MostLikedMode() filter.MostLikedMode {
	value, _, err := s.get(keyMostLikedMode)
	if err != nil {
		log.Errorf("Failed to read most-liked mode: %v", err)
		return ""
	}
	return filter.MostLikedMode(value)
}

// SetMostLikedMode persists the most-liked window. An empty mode clears it.
func (s *Store) SetMostLikedMode(mode filter.MostLikedMode) error {
	if mode == "" {
		return s.delete(keyMostLikedMode)
	}
	if !mode.Valid() {
		return fmt.Errorf("invalid most-liked mode: %q", mode)
	}
	return s.set(keyMostLikedMode, string(mode))
}

// SettingsLoad reads the stored display settings. A malformed stored
// document propagates as an error.
func (s *Store) SettingsLoad() (Settings, error) {
	settings := DefaultSettings()

	raw, ok, err := s.get(keySettings)
	if err != nil {
		return settings, err
	}
	if !ok {
		return settings, nil
	}

	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse stored settings: %w", err)
	}
	return settings, nil
}

// SettingsSave serializes and persists the display settings unconditionally.
func (s *Store) SettingsSave(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.set(keySettings, string(data))
}

// SettingsReset restores and persists the default display settings.
func (s *Store) SettingsReset() (Settings, error) {
	settings := DefaultSettings()
	if err := s.SettingsSave(settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Thumbnail is one row of the thumbnail cache index.
type Thumbnail struct {
	URLHash   string `db:"url_hash"`
	SourceURL string `db:"source_url"`
	FilePath  string `db:"file_path"`
	Width     int    `db:"width"`
	Height    int    `db:"height"`
}

// SaveThumbnail records a generated thumbnail in the cache index.
func (s *Store) SaveThumbnail(t Thumbnail) error {
	query := `
		INSERT OR REPLACE INTO thumbnail_cache (url_hash, source_url, file_path, width, height, generated_at)
		VALUES (:url_hash, :source_url, :file_path, :width, :height, datetime('now'))
	`
	if _, err := s.NamedExec(query, t); err != nil {
		return fmt.Errorf("failed to save thumbnail record: %w", err)
	}
	return nil
}

// GetThumbnail looks up a cached thumbnail by source URL hash. Returns nil
// when the thumbnail has not been generated.
func (s *Store) GetThumbnail(urlHash string) (*Thumbnail, error) {
	t := &Thumbnail{}
	err := s.Get(t, `SELECT url_hash, source_url, file_path, width, height FROM thumbnail_cache WHERE url_hash = ?`, urlHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get thumbnail record: %w", err)
	}
	return t, nil
}

// Close closes the preference database.
func (s *Store) Close() error {
	return s.DB.Close()
}
