// Package filter builds the remote record store's filter expressions from
// the user's faceted filter state, and round-trips that state to a
// human-readable URL query string.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Facet keys, in the order their clauses appear in a built expression.
const (
	FacetIdol     = "idol"
	FacetGroup    = "group"
	FacetTag      = "tag"
	FacetUploader = "uploader"
	FacetFileType = "filetype"
)

// FacetOrder lists every facet key in emission order.
var FacetOrder = []string{FacetIdol, FacetGroup, FacetTag, FacetUploader, FacetFileType}

// Kind discriminates how a facet value is matched in the remote query
// language. It is resolved once when the value is selected, not at build time.
type Kind int

const (
	// KindNamed matches a related entity by its name field.
	KindNamed Kind = iota + 1
	// KindCoded matches a related entity by its code field.
	KindCoded
	// KindOption matches a plain field against a fixed option value.
	KindOption
)

// FacetValue is one selected value for a facet.
type FacetValue struct {
	Kind  Kind   `json:"kind"`
	Name  string `json:"name,omitempty"`
	Code  string `json:"code,omitempty"`
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

// Named returns a facet value matched by entity name.
func Named(name string) FacetValue {
	return FacetValue{Kind: KindNamed, Name: name}
}

// Coded returns a facet value matched by entity code.
func Coded(code string) FacetValue {
	return FacetValue{Kind: KindCoded, Code: code}
}

// Option returns a facet value matched against a fixed option value.
func Option(label, value string) FacetValue {
	return FacetValue{Kind: KindOption, Label: label, Value: value}
}

// ContentTypes are the built-in file type options.
var ContentTypes = []FacetValue{
	Option("Gifs", "video"),
	Option("Pics", "image"),
}

// Sort selections.
const (
	SortRecent = "recent"
	SortLiked  = "liked"
)

// Date comparison modes.
const (
	DateModeCreated = "created"
	DateModeActual  = "actual"
)

// Sort keys in the remote query language.
const (
	sortByCreated = "-created"
	sortByLikes   = "-likes:length"
)

// State is the in-memory filter state. Facet lists are independent; an empty
// list means no constraint on that facet. Date holds zero or two instants.
type State struct {
	Idol     []FacetValue `json:"idol"`
	Group    []FacetValue `json:"group"`
	Tag      []FacetValue `json:"tag"`
	Uploader []FacetValue `json:"uploader"`
	FileType []FacetValue `json:"filetype"`
	Date     []time.Time  `json:"date"`
	DateMode string       `json:"dateMode"`
	Sort     string       `json:"sort"`
}

// Default returns the filter state used before the user selects anything and
// after an explicit reset.
func Default() State {
	return State{
		Idol:     []FacetValue{},
		Group:    []FacetValue{},
		Tag:      []FacetValue{},
		Uploader: []FacetValue{},
		FileType: []FacetValue{},
		Date:     []time.Time{},
		DateMode: DateModeCreated,
		Sort:     SortRecent,
	}
}

// Facet returns the selected values for a facet key.
func (s *State) Facet(key string) []FacetValue {
	switch key {
	case FacetIdol:
		return s.Idol
	case FacetGroup:
		return s.Group
	case FacetTag:
		return s.Tag
	case FacetUploader:
		return s.Uploader
	case FacetFileType:
		return s.FileType
	}
	return nil
}

// SetFacet replaces the selected values for a facet key.
func (s *State) SetFacet(key string, values []FacetValue) {
	switch key {
	case FacetIdol:
		s.Idol = values
	case FacetGroup:
		s.Group = values
	case FacetTag:
		s.Tag = values
	case FacetUploader:
		s.Uploader = values
	case FacetFileType:
		s.FileType = values
	}
}

// IsSet reports whether any facet or the date range has a selection.
func (s *State) IsSet() bool {
	for _, key := range FacetOrder {
		if len(s.Facet(key)) > 0 {
			return true
		}
	}
	return len(s.Date) > 0
}

// MostLikedMode selects a relative time window that overrides the explicit
// date range and forces like-count sorting.
type MostLikedMode string

const (
	MostLikedAllTime     MostLikedMode = "alltime"
	MostLikedOneYear     MostLikedMode = "1year"
	MostLikedSixMonths   MostLikedMode = "6months"
	MostLikedThreeMonths MostLikedMode = "3months"
	MostLikedOneMonth    MostLikedMode = "1month"
	MostLikedOneWeek     MostLikedMode = "1week"
)

// Valid reports whether the mode is one of the known windows.
func (m MostLikedMode) Valid() bool {
	switch m {
	case MostLikedAllTime, MostLikedOneYear, MostLikedSixMonths, MostLikedThreeMonths, MostLikedOneMonth, MostLikedOneWeek:
		return true
	}
	return false
}

// Window computes the mode's inclusive date range relative to now. The start
// is normalized to 00:00:00 and the end to 23:59:59.999 of their days.
func (m MostLikedMode) Window(now time.Time) (time.Time, time.Time, error) {
	var start time.Time

	switch m {
	case MostLikedAllTime:
		start = time.Date(2000, time.January, 1, 0, 0, 0, 0, now.Location())
	case MostLikedOneYear:
		start = now.AddDate(-1, 0, 0)
	case MostLikedSixMonths:
		start = now.AddDate(0, -6, 0)
	case MostLikedThreeMonths:
		start = now.AddDate(0, -3, 0)
	case MostLikedOneMonth:
		start = now.AddDate(0, -1, 0)
	case MostLikedOneWeek:
		start = now.AddDate(0, 0, -7)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid most-liked mode: %q", m)
	}

	start = dayStart(start)
	end := dayEnd(now)
	return start, end, nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Build composes the remote filter expression and sort key from the filter
// state. relationPrefix selects dotted relation-path field names when the
// contents fields are filtered through a parent collection (e.g. "content.").
func Build(state State, searchText string, mode MostLikedMode, relationPrefix string) (string, string) {
	return buildAt(state, searchText, mode, relationPrefix, time.Now())
}

// buildAt is Build with an injectable clock.
func buildAt(state State, searchText string, mode MostLikedMode, relationPrefix string, now time.Time) (string, string) {
	var clauses []string
	sortValue := sortByCreated

	if mode != "" {
		start, end, err := mode.Window(now)
		if err != nil {
			log.Errorf("Ignoring date window: %v", err)
		} else {
			clauses = append(clauses, dateClause(relationPrefix, start, end))
		}
	} else if len(state.Date) == 2 && !state.Date[0].IsZero() && !state.Date[1].IsZero() {
		start := state.Date[0]
		end := dayEnd(state.Date[1])
		clauses = append(clauses, dateClause(relationPrefix, start, end))
	}

	if searchText != "" {
		clauses = append(clauses, relationPrefix+`title~"`+escapeSearch(searchText)+`"`)
	}

	for _, key := range FacetOrder {
		values := state.Facet(key)
		if len(values) == 0 {
			continue
		}

		var group []string
		for _, v := range values {
			switch v.Kind {
			case KindNamed:
				group = append(group, relationPrefix+key+`.name?="`+escapeSearch(v.Name)+`"`)
			case KindCoded:
				group = append(group, relationPrefix+key+`.code?="`+escapeSearch(v.Code)+`"`)
			case KindOption:
				group = append(group, relationPrefix+key+`?="`+escapeSearch(v.Value)+`"`)
			default:
				// Unresolved value, skip rather than emit a broken clause.
			}
		}

		if len(group) > 0 {
			clauses = append(clauses, "("+strings.Join(group, "||")+")")
		}
	}

	if state.Sort == SortLiked || mode != "" {
		sortValue = sortByLikes
	}

	return strings.Join(clauses, "&&"), sortValue
}

// BuildStored is Build over a stored JSON filter state. A malformed document
// must not crash the caller: it degrades to an empty expression and the
// default sort key.
func BuildStored(stored []byte, searchText string, mode MostLikedMode, relationPrefix string) (string, string) {
	state := Default()
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &state); err != nil {
			log.Errorf("Failed to parse stored filters: %v", err)
			return "", sortByCreated
		}
	}
	return Build(state, searchText, mode, relationPrefix)
}

func dateClause(prefix string, start, end time.Time) string {
	startStr := start.Format("2006-01-02") + " 00:00:00"
	endStr := end.Format("2006-01-02") + " 23:59:59"
	return fmt.Sprintf("%screated>='%s'&&%screated<='%s'", prefix, startStr, prefix, endStr)
}

// escapeSearch strips control characters and escapes the structural
// characters of the remote query grammar so user input cannot break out of
// the quoted search literal.
func escapeSearch(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r < 0x20 || r == 0x7f:
			// Drop control characters outright.
		case r == '\\' || r == '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
