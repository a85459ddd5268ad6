package filter

import (
	"net/url"
	"strings"
	"time"
)

// Lookup resolves human-readable facet names from a URL query back to the
// resolved facet values the catalog knows about. Keyed by facet key.
type Lookup map[string][]FacetValue

// find returns the catalog value whose name (or option value) matches.
func (l Lookup) find(key, text string) (FacetValue, bool) {
	for _, v := range l[key] {
		switch v.Kind {
		case KindNamed:
			if v.Name == text {
				return v, true
			}
		case KindCoded:
			if v.Code == text {
				return v, true
			}
		case KindOption:
			if v.Value == text {
				return v, true
			}
		}
	}
	return FacetValue{}, false
}

// EncodeQuery renders the filter state as a shareable URL query string.
// Facets are comma-separated percent-encoded names; values equal to the
// defaults are omitted.
func EncodeQuery(state State) string {
	var parts []string

	appendFacet := func(param, key string) {
		values := state.Facet(key)
		if len(values) == 0 {
			return
		}
		names := make([]string, 0, len(values))
		for _, v := range values {
			switch v.Kind {
			case KindNamed:
				names = append(names, url.QueryEscape(v.Name))
			case KindCoded:
				names = append(names, url.QueryEscape(v.Code))
			case KindOption:
				names = append(names, url.QueryEscape(v.Value))
			}
		}
		parts = append(parts, param+"="+strings.Join(names, ","))
	}

	appendFacet("idol", FacetIdol)
	appendFacet("group", FacetGroup)
	appendFacet("tag", FacetTag)
	appendFacet("uploader", FacetUploader)
	appendFacet("filetype", FacetFileType)

	if state.Sort != "" && state.Sort != SortRecent {
		parts = append(parts, "sort="+url.QueryEscape(state.Sort))
	}

	if len(state.Date) > 0 && !state.Date[0].IsZero() {
		start := state.Date[0].Format("2006-01-02")
		end := ""
		if len(state.Date) > 1 && !state.Date[1].IsZero() {
			end = state.Date[1].Format("2006-01-02")
		}
		if end != "" && end != start {
			parts = append(parts, "date="+url.QueryEscape(start)+","+url.QueryEscape(end))
		} else {
			parts = append(parts, "date="+url.QueryEscape(start))
		}
	}

	return strings.Join(parts, "&")
}

// ApplyQuery merges a parsed URL query into the filter state, resolving
// facet names against the lookup. Unknown names are dropped. Parameters not
// present in the query leave the corresponding state untouched.
func ApplyQuery(state *State, query url.Values, lookup Lookup) {
	applyFacet := func(param, key string) {
		raw := query.Get(param)
		if raw == "" {
			return
		}
		var resolved []FacetValue
		for _, name := range strings.Split(raw, ",") {
			if v, ok := lookup.find(key, name); ok {
				resolved = append(resolved, v)
			}
		}
		state.SetFacet(key, resolved)
	}

	applyFacet("idol", FacetIdol)
	applyFacet("group", FacetGroup)
	applyFacet("tag", FacetTag)
	applyFacet("uploader", FacetUploader)
	applyFacet("filetype", FacetFileType)

	if sort := query.Get("sort"); sort != "" {
		if sort == SortRecent || sort == SortLiked {
			state.Sort = sort
		} else {
			state.Sort = SortRecent
		}
	}

	if raw := query.Get("date"); raw != "" {
		dateParts := strings.Split(raw, ",")
		var dates []time.Time
		if start, err := time.Parse("2006-01-02", dateParts[0]); err == nil {
			dates = append(dates, start)
			end := start
			if len(dateParts) > 1 {
				if parsed, err := time.Parse("2006-01-02", dateParts[1]); err == nil {
					end = parsed
				}
			}
			dates = append(dates, end)
		}
		state.Date = dates
	}
}
