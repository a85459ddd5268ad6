package filter

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestBuildEmptyState(t *testing.T) {
	expr, sort := Build(Default(), "", "", "")
	if expr != "" {
		t.Errorf("Build() expr = %q, want empty", expr)
	}
	if sort != "-created" {
		t.Errorf("Build() sort = %q, want -created", sort)
	}
}

func TestBuildFacetGroups(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		prefix   string
		expected string
	}{
		{
			name: "two named idols",
			state: func() State {
				s := Default()
				s.Idol = []FacetValue{Named("a"), Named("b")}
				return s
			}(),
			expected: `(idol.name?="a"||idol.name?="b")`,
		},
		{
			name: "coded group",
			state: func() State {
				s := Default()
				s.Group = []FacetValue{Coded("nj")}
				return s
			}(),
			expected: `(group.code?="nj")`,
		},
		{
			name: "filetype option",
			state: func() State {
				s := Default()
				s.FileType = []FacetValue{Option("Gifs", "video")}
				return s
			}(),
			expected: `(filetype?="video")`,
		},
		{
			name: "relation prefix",
			state: func() State {
				s := Default()
				s.Tag = []FacetValue{Named("stage")}
				return s
			}(),
			prefix:   "content.",
			expected: `(content.tag.name?="stage")`,
		},
		{
			name: "unresolved value skipped",
			state: func() State {
				s := Default()
				s.Idol = []FacetValue{{}, Named("a")}
				return s
			}(),
			expected: `(idol.name?="a")`,
		},
		{
			name: "facets joined with AND in fixed order",
			state: func() State {
				s := Default()
				s.Group = []FacetValue{Named("g")}
				s.Idol = []FacetValue{Named("i")}
				return s
			}(),
			expected: `(idol.name?="i")&&(group.name?="g")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, _ := Build(tt.state, "", "", tt.prefix)
			if expr != tt.expected {
				t.Errorf("Build() = %q, want %q", expr, tt.expected)
			}
		})
	}
}

func TestBuildMostLikedWindow(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		mode      MostLikedMode
		wantStart string
	}{
		{MostLikedAllTime, "2000-01-01 00:00:00"},
		{MostLikedOneYear, "2025-03-15 00:00:00"},
		{MostLikedSixMonths, "2025-09-15 00:00:00"},
		{MostLikedThreeMonths, "2025-12-15 00:00:00"},
		{MostLikedOneMonth, "2026-02-15 00:00:00"},
		{MostLikedOneWeek, "2026-03-08 00:00:00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			expr, sort := buildAt(Default(), "", tt.mode, "", now)
			expected := "created>='" + tt.wantStart + "'&&created<='2026-03-15 23:59:59'"
			if expr != expected {
				t.Errorf("buildAt() = %q, want %q", expr, expected)
			}
			if sort != "-likes:length" {
				t.Errorf("buildAt() sort = %q, want -likes:length", sort)
			}
		})
	}
}

func TestBuildModeOverridesExplicitRange(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)
	state := Default()
	state.Date = []time.Time{
		time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC),
	}

	expr, sort := buildAt(state, "", MostLikedOneWeek, "", now)
	if !strings.Contains(expr, "2026-03-08 00:00:00") {
		t.Errorf("buildAt() = %q, want window start from mode, not explicit range", expr)
	}
	if strings.Contains(expr, "2024-01-02") {
		t.Errorf("buildAt() = %q, explicit range leaked through", expr)
	}
	if sort != "-likes:length" {
		t.Errorf("buildAt() sort = %q, want -likes:length", sort)
	}
}

func TestBuildExplicitDateRange(t *testing.T) {
	state := Default()
	state.Date = []time.Time{
		time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC),
	}

	expr, sort := Build(state, "", "", "")
	expected := "created>='2024-01-02 00:00:00'&&created<='2024-02-03 23:59:59'"
	if expr != expected {
		t.Errorf("Build() = %q, want %q", expr, expected)
	}
	if sort != "-created" {
		t.Errorf("Build() sort = %q, want -created", sort)
	}
}

func TestBuildSearchEscaping(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		expected string
	}{
		{
			name:     "plain text",
			search:   "stage mix",
			expected: `title~"stage mix"`,
		},
		{
			name:     "embedded quote",
			search:   `hello" || title!=""`,
			expected: `title~"hello\" || title!=\"\""`,
		},
		{
			name:     "backslash",
			search:   `a\b`,
			expected: `title~"a\\b"`,
		},
		{
			name:     "control characters dropped",
			search:   "a\nb\x00c",
			expected: `title~"abc"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, _ := Build(Default(), tt.search, "", "")
			if expr != tt.expected {
				t.Errorf("Build() = %q, want %q", expr, tt.expected)
			}
		})
	}
}

func TestBuildLikedSortSelection(t *testing.T) {
	state := Default()
	state.Sort = SortLiked

	_, sort := Build(state, "", "", "")
	if sort != "-likes:length" {
		t.Errorf("Build() sort = %q, want -likes:length", sort)
	}
}

func TestBuildStored(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		wantExpr string
		wantSort string
	}{
		{
			name:     "malformed JSON degrades to empty",
			stored:   `{not json`,
			wantExpr: "",
			wantSort: "-created",
		},
		{
			name:     "empty document",
			stored:   "",
			wantExpr: "",
			wantSort: "-created",
		},
		{
			name:     "stored facet selection",
			stored:   `{"idol":[{"kind":1,"name":"a"}],"sort":"recent"}`,
			wantExpr: `(idol.name?="a")`,
			wantSort: "-created",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, sort := BuildStored([]byte(tt.stored), "", "", "")
			if expr != tt.wantExpr {
				t.Errorf("BuildStored() expr = %q, want %q", expr, tt.wantExpr)
			}
			if sort != tt.wantSort {
				t.Errorf("BuildStored() sort = %q, want %q", sort, tt.wantSort)
			}
		})
	}
}

func TestWindowInvalidMode(t *testing.T) {
	_, _, err := MostLikedMode("2weeks").Window(time.Now())
	if err == nil {
		t.Error("Window() expected error for unknown mode")
	}
}

func TestEncodeQuery(t *testing.T) {
	state := Default()
	state.Idol = []FacetValue{Named("a b"), Named("c")}
	state.FileType = []FacetValue{Option("Gifs", "video")}
	state.Sort = SortLiked
	state.Date = []time.Time{
		time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC),
	}

	got := EncodeQuery(state)
	expected := "idol=a+b,c&filetype=video&sort=liked&date=2024-01-02,2024-02-03"
	if got != expected {
		t.Errorf("EncodeQuery() = %q, want %q", got, expected)
	}
}

func TestEncodeQueryDefaultsOmitted(t *testing.T) {
	if got := EncodeQuery(Default()); got != "" {
		t.Errorf("EncodeQuery() = %q, want empty for defaults", got)
	}
}

func TestEncodeQuerySingleDate(t *testing.T) {
	state := Default()
	day := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	state.Date = []time.Time{day, day}

	got := EncodeQuery(state)
	if got != "date=2024-01-02" {
		t.Errorf("EncodeQuery() = %q, want single date", got)
	}
}

func TestApplyQuery(t *testing.T) {
	lookup := Lookup{
		FacetIdol:     {Named("a"), Named("b")},
		FacetGroup:    {Named("g1")},
		FacetFileType: ContentTypes,
	}

	query, err := url.ParseQuery("idol=a,b,unknown&group=g1&filetype=video&sort=liked&date=2024-01-02,2024-02-03")
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	state := Default()
	ApplyQuery(&state, query, lookup)

	if len(state.Idol) != 2 || state.Idol[0].Name != "a" || state.Idol[1].Name != "b" {
		t.Errorf("ApplyQuery() idols = %v, want a,b in order", state.Idol)
	}
	if len(state.Group) != 1 || state.Group[0].Name != "g1" {
		t.Errorf("ApplyQuery() groups = %v, want g1", state.Group)
	}
	if len(state.FileType) != 1 || state.FileType[0].Value != "video" {
		t.Errorf("ApplyQuery() filetypes = %v, want video", state.FileType)
	}
	if state.Sort != SortLiked {
		t.Errorf("ApplyQuery() sort = %q, want liked", state.Sort)
	}
	if len(state.Date) != 2 {
		t.Fatalf("ApplyQuery() dates = %v, want 2", state.Date)
	}
	if !state.Date[0].Equal(time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ApplyQuery() start = %v", state.Date[0])
	}
	if !state.Date[1].Equal(time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ApplyQuery() end = %v", state.Date[1])
	}
}

func TestApplyQuerySingleDateDuplicated(t *testing.T) {
	query := url.Values{"date": {"2024-01-02"}}
	state := Default()
	ApplyQuery(&state, query, Lookup{})

	if len(state.Date) != 2 || !state.Date[0].Equal(state.Date[1]) {
		t.Errorf("ApplyQuery() dates = %v, want start duplicated as end", state.Date)
	}
}
