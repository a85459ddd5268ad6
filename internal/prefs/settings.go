package prefs

// Toggle is a two-state display setting.
type Toggle string

const (
	ToggleDisabled Toggle = "Disabled"
	ToggleEnabled  Toggle = "Enabled"
)

// Settings are the display preferences, persisted independently of the
// filter state.
type Settings struct {
	ColumnCount    string `json:"columnCount"`
	ContentCount   string `json:"contentCount"`
	DataSavingMode Toggle `json:"dataSavingMode"`
	NoDistraction  Toggle `json:"noDistractionMode"`
}

// Option lists for the settings UI.
var (
	ColumnCountOptions  = []string{"1", "2", "3", "4"}
	ContentCountOptions = []string{"12", "24", "48"}
	ToggleOptions       = []Toggle{ToggleDisabled, ToggleEnabled}
)

// DefaultSettings returns the baked-in display defaults.
func DefaultSettings() Settings {
	return Settings{
		ColumnCount:    "3",
		ContentCount:   "12",
		DataSavingMode: ToggleDisabled,
		NoDistraction:  ToggleDisabled,
	}
}

// Normalize replaces out-of-range values with their defaults.
func (s *Settings) Normalize() {
	if !contains(ColumnCountOptions, s.ColumnCount) {
		s.ColumnCount = "3"
	}
	if !contains(ContentCountOptions, s.ContentCount) {
		s.ContentCount = "12"
	}
	if s.DataSavingMode != ToggleEnabled {
		s.DataSavingMode = ToggleDisabled
	}
	if s.NoDistraction != ToggleEnabled {
		s.NoDistraction = ToggleDisabled
	}
}

// PageSize returns the content count as an integer.
func (s Settings) PageSize() int {
	switch s.ContentCount {
	case "24":
		return 24
	case "48":
		return 48
	default:
		return 12
	}
}

// Columns returns the column count as an integer.
func (s Settings) Columns() int {
	switch s.ColumnCount {
	case "1":
		return 1
	case "2":
		return 2
	case "4":
		return 4
	default:
		return 3
	}
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
