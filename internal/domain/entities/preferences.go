package entities

// Preference keys persisted per user
const (
	PreferenceCurrentPage = "currentPage"
	PreferenceTheme       = "themePreference"
)

// Theme is a visual theme name
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeAurora Theme = "aurora"
	ThemeOcean  Theme = "ocean"
	ThemeForest Theme = "forest"
)

// DefaultTheme applies when no valid preference is stored
const DefaultTheme = ThemeLight

// Themes lists the selectable themes in display order
var Themes = []Theme{ThemeLight, ThemeAurora, ThemeOcean, ThemeForest}

// Valid reports whether t is a known theme
func (t Theme) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}

// Page is a navigable view of the dashboard
type Page string

const (
	PageLanding      Page = "landing"
	PageDashboard    Page = "dashboard"
	PagePatients     Page = "patients"
	PageAppointments Page = "appointments"
	PageMessages     Page = "messages"
	PageProfile      Page = "profile"
)

// DefaultPage is restored after sign-in when no page was remembered
const DefaultPage = PageDashboard

// Valid reports whether p is a known page
func (p Page) Valid() bool {
	switch p {
	case PageLanding, PageDashboard, PagePatients, PageAppointments, PageMessages, PageProfile:
		return true
	}
	return false
}

// Settings is the per-user application context restored at session start
type Settings struct {
	CurrentPage Page  `json:"current_page"`
	Theme       Theme `json:"theme"`
}
