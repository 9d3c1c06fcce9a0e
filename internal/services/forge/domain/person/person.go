// Package person models a person and their public profile.
package person

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

const (
	MaxDisplayNameLength        = 100
	MaxAskMeAboutTopics         = 5
	MaxCurrentlyWorkingOnLength = 200
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	themeColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Record is the persisted shape of a person.
type Record struct {
	ID                 string     `json:"id"`
	SchoolID           string     `json:"schoolId" validate:"notblank"`
	Email              string     `json:"email"`
	LegalName          string     `json:"legalName"`
	DisplayName        string     `json:"displayName"`
	Pronouns           string     `json:"pronouns"`
	GradeLevel         string     `json:"gradeLevel"`
	AskMeAbout         []string   `json:"askMeAbout"`
	ThemeColor         string     `json:"themeColor"`
	CurrentlyWorkingOn string     `json:"currentlyWorkingOn"`
	HelpQueueVisible   bool       `json:"helpQueueVisible"`
	IsActive           bool       `json:"isActive"`
	PinHash            string     `json:"-"`
	LastLoginAt        *time.Time `json:"lastLoginAt"`
}

var labels = map[string]string{"schoolId": "School ID"}

type Person struct {
	r Record
}

// Create validates r and returns the person.
func Create(r Record) (Person, error) {
	if err := ValidateDisplayName(r.DisplayName); err != nil {
		return Person{}, err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return Person{}, err
	}
	if err := validate.Struct(r, labels); err != nil {
		return Person{}, err
	}
	return FromRecord(r), nil
}

// FromRecord rebuilds a person from stored data without validation.
func FromRecord(r Record) Person { return Person{r: copyRecord(r)} }

// ValidateDisplayName requires 1 to 100 characters after trimming.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return domainerr.Invalid("displayName", "Display name is required")
	}
	if len([]rune(trimmed)) > MaxDisplayNameLength {
		return domainerr.Invalid("displayName", "Display name must be 100 characters or less")
	}
	return nil
}

// ValidateEmail accepts an empty email or a plausible address.
func ValidateEmail(email string) error {
	if email == "" || emailPattern.MatchString(email) {
		return nil
	}
	return domainerr.Invalid("email", "Invalid email format")
}

// ValidateThemeColor accepts an empty colour or #RRGGBB.
func ValidateThemeColor(color string) error {
	if color == "" || themeColorPattern.MatchString(color) {
		return nil
	}
	return domainerr.Invalid("themeColor", "Theme color must be a hex colour like #1A2B3C")
}

// NormalizeTopics trims topics, drops blanks and rejects more than five.
func NormalizeTopics(topics []string) ([]string, error) {
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		if t := strings.TrimSpace(topic); t != "" {
			out = append(out, t)
		}
	}
	if len(out) > MaxAskMeAboutTopics {
		return nil, domainerr.Invalid("askMeAbout", "Ask me about can list at most 5 topics")
	}
	return out, nil
}

func (p Person) Record() Record { return copyRecord(p.r) }

func (p Person) ID() string          { return p.r.ID }
func (p Person) SchoolID() string    { return p.r.SchoolID }
func (p Person) DisplayName() string { return p.r.DisplayName }
func (p Person) IsActive() bool      { return p.r.IsActive }
func (p Person) CanSignIn() bool     { return p.r.IsActive }
func (p Person) HasPin() bool        { return p.r.PinHash != "" }

// ProfileUpdate lists profile fields to change. Nil leaves a field as is.
type ProfileUpdate struct {
	DisplayName        *string
	Pronouns           *string
	AskMeAbout         *[]string
	ThemeColor         *string
	CurrentlyWorkingOn *string
	HelpQueueVisible   *bool
}

// UpdateProfile applies u and returns the new person with the names of the
// fields whose values changed.
func (p Person) UpdateProfile(u ProfileUpdate) (Person, []string, error) {
	next := copyRecord(p.r)
	var changed []string

	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		if err := ValidateDisplayName(name); err != nil {
			return p, nil, err
		}
		if name != next.DisplayName {
			next.DisplayName = name
			changed = append(changed, "displayName")
		}
	}
	if u.Pronouns != nil {
		pronouns := strings.TrimSpace(*u.Pronouns)
		if pronouns != next.Pronouns {
			next.Pronouns = pronouns
			changed = append(changed, "pronouns")
		}
	}
	if u.AskMeAbout != nil {
		topics, err := NormalizeTopics(*u.AskMeAbout)
		if err != nil {
			return p, nil, err
		}
		if !slices.Equal(topics, next.AskMeAbout) {
			next.AskMeAbout = topics
			changed = append(changed, "askMeAbout")
		}
	}
	if u.ThemeColor != nil {
		color := strings.TrimSpace(*u.ThemeColor)
		if err := ValidateThemeColor(color); err != nil {
			return p, nil, err
		}
		if color != next.ThemeColor {
			next.ThemeColor = color
			changed = append(changed, "themeColor")
		}
	}
	if u.CurrentlyWorkingOn != nil {
		working := strings.TrimSpace(*u.CurrentlyWorkingOn)
		if len([]rune(working)) > MaxCurrentlyWorkingOnLength {
			return p, nil, domainerr.Invalid("currentlyWorkingOn", "Currently working on must be 200 characters or less")
		}
		if working != next.CurrentlyWorkingOn {
			next.CurrentlyWorkingOn = working
			changed = append(changed, "currentlyWorkingOn")
		}
	}
	if u.HelpQueueVisible != nil && *u.HelpQueueVisible != next.HelpQueueVisible {
		next.HelpQueueVisible = *u.HelpQueueVisible
		changed = append(changed, "helpQueueVisible")
	}
	return Person{r: next}, changed, nil
}

// Deactivate archives the person.
func (p Person) Deactivate() Person {
	next := copyRecord(p.r)
	next.IsActive = false
	return Person{r: next}
}

func copyRecord(r Record) Record {
	out := r
	out.AskMeAbout = slices.Clone(r.AskMeAbout)
	if r.LastLoginAt != nil {
		v := *r.LastLoginAt
		out.LastLoginAt = &v
	}
	return out
}
