// Package classroom models a classroom and its module settings.
package classroom

import (
	"regexp"
	"strings"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

var (
	slugPattern        = regexp.MustCompile(`^[a-z0-9-]+$`)
	displayCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// Record is the persisted shape of a classroom.
type Record struct {
	ID          string   `json:"id"`
	SchoolID    string   `json:"schoolId" validate:"notblank"`
	Name        string   `json:"name" validate:"notblank,max=100"`
	Slug        string   `json:"slug" validate:"notblank"`
	Description string   `json:"description"`
	DisplayCode string   `json:"displayCode" validate:"len=6"`
	Settings    Settings `json:"settings"`
	IsActive    bool     `json:"isActive"`
}

var labels = map[string]string{
	"schoolId":    "School ID",
	"name":        "Classroom name",
	"slug":        "Slug",
	"displayCode": "Display code",
}

type Classroom struct {
	r Record
}

// Create validates r. Missing settings become the defaults.
func Create(r Record) (Classroom, error) {
	if err := validate.Struct(r, labels); err != nil {
		return Classroom{}, err
	}
	if !displayCodePattern.MatchString(r.DisplayCode) {
		return Classroom{}, domainerr.Invalid("displayCode", "Display code must be uppercase alphanumeric")
	}
	if !slugPattern.MatchString(r.Slug) {
		return Classroom{}, domainerr.Invalid("slug", "Slug must be lowercase alphanumeric with hyphens only")
	}
	if !r.Settings.Valid() {
		r.Settings = DefaultSettings()
	}
	return FromRecord(r), nil
}

// FromRecord rebuilds a classroom from stored data.
func FromRecord(r Record) Classroom {
	if !r.Settings.Valid() {
		r.Settings = DefaultSettings()
	} else {
		r.Settings = r.Settings.Clone()
	}
	return Classroom{r: r}
}

// Record returns a copy of the classroom data.
func (c Classroom) Record() Record {
	out := c.r
	out.Settings = c.r.Settings.Clone()
	return out
}

func (c Classroom) ID() string          { return c.r.ID }
func (c Classroom) SchoolID() string    { return c.r.SchoolID }
func (c Classroom) DisplayCode() string { return c.r.DisplayCode }
func (c Classroom) Settings() Settings  { return c.r.Settings.Clone() }

// IsModuleEnabled reports whether m is switched on.
func (c Classroom) IsModuleEnabled(m Module) bool {
	return c.r.Settings.Modules[m].Enabled
}

// EnabledModules lists switched-on modules in display order.
func (c Classroom) EnabledModules() []Module {
	var out []Module
	for _, m := range Modules {
		if c.IsModuleEnabled(m) {
			out = append(out, m)
		}
	}
	return out
}

// RequireModule fails with a feature-disabled error when m is off.
func (c Classroom) RequireModule(m Module) error {
	if !c.IsModuleEnabled(m) {
		return domainerr.FeatureDisabled(string(m), c.r.ID)
	}
	return nil
}

// SetModuleEnabled returns a copy with one module switched.
func (c Classroom) SetModuleEnabled(m Module, enabled bool) (Classroom, error) {
	if !m.Valid() {
		return c, domainerr.Invalid("module", "Unknown module")
	}
	next := c.Record()
	next.Settings.Modules[m] = ModuleConfig{Enabled: enabled}
	return Classroom{r: next}, nil
}

// UpdateSettings replaces the whole module map.
func (c Classroom) UpdateSettings(s Settings) (Classroom, error) {
	if !s.Valid() {
		return c, domainerr.Invalid("settings", "Invalid classroom settings format")
	}
	next := c.Record()
	next.Settings = s.Clone()
	return Classroom{r: next}, nil
}

// UpdateInfo changes the name and description. Nil leaves a field as is.
func (c Classroom) UpdateInfo(name, description *string) (Classroom, error) {
	next := c.Record()
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return c, domainerr.Invalid("name", "Classroom name is required")
		}
		if len([]rune(*name)) > 100 {
			return c, domainerr.Invalid("name", "Classroom name must be 100 characters or less")
		}
		next.Name = *name
	}
	if description != nil {
		next.Description = *description
	}
	return Classroom{r: next}, nil
}

// Deactivate archives the classroom.
func (c Classroom) Deactivate() Classroom {
	next := c.Record()
	next.IsActive = false
	return Classroom{r: next}
}

// SmartboardPath is the display route for the classroom board.
func (c Classroom) SmartboardPath() string {
	return "/display/" + c.r.DisplayCode
}
