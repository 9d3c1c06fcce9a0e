package classroom

import "encoding/json"

// Module is a feature a classroom can switch on or off.
type Module string

const (
	ModulePresence Module = "presence"
	ModuleHelp     Module = "help"
	ModuleProjects Module = "projects"
	ModuleChores   Module = "chores"
)

// Modules lists every module in display order.
var Modules = []Module{ModulePresence, ModuleHelp, ModuleProjects, ModuleChores}

// Valid reports whether m is a known module.
func (m Module) Valid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}

// ModuleConfig is the per-module switch.
type ModuleConfig struct {
	Enabled bool `json:"enabled"`
}

// Settings is the fixed module map stored with a classroom.
type Settings struct {
	Modules map[Module]ModuleConfig `json:"modules"`
}

// DefaultSettings enables presence only.
func DefaultSettings() Settings {
	return Settings{Modules: map[Module]ModuleConfig{
		ModulePresence: {Enabled: true},
		ModuleHelp:     {Enabled: false},
		ModuleProjects: {Enabled: false},
		ModuleChores:   {Enabled: false},
	}}
}

// Valid reports whether every module has an entry.
func (s Settings) Valid() bool {
	if s.Modules == nil {
		return false
	}
	for _, m := range Modules {
		if _, ok := s.Modules[m]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := Settings{Modules: make(map[Module]ModuleConfig, len(s.Modules))}
	for k, v := range s.Modules {
		out.Modules[k] = v
	}
	return out
}

// ParseSettings decodes stored settings, falling back to the defaults when
// the value is malformed or incomplete.
func ParseSettings(raw []byte) Settings {
	var wire struct {
		Modules map[Module]*struct {
			Enabled *bool `json:"enabled"`
		} `json:"modules"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &wire) != nil || wire.Modules == nil {
		return DefaultSettings()
	}
	out := Settings{Modules: make(map[Module]ModuleConfig, len(Modules))}
	for _, m := range Modules {
		cfg, ok := wire.Modules[m]
		if !ok || cfg == nil || cfg.Enabled == nil {
			return DefaultSettings()
		}
		out.Modules[m] = ModuleConfig{Enabled: *cfg.Enabled}
	}
	return out
}

// MarshalSettings encodes settings for storage.
func MarshalSettings(s Settings) ([]byte, error) {
	return json.Marshal(s)
}
