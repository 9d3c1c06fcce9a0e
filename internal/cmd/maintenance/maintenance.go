// Package maintenance implements operator tasks against the forge store.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	entrypoint "github.com/andysmith26/forge/internal/platform/cmd"
	"github.com/andysmith26/forge/internal/platform/logging"
	"github.com/andysmith26/forge/internal/platform/timeouts"
	"github.com/andysmith26/forge/internal/services/forge/app"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath    string        `env:"FORGE_DB_PATH" envDefault:"data/forge.db"`
	Timeout   time.Duration `env:"FORGE_MAINTENANCE_TIMEOUT"`
	LogLevel  string        `env:"FORGE_LOG_LEVEL" envDefault:"warn"`
	Rebuild   bool
	Retention bool
	Count     bool
	Filter    event.Filter
	JSON      bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.Maintenance
	}
	var eventType, entityType string
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the forge sqlite database (default: FORGE_DB_PATH or data/forge.db)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout (default: FORGE_MAINTENANCE_TIMEOUT or 10m)")
	fs.BoolVar(&cfg.Rebuild, "rebuild", false, "clear read tables and replay the event log")
	fs.BoolVar(&cfg.Retention, "retention", false, "delete old events, notifications and expired PIN sessions")
	fs.BoolVar(&cfg.Count, "count", false, "print the number of events matching the filter flags")
	fs.StringVar(&cfg.Filter.SchoolID, "school-id", "", "filter events by school")
	fs.StringVar(&cfg.Filter.ClassroomID, "classroom-id", "", "filter events by classroom")
	fs.StringVar(&cfg.Filter.SessionID, "session-id", "", "filter events by session")
	fs.StringVar(&eventType, "event-type", "", "filter events by type, e.g. HELP_REQUESTED")
	fs.StringVar(&entityType, "entity-type", "", "filter events by entity type")
	fs.StringVar(&cfg.Filter.EntityID, "entity-id", "", "filter events by entity")
	fs.BoolVar(&cfg.JSON, "json", false, "output JSON reports")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Filter.Type = event.Type(eventType)
	cfg.Filter.EntityType = event.EntityType(entityType)
	return cfg, nil
}

func (c Config) validate() error {
	selected := 0
	for _, on := range []bool{c.Rebuild, c.Retention, c.Count} {
		if on {
			selected++
		}
	}
	switch {
	case selected == 0:
		return errors.New("one of -rebuild, -retention or -count is required")
	case selected > 1:
		return errors.New("-rebuild, -retention and -count are mutually exclusive")
	case !c.Count && c.Filter != (event.Filter{}):
		return errors.New("filter flags require -count")
	}
	return nil
}

// report is the machine-readable result of one run.
type report struct {
	Task                 string `json:"task"`
	Replayed             *int   `json:"replayed,omitempty"`
	Events               *int   `json:"events,omitempty"`
	EventsDeleted        *int64 `json:"eventsDeleted,omitempty"`
	NotificationsDeleted *int64 `json:"notificationsDeleted,omitempty"`
	PinSessionsDeleted   *int64 `json:"pinSessionsDeleted,omitempty"`
}

// Run executes the selected maintenance task.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.Maintenance
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMaintenance, func(ctx context.Context) error {
		env, err := app.Open(ctx, app.Config{Backend: app.BackendSQLite, DBPath: cfg.DBPath, Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := env.Close(); closeErr != nil {
				fmt.Fprintf(errOut, "Error: close environment: %v\n", closeErr)
			}
		}()
		return run(ctx, env, cfg, out)
	})
}

func run(ctx context.Context, env *app.Environment, cfg Config, out io.Writer) error {
	var rep report
	switch {
	case cfg.Rebuild:
		replayed, err := env.Store.RebuildProjections(ctx)
		if err != nil {
			return fmt.Errorf("rebuild projections: %w", err)
		}
		rep = report{Task: "rebuild", Replayed: &replayed}
	case cfg.Retention:
		res, err := env.Service.RunRetention(ctx)
		if err != nil {
			return fmt.Errorf("run retention: %w", err)
		}
		rep = report{
			Task:                 "retention",
			EventsDeleted:        &res.EventsDeleted,
			NotificationsDeleted: &res.NotificationsDeleted,
			PinSessionsDeleted:   &res.PinSessionsDeleted,
		}
	case cfg.Count:
		n, err := env.Store.CountEvents(ctx, cfg.Filter)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		rep = report{Task: "count", Events: &n}
	}
	return writeReport(out, rep, cfg.JSON)
}

func writeReport(out io.Writer, rep report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	var err error
	switch rep.Task {
	case "rebuild":
		_, err = fmt.Fprintf(out, "Replayed %d events into read tables\n", *rep.Replayed)
	case "retention":
		_, err = fmt.Fprintf(out, "Deleted %d events, %d notifications, %d PIN sessions\n",
			*rep.EventsDeleted, *rep.NotificationsDeleted, *rep.PinSessionsDeleted)
	case "count":
		_, err = fmt.Fprintf(out, "%d events\n", *rep.Events)
	}
	return err
}
