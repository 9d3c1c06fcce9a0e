package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andysmith26/forge/internal/platform/logging"
	"github.com/andysmith26/forge/internal/services/forge/realtime"
	"github.com/andysmith26/forge/internal/services/forge/service"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"github.com/andysmith26/forge/internal/services/forge/storage/memory"
	"github.com/andysmith26/forge/internal/services/forge/storage/sqlite"
	"github.com/andysmith26/forge/internal/services/forge/storage/unimplemented"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Port names a storage port that can be disabled at composition time.
type Port string

const (
	PortEvents        Port = "events"
	PortSessions      Port = "sessions"
	PortPresence      Port = "presence"
	PortHelp          Port = "help"
	PortClassrooms    Port = "classrooms"
	PortPeople        Port = "people"
	PortNinja         Port = "ninja"
	PortPins          Port = "pins"
	PortNotifications Port = "notifications"
)

// DefaultDBPath is used when a SQLite backend has no explicit path.
var DefaultDBPath = filepath.Join("data", "forge.db")

// Config selects the concrete adapters behind each port.
type Config struct {
	Backend Backend
	DBPath  string
	// RedisAddr enables redis fan-out when set.
	RedisAddr          string
	RedisChannelPrefix string
	// Disabled ports are served by fail-fast variants.
	Disabled []Port
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Environment holds the wired process dependencies.
type Environment struct {
	Store   storage.Store
	Service *service.Service
	Logger  *zap.Logger

	redis *redis.Client
}

// Open builds an Environment. Callers own the returned value and must
// Close it.
func Open(ctx context.Context, cfg Config) (*Environment, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.OrNop(cfg.Logger)
	emitter := &lateEmitter{}

	store, err := openStore(cfg, emitter, logger)
	if err != nil {
		return nil, err
	}
	env := &Environment{Store: store, Logger: logger}

	emitters := realtime.MultiEmitter{realtime.NewNotificationEmitter(store)}
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = store.Close()
			return nil, fmt.Errorf("connect redis %s: %w", addr, err)
		}
		redisEmitter, err := realtime.NewRedisEmitter(client, cfg.RedisChannelPrefix)
		if err != nil {
			_ = client.Close()
			_ = store.Close()
			return nil, err
		}
		env.redis = client
		emitters = append(emitters, redisEmitter)
	}
	emitter.bind(emitters)

	stores, err := bindStores(store, cfg.Disabled)
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	svc, err := service.New(service.Deps{
		Stores: stores,
		Clock:  cfg.Clock,
		Logger: logger,
	})
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("build service: %w", err)
	}
	env.Service = svc
	logger.Info("forge environment ready",
		zap.String("backend", string(backendOf(cfg))),
		zap.Bool("redis", env.redis != nil),
		zap.Int("disabled_ports", len(cfg.Disabled)),
	)
	return env, nil
}

// Close releases the store and the redis client.
func (e *Environment) Close() error {
	if e == nil {
		return nil
	}
	var errs []error
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func backendOf(cfg Config) Backend {
	if cfg.Backend == "" {
		return BackendSQLite
	}
	return cfg.Backend
}

func openStore(cfg Config, emitter storage.EventEmitter, logger *zap.Logger) (storage.Store, error) {
	switch backendOf(cfg) {
	case BackendMemory:
		opts := []memory.Option{memory.WithEmitter(emitter), memory.WithLogger(logger)}
		if cfg.Clock != nil {
			opts = append(opts, memory.WithClock(cfg.Clock))
		}
		return memory.New(opts...), nil
	case BackendSQLite:
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			path = DefaultDBPath
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		opts := []sqlite.Option{sqlite.WithEmitter(emitter), sqlite.WithLogger(logger)}
		if cfg.Clock != nil {
			opts = append(opts, sqlite.WithClock(cfg.Clock))
		}
		store, err := sqlite.Open(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// bindStores routes every port to store except the disabled ones.
func bindStores(store storage.Store, disabled []Port) (service.Stores, error) {
	stores := service.StoresFrom(store)
	for _, port := range disabled {
		switch port {
		case PortEvents:
			stores.Events = unimplemented.EventStore{}
		case PortSessions:
			stores.Sessions = unimplemented.SessionStore{}
		case PortPresence:
			stores.Presence = unimplemented.PresenceStore{}
		case PortHelp:
			stores.Help = unimplemented.HelpStore{}
		case PortClassrooms:
			stores.Classrooms = unimplemented.ClassroomStore{}
		case PortPeople:
			stores.People = unimplemented.PersonStore{}
		case PortNinja:
			stores.Ninja = unimplemented.NinjaStore{}
		case PortPins:
			stores.Pins = unimplemented.PinStore{}
		case PortNotifications:
			stores.Notifications = unimplemented.NotificationStore{}
		default:
			return service.Stores{}, fmt.Errorf("unknown storage port %q", port)
		}
	}
	return stores, nil
}

// ParsePorts splits a comma-separated port list.
func ParsePorts(raw string) []Port {
	var ports []Port
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ports = append(ports, Port(strings.ToLower(part)))
		}
	}
	return ports
}
