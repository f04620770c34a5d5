package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/credentials"
	"github.com/otherjamesbrown/breeze-cli/pkg/db"
	"github.com/otherjamesbrown/breeze-cli/pkg/events"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
	"github.com/otherjamesbrown/breeze-cli/pkg/meeting"
	"github.com/otherjamesbrown/breeze-cli/pkg/observability"
	"github.com/otherjamesbrown/breeze-cli/pkg/storage"
)

// Runtime is the store and the backend resources behind it, opened once per
// command invocation.
type Runtime struct {
	Config  *config.CLIConfig
	Slot    storage.Slot
	Store   *meeting.Store
	Metrics *observability.StoreMetrics

	// Pool is set for the postgres backend.
	Pool *pgxpool.Pool

	// Events is the client used for publishing, when events are enabled.
	Events *redis.Client

	closers []func() error
}

// Close releases everything the runtime opened, slot last.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewMemoryRuntime wraps an existing store, for tests and the memory backend.
func NewMemoryRuntime(cfg *config.CLIConfig, store *meeting.Store) *Runtime {
	return &Runtime{Config: cfg, Slot: storage.NewMemorySlot(), Store: store}
}

// OpenRuntime connects to the configured backend and builds the store.
// Metrics are registered with reg when it is non-nil.
func OpenRuntime(ctx context.Context, cfg *config.CLIConfig, reg prometheus.Registerer) (*Runtime, error) {
	logger := logging.MustGlobal().With(logging.F("component", "runtime"))

	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg}
	if reg != nil {
		rt.Metrics = observability.NewStoreMetrics(reg)
	}

	slot, err := rt.openSlot(ctx)
	if err != nil {
		return nil, err
	}
	rt.Slot = slot
	rt.closers = append(rt.closers, slot.Close)

	opts := []meeting.Option{
		meeting.WithLogger(logger),
		meeting.WithMetrics(rt.Metrics),
		meeting.WithTracer(observability.NewTracer()),
	}

	if cfg.Events.Enabled {
		rt.Events = rt.eventsClient()
		opts = append(opts, meeting.WithNotifier(events.NewPublisher(rt.Events, logger, rt.Metrics)))
	}

	rt.Store = meeting.NewStore(meeting.NewSlotRepository(slot), opts...)

	logger.Debug("Runtime opened",
		logging.F("backend", slot.Name()),
		logging.F("events", cfg.Events.Enabled))
	return rt, nil
}

func (rt *Runtime) openSlot(ctx context.Context) (storage.Slot, error) {
	cfg := rt.Config

	switch cfg.Storage {
	case storage.BackendFile:
		dir, err := cfg.ResolvedDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		return storage.NewFileSlot(dir), nil

	case storage.BackendMemory:
		return storage.NewMemorySlot(), nil

	case storage.BackendRedis:
		slot := storage.NewRedisSlot(newRedisClient(cfg), cfg.Redis.KeyPrefix)
		if err := slot.Ping(ctx); err != nil {
			slot.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Address, err)
		}
		return slot, nil

	case storage.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.PostgresDB())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		slot := storage.NewPostgresSlot(pool, cfg.Postgres.Table, pool.Close)
		if err := slot.EnsureSchema(ctx); err != nil {
			slot.Close()
			return nil, err
		}
		rt.Pool = pool
		return slot, nil

	default:
		return nil, storage.ErrUnknownBackend(cfg.Storage)
	}
}

// eventsClient returns the Redis client for event publishing. A Redis slot
// shares its client; otherwise a new one is opened and closed with the runtime.
func (rt *Runtime) eventsClient() *redis.Client {
	if rs, ok := rt.Slot.(*storage.RedisSlot); ok {
		return rs.Client()
	}
	client := newRedisClient(rt.Config)
	rt.closers = append(rt.closers, client.Close)
	return client
}

func newRedisClient(cfg *config.CLIConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// resolveSecrets fills backend passwords that are not configured directly
// from the encrypted secrets file, when one exists.
func resolveSecrets(cfg *config.CLIConfig) error {
	needRedis := (cfg.Storage == storage.BackendRedis || cfg.Events.Enabled) && cfg.Redis.Password == ""
	needPostgres := cfg.Storage == storage.BackendPostgres && cfg.Postgres.Password == ""
	if !needRedis && !needPostgres {
		return nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, credentials.SecretsFile)); err != nil {
		return nil
	}

	store, err := openSecretStore(dir)
	if err != nil {
		return err
	}
	if needRedis {
		if cfg.Redis.Password, err = store.Lookup(credentials.SecretRedisPassword); err != nil {
			return fmt.Errorf("reading %s: %w", credentials.SecretRedisPassword, err)
		}
	}
	if needPostgres {
		if cfg.Postgres.Password, err = store.Lookup(credentials.SecretPostgresPassword); err != nil {
			return fmt.Errorf("reading %s: %w", credentials.SecretPostgresPassword, err)
		}
	}
	return nil
}

func openSecretStore(dir string) (*credentials.Store, error) {
	kp, err := credentials.DefaultKeyProvider(dir)
	if err != nil {
		return nil, fmt.Errorf("selecting encryption key: %w", err)
	}
	return credentials.NewStore(dir, kp)
}

// resolveOutputFormat returns the flag value when set, else the configured
// default.
func resolveOutputFormat(cfg *config.CLIConfig, flag string) (config.OutputFormat, error) {
	if flag == "" {
		return cfg.OutputFormat, nil
	}
	format := config.OutputFormat(flag)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", flag)
	}
	return format, nil
}

// writeStructured encodes v as JSON or YAML. It reports false for text,
// leaving rendering to the caller.
func writeStructured(w io.Writer, format config.OutputFormat, v interface{}) (bool, error) {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
