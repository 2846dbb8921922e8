package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"extension-hub/internal/browser"
	"extension-hub/internal/bus"
	"extension-hub/internal/config"
	"extension-hub/internal/dispatch"
	"extension-hub/internal/engine"
	"extension-hub/internal/history"
	"extension-hub/internal/hostrpc"
	"extension-hub/internal/httputil"
	"extension-hub/internal/kv"
	"extension-hub/internal/llm"
	"extension-hub/internal/logger"
	"extension-hub/internal/retry"
	"extension-hub/internal/tools"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Deps bundles the hub's runtime dependencies.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Local      kv.Store
	Session    kv.Store
	Bus        bus.Bus
	WebSocket  *bus.WebSocket
	History    history.Store
	Registry   *llm.Registry
	Dispatcher *dispatch.Dispatcher
	Checks     []httputil.Check

	closers []func() error
}

// Close releases connections in reverse order of creation.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build loads env, config, and shared components.
func Build(ctx context.Context) (Deps, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	d := Deps{Config: cfg, Log: log}
	fail := func(err error) (Deps, error) {
		_ = d.Close()
		return Deps{}, err
	}

	local, session, err := d.buildKV(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize kv store: %w", err))
	}
	d.Local, d.Session = local, session

	nc, err := d.connectNATS(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to connect to NATS: %w", err))
	}
	if err := d.buildBus(nc); err != nil {
		return fail(fmt.Errorf("failed to initialize bus: %w", err))
	}

	hist, err := d.buildHistory(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize history: %w", err))
	}
	d.History = hist

	host := hostrpc.NewClient(nc, cfg.HostRequestTimeout)
	browserHost := browser.NewNATS(host)
	engineHost := engine.NewNATS(host)
	guard := engine.NewGuard(local, session, engineHost, log)

	registry, err := llm.NewRegistry(local, cfg.DefaultProvider, log,
		llm.NewOpenAI(local, cfg.OpenAIBaseURL, log),
		llm.NewTogether(local, cfg.TogetherBaseURL, log),
		llm.NewHuggingFace(local, cfg.HuggingFaceBaseURL, log),
		llm.NewLocal(local, nil, log),
		llm.NewEngine(guard, engineHost, log),
		llm.NewTools(local, cfg.ToolsBaseURL, tools.NewResolver(browserHost, log), log),
	)
	if err != nil {
		return fail(fmt.Errorf("invalid DEFAULT_PROVIDER: %w", err))
	}
	d.Registry = registry
	d.Dispatcher = dispatch.New(registry, browserHost, local, log)
	return d, nil
}

func (d *Deps) buildKV(ctx context.Context) (kv.Store, kv.Store, error) {
	switch d.Config.KVProvider {
	case "redis":
		var client *redis.Client
		err := retry.Do(ctx, connectAttempts, connectBackoff, func(ctx context.Context) error {
			c, err := kv.NewRedisClient(ctx, d.Config.RedisAddr, d.Config.RedisPassword)
			if err != nil {
				d.Log.Warn("redis not ready", "addr", d.Config.RedisAddr, "err", err)
				return err
			}
			client = c
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		local := kv.NewRedisLocal(client)
		session := kv.NewRedisSession(client, d.Config.SessionTTL)
		d.closers = append(d.closers, local.Close)
		d.Checks = append(d.Checks, httputil.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		d.Log.Info("using Redis kv store", "addr", d.Config.RedisAddr)
		return local, session, nil
	case "memory":
		d.Log.Info("using in-memory kv store")
		return kv.NewMemory(), kv.NewMemory(), nil
	default:
		return nil, nil, fmt.Errorf("invalid KV_PROVIDER: %s (valid options: redis, memory)", d.Config.KVProvider)
	}
}

func (d *Deps) connectNATS(ctx context.Context) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(ctx, connectAttempts, connectBackoff, func(context.Context) error {
		c, err := nats.Connect(d.Config.NATSURL, nats.Name("extension-hub"), nats.MaxReconnects(-1))
		if err != nil {
			d.Log.Warn("nats not ready", "url", d.Config.NATSURL, "err", err)
			return err
		}
		nc = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() error { nc.Close(); return nil })
	d.Checks = append(d.Checks, httputil.Check{Name: "nats", Ping: func(context.Context) error {
		if !nc.IsConnected() {
			return fmt.Errorf("nats status %s", nc.Status())
		}
		return nil
	}})
	return nc, nil
}

func (d *Deps) buildBus(nc *nats.Conn) error {
	switch d.Config.BusProvider {
	case "nats":
		d.Bus = bus.NewNATS(d.Log, nc)
		d.Log.Info("using NATS bus", "inbound", bus.SubjectInbound, "outbound", bus.SubjectOutbound)
	case "websocket":
		ws := bus.NewWebSocket(d.Log)
		d.Bus, d.WebSocket = ws, ws
		d.closers = append(d.closers, ws.Close)
		d.Log.Info("using websocket bus")
	default:
		return fmt.Errorf("invalid BUS_PROVIDER: %s (valid options: nats, websocket)", d.Config.BusProvider)
	}
	return nil
}

func (d *Deps) buildHistory(ctx context.Context) (history.Store, error) {
	switch d.Config.HistoryProvider {
	case "postgres":
		if d.Config.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when HISTORY_PROVIDER=postgres")
		}
		var st *history.PostgresStore
		err := retry.Do(ctx, connectAttempts, connectBackoff, func(ctx context.Context) error {
			s, err := history.NewPostgres(ctx, d.Config.DBURL)
			if err != nil {
				d.Log.Warn("postgres not ready", "err", err)
				return err
			}
			st = s
			return nil
		})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, st.Close)
		d.Checks = append(d.Checks, httputil.Check{Name: "postgres", Ping: st.Ping})
		d.Log.Info("using Postgres history store")
		return st, nil
	case "memory":
		d.Log.Info("using in-memory history store")
		return history.NewMemory(), nil
	default:
		return nil, fmt.Errorf("invalid HISTORY_PROVIDER: %s (valid options: postgres, memory)", d.Config.HistoryProvider)
	}
}
