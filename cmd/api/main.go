package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/travela2a/concierge/backend/internal/config"
	"github.com/travela2a/concierge/backend/internal/handler"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/service/ai"
	"github.com/travela2a/concierge/backend/internal/service/orchestrator"
	"github.com/travela2a/concierge/backend/internal/service/session"
	"github.com/travela2a/concierge/backend/internal/service/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	descriptors, err := agent.LoadOverrides(cfg.Agents.File, agent.Seed())
	if err != nil {
		log.Fatalf("failed to load agent overrides: %v", err)
	}
	registry, err := agent.NewRegistry(descriptors)
	if err != nil {
		log.Fatalf("invalid agent registry: %v", err)
	}

	var storeOpts []session.Option
	if cfg.Redis.Enabled() {
		archive, err := session.DialRedisArchive(ctx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			log.Printf("warning: redis archive unavailable: %v", err)
			log.Println("continuing with in-memory sessions only")
		} else {
			defer archive.Close()
			storeOpts = append(storeOpts, session.WithArchive(archive))
			log.Println("Redis session archive enabled")
		}
	}
	store := session.NewStore(storeOpts...)

	// A nil *ai.Executor must not reach the orchestrator as a non-nil interface.
	var executor orchestrator.Executor
	if cfg.AI.Enabled() {
		exec, err := ai.NewExecutor(ctx, registry, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI executor: %v", err)
			log.Println("continuing without AI functionality, check the Ark model environment variables")
		} else {
			executor = exec
			log.Println("AI executor initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, agent replies are disabled")
	}

	orch := orchestrator.New(store, registry, executor, orchestrator.Config{
		HistoryWindow: cfg.Session.HistoryWindow,
		MessageRunes:  cfg.Session.MessageRunes,
		AgentTimeout:  cfg.Session.AgentTimeout,
		Fallback:      cfg.Session.Fallback,
	})

	hub := turn.NewHub(orch, turn.DefaultMessages, cfg.Session.GracePeriod, func(sessionID string) {
		if err := store.Evict(context.Background(), sessionID); err != nil {
			log.Printf("[session] evict session=%s: %v", sessionID, err)
		}
	})
	defer hub.Shutdown()

	router := handler.NewRouter(handler.Deps{
		Agents:   registry,
		Querier:  orch,
		Store:    store,
		Hub:      hub,
		Greeting: cfg.Session.Greeting,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Travel concierge backend listening on %s", srv.Addr)
		return runServer(gctx, srv)
	})
	g.Go(func() error {
		runJanitor(gctx, store, hub, cfg.Session)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// runJanitor evicts sessions that never got a transport, or whose runner is
// gone, once they have been idle for longer than IdleTTL.
func runJanitor(ctx context.Context, store *session.Store, hub *turn.Hub, cfg config.SessionConfig) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(ctx, cfg.IdleTTL, hub.Live); n > 0 {
				log.Printf("[session] janitor evicted %d idle sessions, %d remain", n, store.Len())
			}
		}
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
