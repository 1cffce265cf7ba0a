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

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/Vasu1712/scenyx-live/internal/api/chat"
	apidiscovery "github.com/Vasu1712/scenyx-live/internal/api/discovery"
	"github.com/Vasu1712/scenyx-live/internal/api/live"
	"github.com/Vasu1712/scenyx-live/internal/config"
	"github.com/Vasu1712/scenyx-live/internal/conn"
	"github.com/Vasu1712/scenyx-live/internal/discovery"
	"github.com/Vasu1712/scenyx-live/internal/middleware"
	"github.com/Vasu1712/scenyx-live/internal/session"
	"github.com/Vasu1712/scenyx-live/internal/showapi"
	"github.com/Vasu1712/scenyx-live/internal/storage/memory"
	"github.com/Vasu1712/scenyx-live/internal/storage/valkey"
	"github.com/Vasu1712/scenyx-live/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Positions are cached in memory unless valkey is configured
	var cache discovery.LocationCache = memory.NewLocationStore()
	if cfg.ValkeyAddr != "" {
		store, err := valkey.NewLocationStore(cfg.ValkeyAddr, cfg.GeoCacheAge)
		if err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer store.Close()
		cache = store
		log.Printf("Caching positions in valkey at %s", cfg.ValkeyAddr)
	}

	shows := showapi.New(cfg.APIURL, cfg.Token, cfg.APITimeout)
	disc := discovery.NewCoordinator(cfg.UserID, discovery.FixedLocator{Position: cfg.Position()}, cache, shows, discovery.Options{
		AttemptTimeout: cfg.GeoTimeout,
		MaxAttempts:    cfg.GeoAttempts,
		Backoff:        cfg.GeoBackoff,
		MaxCacheAge:    cfg.GeoCacheAge,
		Logger:         logger,
	})

	engine := session.New(ws.NewTransport(cfg.SocketURL, nil, logger), disc, session.Options{
		Credentials: conn.Credentials{
			UserID:   cfg.UserID,
			UserName: cfg.DisplayName(),
			Token:    cfg.Token,
		},
		ConnectTimeout: cfg.ConnectTimeout,
		AuthTimeout:    cfg.AuthTimeout,
		ChatLimit:      cfg.ChatHistory,
		SongEstimate:   cfg.SongEstimate,
		Logger:         logger,
	})
	hub := ws.NewHub(logger)
	liveHandler := &live.Handler{Engine: engine, Hub: hub}

	// Setup router
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	bridge := r.PathPrefix("/").Subrouter()
	bridge.Use(middleware.BridgeKey(cfg.BridgeKeyHash))
	live.RegisterLiveRoutes(bridge, liveHandler)
	chat.RegisterChatRoutes(bridge, &chat.ChatHandler{Engine: engine})
	apidiscovery.RegisterDiscoveryRoutes(bridge, &apidiscovery.Handler{Engine: engine})

	srv := &http.Server{
		Addr:              cfg.BridgeAddr,
		Handler:           middleware.CORS(cfg.CORSOrigin)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the engine, hub, state stream and bridge server together
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error { return liveHandler.StreamState(gctx) })
	g.Go(func() error {
		log.Printf("Bridge started at %s", cfg.BridgeAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := engine.Connect(gctx); err != nil {
			// The UI can retry through /api/v1/live/connect.
			log.Printf("Initial connect failed: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("bridge stopped: %v", err)
	}
	log.Println("Bridge stopped")
}
