// Package app wires the transport components together in dependency
// order and manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"teamchat/internal/api"
	"teamchat/internal/broadcast"
	"teamchat/internal/config"
	"teamchat/internal/hub"
	"teamchat/internal/membership"
	"teamchat/internal/router"
	"teamchat/internal/store"
	"teamchat/internal/websocket"
	"teamchat/pkg/database"
)

// Application coordinates all server components.
type Application struct {
	config     *config.Config
	store      *store.Manager
	registry   *websocket.Registry
	hub        *hub.Hub
	httpServer *http.Server
}

// NewApplication initializes components in dependency order:
// store → registry → resolver → broadcaster → hub → router → handler.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbConfig := &database.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
	}

	chatStore, err := store.NewManager(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	registry := websocket.NewRegistry()
	resolver := membership.NewResolver(chatStore)
	broadcaster := broadcast.NewEngine(registry, resolver)
	lifecycleHub := hub.NewHub(registry, resolver, chatStore, broadcaster,
		cfg.WebSocket.PingInterval, cfg.WebSocket.WriteTimeout)
	dispatcher := router.NewRouter(lifecycleHub, chatStore, broadcaster)
	wsHandler := websocket.NewHandler(dispatcher, lifecycleHub, cfg.WebSocket)
	apiServer := api.NewServer(chatStore, lifecycleHub)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      chatStore,
		registry:   registry,
		hub:        lifecycleHub,
		httpServer: httpServer,
	}, nil
}

// Start launches the hub and the HTTP server.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("starting teamchat on %s", app.httpServer.Addr)

	if err := app.hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.hub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("teamchat started")
		return nil
	case <-ctx.Done():
		_ = app.hub.Stop()
		return ctx.Err()
	}
}

// Stop shuts everything down in reverse dependency order:
// HTTP → hub → store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("shutting down teamchat")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.hub.Stop(); err != nil {
		log.Printf("hub shutdown error: %v", err)
	}

	if err := app.store.Close(); err != nil {
		log.Printf("store shutdown error: %v", err)
	}

	log.Printf("teamchat shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
