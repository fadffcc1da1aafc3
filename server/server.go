package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "modernc.org/sqlite"

	"github.com/lucasjordaoreal/UltraDownloader/server/config"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/compress"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/downloader"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/encoder"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/jobs"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/progress"
	middlewares "github.com/lucasjordaoreal/UltraDownloader/server/middleware"
	"github.com/lucasjordaoreal/UltraDownloader/server/presets"
	"github.com/lucasjordaoreal/UltraDownloader/server/rest"
	"github.com/lucasjordaoreal/UltraDownloader/server/user"
	"github.com/lucasjordaoreal/UltraDownloader/server/websocket"
)

type serverConfig struct {
	db          *sql.DB
	registry    *jobs.Registry
	broadcaster *progress.Broadcaster
	downloader  *downloader.Orchestrator
	compressor  *compress.Service
}

func Run(ctx context.Context) error {
	conf := config.Instance()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dbPath := filepath.Join(conf.Paths.LocalDatabasePath, "ultradownloader.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	broadcaster := progress.NewBroadcaster()

	scfg := serverConfig{
		db:          db,
		registry:    jobs.NewRegistry(),
		broadcaster: broadcaster,
		downloader:  downloader.New(broadcaster),
		compressor:  compress.NewService(broadcaster, encoder.NewSelector()),
	}

	srv, err := newServer(scfg)
	if err != nil {
		return err
	}

	go gracefulShutdown(ctx, srv, &scfg)

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(conf.Server.Host, "/") {
		network = "unix"
		address = conf.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		slog.Error("failed to listen", slog.String("err", err.Error()))
		return err
	}

	slog.Info("ultradownloader started", slog.String("address", address))

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		slog.Warn("http server stopped", slog.String("err", err.Error()))
	}

	return nil
}

func newServer(c serverConfig) (*http.Server, error) {
	presetsHandler, err := presets.Container(c.db)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)
	// use in dev
	// r.Use(middleware.Logger)

	// Progress push channel
	r.Get("/ws", websocket.Handler(c.broadcaster))

	// Authentication routes
	r.Route("/auth", user.ApplyRouter())

	// REST API handlers
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)

		rest.ApplyRouter(&rest.ContainerArgs{
			Registry:   c.registry,
			Downloader: c.downloader,
			Compressor: c.compressor,
		})(r)

		r.Route("/presets", presetsHandler.ApplyRouter())
	})

	return &http.Server{Handler: r}, nil
}

func gracefulShutdown(ctx context.Context, srv *http.Server, cfg *serverConfig) {
	<-ctx.Done()
	slog.Info("shutdown signal received")

	// let in-flight progress deliveries drain before closing
	cfg.registry.CancelAny()
	cfg.broadcaster.Wait()

	cfg.db.Close()
	srv.Shutdown(context.Background())
}
