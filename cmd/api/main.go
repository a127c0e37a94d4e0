package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/do"

	"github.com/Kcinzaa/Hatyaifinal/internal/config"
	"github.com/Kcinzaa/Hatyaifinal/internal/handler"
	"github.com/Kcinzaa/Hatyaifinal/internal/logging"
	chatModel "github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
	"github.com/Kcinzaa/Hatyaifinal/internal/service/ai"
	"github.com/Kcinzaa/Hatyaifinal/internal/service/chat"
	"github.com/Kcinzaa/Hatyaifinal/internal/service/relay"
)

func main() {
	os.Exit(run())
}

// run 返回进程退出码，保证 defer 的清理逻辑（日志文件、信号监听）都能执行。
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Preinit()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, continuing with system environment variables only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logCloser, err := logging.Init(cfg.Log)
	if err != nil {
		slog.Error("logging init failed", "error", err)
		return 1
	}
	defer logCloser.Close()

	slog.Info("environment loaded",
		"gemini_api_key", present(cfg.AI.GeminiAPIKey),
		"direct_line_secret", present(cfg.Relay.Secret),
		"ai_provider", cfg.AI.Provider,
		"debug_routes", cfg.Server.DebugRoutes)

	di := newInjector(ctx, cfg)
	defer func() {
		if err := di.Shutdown(); err != nil {
			slog.Warn("service shutdown reported errors", "error", err)
		}
	}()

	router, err := newRouter(di)
	if err != nil {
		slog.Error("failed to initialize services", "error", err)
		return 1
	}

	if err := startServer(ctx, cfg.Server, router); err != nil {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}

func newInjector(ctx context.Context, cfg *config.Config) *do.Injector {
	di := do.New()
	do.ProvideValue(di, cfg)
	do.Provide(di, func(i *do.Injector) (*relay.Client, error) {
		return relay.NewClient(do.MustInvoke[*config.Config](i).Relay, nil), nil
	})
	do.Provide(di, func(i *do.Injector) (*ai.Service, error) {
		return ai.NewService(ctx, do.MustInvoke[*config.Config](i).AI)
	})
	do.Provide(di, func(i *do.Injector) (*chat.Service, error) {
		return chat.NewService(do.MustInvoke[*relay.Client](i), do.MustInvoke[*ai.Service](i)), nil
	})
	do.Provide(di, func(i *do.Injector) (chatModel.Catalog, error) {
		return chatModel.LoadCatalog(do.MustInvoke[*config.Config](i).Server.ReplyCatalog)
	})
	return di
}

func newRouter(di *do.Injector) (http.Handler, error) {
	cfg := do.MustInvoke[*config.Config](di)

	relayClient, err := do.Invoke[*relay.Client](di)
	if err != nil {
		return nil, err
	}
	aiService, err := do.Invoke[*ai.Service](di)
	if err != nil {
		return nil, err
	}
	dispatcher, err := do.Invoke[*chat.Service](di)
	if err != nil {
		return nil, err
	}
	catalog, err := do.Invoke[chatModel.Catalog](di)
	if err != nil {
		return nil, err
	}

	deps := handler.Deps{
		Dispatcher: dispatcher,
		Catalog:    catalog,
		Relay:      relayClient,
		AI:         aiService,
		StaticDir:  cfg.Server.StaticDir,
	}
	if cfg.Server.DebugRoutes {
		deps.Transcript = dispatcher
	}

	return handler.NewRouter(deps), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("server is running", "addr", addr)
	slog.Info("chatbot is ready, prefix a message with '!bot' to talk to Direct Line, anything else goes to the AI")
	return runServer(ctx, srv)
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

func present(value string) bool {
	return value != ""
}
