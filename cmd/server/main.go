// Command server is a thin HTTP demo over the ontologychat engine: a
// chat endpoint, a streaming variant, and a health check. It is not part
// of the core (spec.md explicitly places the transport layer out of
// scope) — it exists only to show the engine wired into a real listener.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nuri428/ontology-chat/internal/config"
	"github.com/nuri428/ontology-chat/ontologychat"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file to overlay onto the default config")
	addr := flag.String("addr", ":8080", "listen address")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	logger, err := ontologychat.NewLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := config.Init(ctx, cfg)
	if err != nil {
		logger.Fatal("init runtime", zap.Error(err))
	}

	engine := ontologychat.NewFromRuntime(rt, logger)

	watcher, err := config.NewWatcher(*envFile, func(reloaded config.Config, werr error) {
		if werr != nil {
			logger.Warn("config reload rejected", zap.Error(werr))
			return
		}
		logger.Info("config file changed; restart the process to apply it",
			zap.Float64("router.deep_threshold", reloaded.Router.DeepThreshold))
	})
	if err != nil {
		logger.Warn("config watcher disabled", zap.Error(err))
	} else {
		go watcher.Run(ctx)
		defer watcher.Stop()
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
		if err := engine.Close(shutdownCtx); err != nil {
			logger.Error("engine close", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
}
