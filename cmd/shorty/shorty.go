package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"golang.org/x/sync/errgroup"

	"github.com/sauerbraten/shorty"
)

var (
	configPath = flag.String("config", "server.properties", "path to the properties file")
	quiet      = flag.Bool("quiet", false, "do not log every request")
	debug      = flag.Bool("debug", false, "log cache traffic and sweeps")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := shorty.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	gen, err := shorty.NewRandomGenerator(cfg.Alphabet, cfg.CodeLength)
	if err != nil {
		return err
	}

	i, err := shorty.NewMemoryIndex(cfg.Domain, cfg.TTL,
		shorty.WithGenerator(gen),
		shorty.WithSweepInterval(cfg.SweepInterval),
		shorty.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer i.Close()

	s := shorty.NewServer(i, logger)
	s.Quiet(*quiet)

	r := chi.NewRouter()

	s.SetupRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting the URL shortening service",
			slog.Int("port", cfg.Port),
			slog.String("domain", cfg.Domain),
			slog.Duration("ttl", cfg.TTL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down the URL shortening service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
