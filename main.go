package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/billbatista/acasinha-diary/api"
	"github.com/billbatista/acasinha-diary/config"
	"github.com/billbatista/acasinha-diary/diary"
	"github.com/billbatista/acasinha-diary/eventlogger"
	"github.com/billbatista/acasinha-diary/logger"
	"github.com/billbatista/acasinha-diary/persist"
)

const serviceName = "acasinha-diary"

var rootCmd = &cobra.Command{
	Use:           serviceName,
	Short:         "Food diary: daily logs, nutrient totals and insights",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate storage, load the diary and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring storage up to the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd.Context(), func(ctx context.Context, a *persist.Adapter) error {
				return a.Ensure(ctx)
			})
		},
	}

	var outFile string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup document to stdout or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd.Context(), func(ctx context.Context, a *persist.Adapter) error {
				return runExport(ctx, a, outFile)
			})
		},
	}
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file (defaults to stdout)")

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace logs, products and settings with a backup document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd.Context(), func(ctx context.Context, a *persist.Adapter) error {
				return runImport(ctx, a, args[0])
			})
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, exportCmd, importCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(serviceName, cfg.LogLevel), nil
}

// withAdapter opens storage, migrates it and hands the adapter to fn.
func withAdapter(ctx context.Context, fn func(context.Context, *persist.Adapter) error) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	a := persist.New(b.kv, log)
	if err := a.Ensure(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func runExport(ctx context.Context, a *persist.Adapter, outFile string) error {
	doc, err := a.Export(ctx)
	if err != nil {
		return err
	}
	if outFile == "" {
		_, err = os.Stdout.Write(append(doc, '\n'))
		return err
	}
	return os.WriteFile(outFile, doc, 0o600)
}

func runImport(ctx context.Context, a *persist.Adapter, file string) error {
	payload, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	_, err = a.Import(ctx, payload)
	return err
}

func runServe(ctx context.Context) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	sink, closeSink, err := buildEventLogger(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer closeSink()
	worker := eventlogger.NewWorker(sink, cfg.EventBuffer, log)
	worker.Start()
	defer worker.Shutdown()

	adapter := persist.New(b.kv, log)
	mirror := persist.NewMirror(adapter, log)
	mirror.Start()
	defer func() {
		if err := mirror.Close(); err != nil {
			log.Error().Stack().Err(err).Msg("final writes failed")
		}
	}()

	svc := diary.New(adapter, mirror, worker, log,
		diary.WithClock(func() time.Time { return time.Now().In(loc) }),
		diary.WithWeeklyDays(cfg.WeeklyDays),
		diary.WithTopFoodsLimit(cfg.TopFoodsLimit),
	)
	if err := svc.Boot(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           api.NewRouter(svc, b.kv, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Str("today", svc.Today()).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
