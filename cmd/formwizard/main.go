package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	formwizard "github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/intake"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, getenv: os.Getenv}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, tui.ErrAborted) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(130)
		}
		log.Fatalf("formwizard: %v", err)
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	// driver replaces the survey prompts; tests script it.
	driver tui.PromptDriver
}

type flags struct {
	settings     string
	definition   string
	store        string
	redisURL     string
	sqlitePath   string
	session      string
	task         string
	reviewFormat string
	theme        string
	output       string
	logLevel     string
	metricsAddr  string
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("formwizard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.settings, "settings", "", "runtime settings YAML file")
	fs.StringVar(&f.definition, "config", "", "wizard definition file (bundled estate-intake if empty)")
	fs.StringVar(&f.store, "store", "", "record store: memory, redis or sqlite")
	fs.StringVar(&f.redisURL, "redis-url", "", "redis URL for the redis store")
	fs.StringVar(&f.sqlitePath, "sqlite-path", "", "database file for the sqlite store")
	fs.StringVar(&f.session, "session", "", "session id to resume (shared stores only)")
	fs.StringVar(&f.task, "task", "", "task file (JSON or YAML) selected before opening the wizard")
	fs.StringVar(&f.reviewFormat, "review-format", "", "format of the submitted review: text or html")
	fs.StringVar(&f.theme, "theme", "", "theme name passed to the review renderer")
	fs.StringVar(&f.output, "output", "", "review output file (stdout if empty)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	err := fs.Parse(args)
	return f, err
}

func (f flags) runtime(getenv func(string) string) (config.Runtime, error) {
	rt := config.DefaultRuntime()
	if f.settings != "" {
		loaded, err := config.LoadRuntime(f.settings)
		if err != nil {
			return rt, err
		}
		rt = loaded
	}
	rt.ApplyEnv(getenv)
	set := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	set(&rt.Definition, f.definition)
	set(&rt.Store, f.store)
	set(&rt.RedisURL, f.redisURL)
	set(&rt.SQLitePath, f.sqlitePath)
	set(&rt.Session, f.session)
	set(&rt.ReviewFormat, f.reviewFormat)
	set(&rt.Theme, f.theme)
	set(&rt.LogLevel, f.logLevel)
	set(&rt.MetricsAddr, f.metricsAddr)
	return rt, rt.Validate()
}

func (a *app) run(ctx context.Context, args []string) error {
	f, err := parseFlags(args, a.stderr)
	if err != nil {
		return err
	}
	rt, err := f.runtime(a.getenv)
	if err != nil {
		return err
	}
	level, _ := rt.Level()
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	def, err := formwizard.LoadDefinition(rt.Definition)
	if err != nil {
		return err
	}
	task, err := formwizard.LoadTask(f.task)
	if err != nil {
		return err
	}
	renderers, err := formwizard.NewRenderers(nil)
	if err != nil {
		return err
	}
	if !renderers.Has(rt.ReviewFormat) {
		return fmt.Errorf("unknown review format %q (have %v)", rt.ReviewFormat, renderers.List())
	}

	backend, session, closeBackend, err := openBackend(ctx, rt, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	bus := events.NewBus()
	if rt.MetricsAddr != "" {
		shutdown := serveMetrics(rt.MetricsAddr, bus, logger)
		defer shutdown()
	}

	w, err := formwizard.Open(ctx, def, task,
		intake.WithBackend(backend),
		intake.WithBus(bus),
		intake.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	runnerOpts := []tui.RunnerOption{
		tui.WithRenderer(tui.New(tui.WithOutput(a.stdout))),
		tui.WithLogger(logger),
	}
	if a.driver != nil {
		runnerOpts = append(runnerOpts, tui.WithPromptDriver(a.driver))
	} else {
		runnerOpts = append(runnerOpts, tui.WithPromptDriver(tui.NewSurveyDriver(a.stdout)))
	}
	runner, err := tui.NewRunner(w, runnerOpts...)
	if err != nil {
		return err
	}

	outcome, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("wizard finished", "outcome", outcome, "session", session)

	switch outcome {
	case tui.OutcomeSubmitted:
		out, _, err := formwizard.RenderView(ctx, renderers, rt.ReviewFormat, w, render.Options{Theme: rt.Theme})
		if err != nil {
			return err
		}
		w.Leave(ctx)
		return a.writeReview(out, f.output)
	case tui.OutcomeExited:
		fmt.Fprintln(a.stdout, "You have left the application. Nothing was submitted.")
	case tui.OutcomeSaved:
		if rt.Store == config.StoreMemory {
			fmt.Fprintln(a.stdout, "Progress is kept in memory only and is now discarded.")
		} else {
			fmt.Fprintf(a.stdout, "Progress saved. Resume with -store %s -session %s\n", rt.Store, session)
		}
	}
	return nil
}

func (a *app) writeReview(out []byte, path string) error {
	if path == "" {
		_, err := a.stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write review: %w", err)
	}
	fmt.Fprintf(a.stdout, "Review written to %s\n", path)
	return nil
}

func serveMetrics(addr string, bus *events.Bus, logger *slog.Logger) (shutdown func()) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	detach := m.Attach(bus)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		detach()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
