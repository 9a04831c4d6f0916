package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/cutline/internal/config"
	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/health"
	"github.com/nadzzz/cutline/internal/metrics"
	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/transport"
	grpctransport "github.com/nadzzz/cutline/internal/transport/grpc"
	httptransport "github.com/nadzzz/cutline/internal/transport/http"
	"github.com/nadzzz/cutline/internal/voice"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cutline daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logs := config.SetupLogging(cfg.Logging)
			defer logs.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("cutline starting", "version", version)

	rec, flush, err := metrics.Init(cfg.Sentry, "cutline@"+version)
	if err != nil {
		return err
	}
	defer flush()

	p, err := buildPlanner(ctx, cfg.Planner, rec)
	if err != nil {
		return err
	}
	proj, fileBacked, err := openProject(cfg.DAW)
	if err != nil {
		return err
	}
	mode, err := session.ParseMode(cfg.Session.Mode)
	if err != nil {
		return err
	}

	actor := session.NewActor(func(onPhase func(session.Phase)) *session.Session {
		return session.New(proj, p, session.Options{
			Mode:         mode,
			HistoryLimit: cfg.Session.HistoryLimit,
			Recorder:     rec,
			OnPhase:      onPhase,
		})
	})

	stt, tts := buildSpeech(cfg.Speech)
	if tts != nil {
		defer tts.Close()
	}
	var front *voice.Front
	if stt != nil {
		front = voice.New(actor, stt, tts)
	}

	var transports []transport.Transport
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(actor, httptransport.Options{
			Port:    cfg.Transports.HTTP.Port,
			Voice:   front,
			Planner: p,
		}))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(actor, cfg.Transports.GRPC.Port))
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled; enable at least one in config")
	}

	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.AddCheck("session", func(ctx context.Context) error {
		_, err := actor.Snapshot(ctx)
		return err
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return actor.Run(ctx) })
	g.Go(func() error { return healthServer.ListenAndServe(ctx) })
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx); err != nil {
				return fmt.Errorf("%s transport: %w", t.Name(), err)
			}
			return nil
		})
	}
	if fileBacked && cfg.DAW.Watch {
		g.Go(func() error { return proj.Watch(ctx, cfg.DAW.Project, reloadVia(ctx, actor, proj)) })
	}
	if fileBacked && cfg.DAW.WriteBack {
		g.Go(func() error { return writeBack(ctx, actor, proj, cfg.DAW.Project) })
	}

	healthServer.SetReady(true)
	slog.Info("cutline ready",
		"transports", len(transports),
		"planner", p.Name(),
		"mode", mode,
		"health_port", cfg.Server.HealthPort)

	err = g.Wait()
	slog.Info("cutline stopped")
	return err
}

// reloadVia swaps reloaded project state in on the actor goroutine, so a
// reload never lands inside a running turn.
func reloadVia(ctx context.Context, actor *session.Actor, proj *daw.Project) func(*daw.Project) {
	return func(fresh *daw.Project) {
		err := actor.Exec(ctx, func(*session.Session) { proj.Replace(fresh) })
		if err != nil {
			slog.Warn("project reload dropped", "error", err)
		}
	}
}

// writeBack saves the project after every turn that changed it. Saves run on
// the actor goroutine so they never see a batch in progress.
func writeBack(ctx context.Context, actor *session.Actor, proj *daw.Project, path string) error {
	events, cancel := actor.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Outcome == nil {
				continue
			}
			if ev.Outcome.Status != session.StatusUndone &&
				(ev.Outcome.Status != session.StatusApplied || ev.Outcome.Mutations == 0) {
				continue
			}
			var saveErr error
			if err := actor.Exec(ctx, func(*session.Session) { saveErr = proj.Save(path) }); err != nil {
				return nil
			}
			if saveErr != nil {
				slog.Error("project write-back failed", "path", path, "error", saveErr)
				continue
			}
			slog.Debug("project written", "path", path)
		}
	}
}
