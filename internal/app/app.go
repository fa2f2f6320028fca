package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"

	"segviewer/internal/config"
	"segviewer/internal/health"
	"segviewer/internal/httpx"
	"segviewer/internal/images"
	"segviewer/internal/render"
	"segviewer/internal/session"
	"segviewer/internal/storage/sqlite"
	"segviewer/internal/viewer"
	"segviewer/internal/web"
)

const probeRetention = 7 * 24 * time.Hour

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Backend=%s Listen=%s PerPage=%d BulkLoadSize=%d MaxBulkPages=%d SessionIdle=%s HealthProbe=%q SlackAlerts=%t Timezone=%s ExternalHTTPTimeout=%s",
		cfg.BackendBaseURL,
		cfg.ListenAddr,
		cfg.PerPage,
		cfg.BulkLoadSize,
		cfg.MaxBulkPages,
		cfg.SessionIdleTimeout(),
		cfg.HealthProbeSchedule,
		cfg.SlackAlertsConfigured(),
		cfg.Timezone,
		appliedHTTPTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := httpx.NewClient(cfg.BackendBaseURL, nil)
	svc := images.NewService(client, images.Options{
		PerPage:      cfg.PerPage,
		BulkLoadSize: cfg.BulkLoadSize,
		MaxPages:     cfg.MaxBulkPages,
	})

	renderer, err := render.New()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	store := session.NewStore(cfg.SessionIdleTimeout())
	opts := viewer.Options{
		AnimationMS:        cfg.AnimationDurationMS,
		ThumbnailMaxHeight: cfg.ThumbnailMaxHeight,
		Location:           cfg.Location,
	}

	var backend web.BackendInfo
	if cfg.HealthMonitorEnabled() {
		monitor := startHealthMonitor(ctx, cfg, client)
		backend = monitor
		opts.BackendStatus = func() render.BackendStatus {
			switch monitor.Status() {
			case health.StatusUp:
				return render.BackendUp
			case health.StatusDown:
				return render.BackendDown
			default:
				return render.BackendUnknown
			}
		}
	} else {
		log.Println("Backend health monitor disabled (health_probe_schedule not set)")
	}

	sweep, err := config.ParseSchedule(cfg.SessionSweepSchedule)
	if err != nil {
		log.Fatalf("Invalid session_sweep_schedule %q: %v", cfg.SessionSweepSchedule, err)
	}
	health.StartScheduler(ctx, "session sweep", sweep, cfg.Location, func(context.Context) {
		store.Sweep()
	})

	controller := viewer.New(svc, store, renderer, opts)
	server := web.NewServer(web.Config{
		Address:    cfg.ListenAddr,
		Controller: controller,
		Backend:    backend,
	})

	log.Println("Starting segmentation comparison viewer...")
	if err := server.Start(ctx); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func startHealthMonitor(ctx context.Context, cfg config.Config, client *httpx.Client) *health.Monitor {
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	go func() {
		<-ctx.Done()
		db.Close()
	}()

	var notifier health.Notifier
	if cfg.SlackAlertsConfigured() {
		notifier = health.NewSlackNotifier(slack.New(cfg.SlackBotToken), cfg.SlackAlertChannelID)
		log.Printf("Backend alerts go to Slack channel %s", cfg.SlackAlertChannelID)
	}
	monitor := health.NewMonitor(client, db, notifier)

	sched, err := config.ParseSchedule(cfg.HealthProbeSchedule)
	if err != nil {
		log.Fatalf("Invalid health_probe_schedule %q: %v", cfg.HealthProbeSchedule, err)
	}
	// First probe right away so the badge is not "unknown" for a whole period.
	go monitor.Check(ctx)
	health.StartScheduler(ctx, "health probe", sched, cfg.Location, func(ctx context.Context) {
		monitor.Check(ctx)
		if n, err := sqlite.DeleteProbesBefore(db, time.Now().UTC().Add(-probeRetention)); err != nil {
			log.Printf("probe history prune error: %v", err)
		} else if n > 0 {
			log.Printf("probe history pruned=%d", n)
		}
	})
	return monitor
}
