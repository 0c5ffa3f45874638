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

	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/config"
	"github.com/vedran77/hive/internal/database"
	"github.com/vedran77/hive/internal/identity"
	"github.com/vedran77/hive/internal/jobs"
	"github.com/vedran77/hive/internal/logging"
	"github.com/vedran77/hive/internal/media"
	"github.com/vedran77/hive/internal/membership"
	"github.com/vedran77/hive/internal/metrics"
	"github.com/vedran77/hive/internal/realtime"
	"github.com/vedran77/hive/internal/repository/docstore"
	"github.com/vedran77/hive/internal/service"
	"github.com/vedran77/hive/internal/transport/http/handlers"
	"github.com/vedran77/hive/internal/transport/http/middleware"
	"github.com/vedran77/hive/internal/transport/ws"
)

const tokenTTL = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	backend, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("opening store")
	}
	defer backend.Close()

	disk, err := media.NewDiskStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.WithError(err).Fatal("opening media store")
	}

	// Repositories
	repos := docstore.New(backend.Store)
	rules := membership.Rules{OpenCommunityID: cfg.OpenCommunityID}
	tokens := identity.NewJWTProvider(cfg.JWTSecret, tokenTTL)

	// Services
	authService := service.NewAuthService(repos.Users, tokens)
	profileService := service.NewProfileService(repos.Users, repos.Settings, disk)
	notificationService := service.NewNotificationService(repos.Activity, repos.Settings, log)
	conversationService := service.NewConversationService(repos.Conversations, repos.Messages, repos.Users, repos.Settings)
	messageService := service.NewMessageService(repos.Messages, repos.Communities, repos.Channels, repos.Users, repos.Settings, conversationService, disk, rules, log)
	messageService.SetNotifier(notificationService)
	communityService := service.NewCommunityService(repos.Communities, repos.Users, rules, disk, log)
	channelService := service.NewChannelService(repos.Channels, repos.Communities, rules)
	retentionService := service.NewRetentionService(repos.Channels, repos.Messages, repos.Retention, service.RetentionOptions{
		CommunityID: cfg.OpenCommunityID,
		Horizon:     cfg.Retention.Horizon.Duration(),
		Channels:    cfg.Retention.Channels,
		BatchSize:   cfg.Retention.BatchSize,
	}, log)

	if _, err := communityService.EnsureOpenCommunity(ctx, "system", "Lounge"); err != nil {
		log.WithError(err).Fatal("creating open community")
	}

	// Realtime
	hub := ws.NewHub(ws.Deps{
		Threads:  messageService,
		Activity: notificationService,
		Receipts: conversationService,
		Watcher:  realtime.NewWatcher(repos.Messages, repos.Settings),
	}, log)
	go hub.Run(ctx)

	hubNotifier := ws.NewHubNotifier(hub)
	communityService.SetNotifier(notificationService, hubNotifier)
	communityService.SetMembershipNotifier(hubNotifier)

	// Jobs
	runner := jobs.NewRunner(log)
	if cfg.Retention.Enabled {
		err = runner.RunOnSchedule(service.RetentionJobName, cfg.Retention.Cron, retentionService.Job())
	} else {
		err = runner.Register(service.RetentionJobName, retentionService.Job())
	}
	if err != nil {
		log.WithError(err).Fatal("registering retention job")
	}
	runner.Start()
	defer runner.Stop()

	// Handlers
	router := &handlers.Router{
		Auth:          handlers.NewAuthHandler(authService, log),
		Profiles:      handlers.NewProfileHandler(profileService, log),
		Communities:   handlers.NewCommunityHandler(communityService, log),
		Channels:      handlers.NewChannelHandler(channelService, log),
		Messages:      handlers.NewMessageHandler(messageService, log),
		Conversations: handlers.NewConversationHandler(conversationService, log),
		Activity:      handlers.NewActivityHandler(notificationService, log),
		Admin:         handlers.NewAdminHandler(runner, retentionService, log),
	}

	// Auth middleware
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, log)
	authenticate := middleware.Auth(tokens)
	auth := func(next http.Handler) http.Handler {
		return authenticate(limiter.Handler(next))
	}

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /ws", ws.ServeWS(hub, tokens))
	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(disk.Dir()))))

	router.Register(mux, auth, middleware.AdminOnly(cfg.IsAdmin))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.InstrumentHandler(middleware.CORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.WithField("addr", addr).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}
