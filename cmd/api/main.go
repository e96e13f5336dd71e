package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/database"
	"github.com/wilheimcosta/adwrng2/internal/handler"
	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
	"github.com/wilheimcosta/adwrng2/internal/mqtt"
	"github.com/wilheimcosta/adwrng2/internal/notify"
	"github.com/wilheimcosta/adwrng2/internal/ratelimit"
	"github.com/wilheimcosta/adwrng2/internal/redemet"
	"github.com/wilheimcosta/adwrng2/internal/repository"
	"github.com/wilheimcosta/adwrng2/internal/server"
	"github.com/wilheimcosta/adwrng2/internal/service"
	"github.com/wilheimcosta/adwrng2/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting AD WRNG server")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Database Connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal("Database health check failed: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Database migration failed: %v", err)
		}
	}
	log.Info("Database connected successfully (%s)", db.Driver)

	// 4. Initialize Repositories
	var (
		alertRepo    repository.IAlertRepository
		favoriteRepo repository.IFavoriteRepository
	)
	if db.Gorm != nil {
		alertRepo = repository.NewGormAlertRepository(db.Gorm)
		favoriteRepo = repository.NewGormFavoriteRepository(db.Gorm)
	} else {
		alertRepo = repository.NewAlertRepository(db.DB)
		favoriteRepo = repository.NewFavoriteRepository(db.DB)
	}

	// 5. Realtime fan-out
	source := redemet.NewClient(&cfg.Redemet, log)

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}
		defer mqttClient.Disconnect()
	}

	dispatcher := buildDispatcher(cfg, hub, mqttClient, log)
	defer dispatcher.Wait()

	// 6. Initialize Services
	alertService := service.NewAlertService(source, alertRepo, dispatcher, log)
	sweeper := service.NewSweeper(alertRepo, log)
	aerodromeService := service.NewAerodromeService(source, favoriteRepo, cfg.Poller.ICAOs, log)
	reportService := service.NewReportService(alertRepo, log)

	if mqttClient != nil {
		err := mqttClient.SubscribeRegisterRequests(config.ValidICAO, handleRegisterRequest(ctx, alertService, cfg.Poller.RequestTimeout, log))
		if err != nil {
			log.Fatal("Failed to subscribe to register requests: %v", err)
		}
		log.Info("MQTT subscriptions active")
	}

	if cfg.Poller.Enabled {
		poller := service.NewPoller(alertService, sweeper, aerodromeService, cfg.Poller, log)
		poller.Start()
		defer poller.Shutdown()
	}

	var limiter *ratelimit.Limiter
	if cfg.Security.EnableRateLimit {
		limiter = ratelimit.New(cfg.Security.RateLimitPerMinute, time.Minute)
		go limiter.Run(ctx)
	}

	// 7. Initialize Handlers
	var broker handler.BrokerStatus
	if mqttClient != nil {
		broker = mqttClient
	}

	srv := server.New(cfg, log)
	srv.RegisterHandlers(server.Handlers{
		Alerts:     handler.NewAlertHandler(alertService, sweeper, reportService, log),
		Aerodromes: handler.NewAerodromeHandler(aerodromeService, log),
		Health:     handler.NewHealthHandler(db, broker, hub, log),
		WebSocket:  hub.ServeWs,
		Limiter:    limiter,
	})

	// 8. Start HTTP Server
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}
	stop()

	log.Info("Shutdown complete")
}

// buildDispatcher registers the realtime channels for every alert and the
// outbound ones only above the configured severity.
func buildDispatcher(cfg *config.Config, hub *websocket.Hub, mqttClient *mqtt.Client, log *logger.Logger) *notify.Dispatcher {
	d := notify.NewDispatcher(cfg.Notify.Timeout, log)
	minSeverity := models.Severity(cfg.Notify.MinSeverity)

	d.Register(notify.NewHubNotifier(hub), "")
	if mqttClient != nil {
		d.Register(notify.NewMQTTNotifier(mqttClient), "")
	}

	n := cfg.Notify
	if n.SlackToken != "" && n.SlackChannel != "" {
		d.Register(notify.NewSlackNotifier(n.SlackToken, n.SlackChannel), minSeverity)
	}
	if n.SMTPHost != "" && len(n.EmailReceivers) > 0 {
		d.Register(notify.NewEmailNotifier(n.SMTPHost, n.SMTPPort, n.EmailFrom, n.EmailPassword, n.EmailReceivers), minSeverity)
	}
	if n.DiscordWebhook != "" {
		discord, err := notify.NewDiscordNotifier(n.DiscordWebhook)
		if err != nil {
			log.Error("Discord notifications disabled: %v", err)
		} else {
			d.Register(discord, minSeverity)
		}
	}

	log.Info("Notification channels: %v", d.Names())
	return d
}

// --- MQTT Handlers ---

// handleRegisterRequest runs on its own goroutine per request; parent is
// cancelled on shutdown so in-flight reconciles stop with the server.
func handleRegisterRequest(parent context.Context, alerts *service.AlertService, timeout time.Duration, log *logger.Logger) func(icao string) {
	return func(icao string) {
		ctx := parent
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := alerts.RegisterWarnings(ctx, icao)
		if err != nil {
			log.Error("Register request for %s failed: %v", icao, err)
			return
		}
		log.Info("Register request for %s: inserted=%d already_active=%d", icao, result.Inserted, result.AlreadyActive)
	}
}
