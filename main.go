package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mconnect-bus/api"
	"mconnect-bus/bus"
	"mconnect-bus/config"
	"mconnect-bus/controllers"
	"mconnect-bus/database"
	"mconnect-bus/routes"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	// ---- Database
	db, err := database.Connect()
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	store := database.NewStore(db)

	// ---- Bus
	busClient, err := bus.Connect(cfg.AmqpURL, logger)
	if err != nil {
		logger.Fatal("bus connect failed", zap.Error(err))
	}
	defer func() { _ = busClient.Close() }()

	// ---- External services
	treasury := api.NewTreasuryClient(cfg.TreasuryBaseURL)
	records := api.NewRecordsClient(cfg.RecordsBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Controllers
	sink := controllers.NewErrorSink(store, busClient, cfg.IncidentsTopic, cfg.Service, logger)

	registrator := controllers.NewRegistrator(store, busClient, treasury, records,
		sink, cfg.OutTopic, cfg.RegistratorInterval, logger)
	registrator.Start(ctx)

	scheduler := controllers.NewScheduler(store, busClient, treasury, sink,
		cfg.OutTopic, cfg.SchedulerInterval, config.StatusRoutes(), logger)
	scheduler.Start(ctx)

	if err := busClient.Subscribe(ctx, cfg.InTopic, registrator.HandleMessage); err != nil {
		logger.Fatal("bus subscribe failed", zap.Error(err))
	}

	// ---- Health server
	app := fiber.New()
	routes.Register(app)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Info("mConnect Bus is running", zap.String("port", cfg.Port))

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
