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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"parking-bot-backend/config"
	"parking-bot-backend/internal/api"
	"parking-bot-backend/internal/capacity"
	"parking-bot-backend/internal/conversation"
	"parking-bot-backend/internal/db"
	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/notification"
	"parking-bot-backend/internal/store"
	"parking-bot-backend/internal/whatsapp"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("failed to read .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logrus.Infof("configuration loaded from %s", configPath)

	loc, err := time.LoadLocation(cfg.Conversation.Timezone)
	if err != nil {
		logrus.Fatalf("unknown timezone %q: %v", cfg.Conversation.Timezone, err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)

	composer := message.NewComposer(loc)
	chat := whatsapp.NewClient(cfg.WhatsApp)
	if cfg.WhatsApp.Token == "" || cfg.WhatsApp.PhoneNumberID == "" {
		logrus.Warn("whatsapp token or phone number id missing; replies will fail until configured")
	}

	// Lot notifications go to WhatsApp and, when VAPID keys exist, to browser push.
	var webpushOptions *webpush.Options
	var notifier notification.Sender = chat
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		notifier = notification.NewMultiSender(chat, notification.NewPushMirror(appStore, webpushOptions))
		logrus.Info("web push mirror enabled")
	}

	fanOut := notification.NewFanOut(cfg.WorkerPool.Size, appStore, appStore, notifier, composer)
	capacitySvc := capacity.NewService(appStore, fanOut)
	engine := conversation.NewEngine(appStore, appStore, appStore, capacitySvc, composer, conversation.Options{
		PageSize:   cfg.Conversation.PageSize,
		ContextTTL: cfg.Conversation.ContextTTL,
	})

	handler := api.NewHandler(api.Deps{
		Store:       appStore,
		Engine:      engine,
		Capacity:    capacitySvc,
		Sender:      chat,
		WebPush:     webpushOptions,
		VerifyToken: cfg.WhatsApp.VerifyToken,
	})
	router := api.NewRouter(handler, cfg.Server, cfg.Admin.Token)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logrus.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("HTTP server Shutdown: %v", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}

	logrus.Info("server gracefully stopped")
}
