package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bhumika-medical/api/internal/config"
	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/handler"
	"github.com/bhumika-medical/api/internal/notify"
	"github.com/bhumika-medical/api/internal/reminder"
	"github.com/bhumika-medical/api/internal/router"
	"github.com/bhumika-medical/api/internal/upload"
	"github.com/bhumika-medical/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied")

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	saver, err := upload.NewSaver(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	smtpPort, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		log.Fatalf("Invalid SMTP_PORT %q: %v", cfg.SMTPPort, err)
	}
	emailNotifier, err := notify.NewEmailNotifier(
		cfg.SMTPHost, smtpPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPTo)
	if err != nil {
		log.Fatalf("Failed to build email notifier: %v", err)
	}
	var mailer handler.Mailer
	if emailNotifier != nil {
		mailer = emailNotifier
		log.Println("Email notifications enabled")
	}

	sweeper := reminder.NewSweeper(queries)
	if err := sweeper.Start(cfg.ReminderCron, cfg.ReminderTZ); err != nil {
		log.Fatalf("Failed to start reminder sweep: %v", err)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, queries, saver, hub, sweeper, mailer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
