package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	emailPkg "courier/internal/adapters/email"
	web "courier/internal/adapters/http"
	"courier/internal/adapters/storage"
	scheduleStorePkg "courier/internal/adapters/storage/schedule"
	sendlogStorePkg "courier/internal/adapters/storage/sendlog"
	"courier/internal/adapters/storage/unitofwork"
	"courier/internal/application/orchestrators"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Local development reads settings from .env; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := envOrDefault("COURIER_DB", "courier.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	log.Println("Database initialized successfully!")

	// Wrap the DB with slow-query instrumentation
	timedDB := storage.NewTimedDB(db)

	stores := &web.Stores{
		ScheduleStore: scheduleStorePkg.NewSQLiteStore(timedDB),
		SendLogStore:  sendlogStorePkg.NewSQLiteStore(timedDB),
	}

	sender := buildSender()
	web.SetEmailSender(sender, os.Getenv("COURIER_CONFIRMATION_EMAIL"))

	// Scheduling engine: one background worker polling for due emails,
	// stopped via context on shutdown.
	cfg := orchestrators.DefaultDispatcherConfig()
	if v := os.Getenv("COURIER_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("COURIER_POLL_INTERVAL must be a positive duration: %q", v)
		}
		cfg.Interval = d
	}
	if v := os.Getenv("COURIER_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			log.Fatalf("COURIER_RETENTION_DAYS must be a positive integer: %q", v)
		}
		cfg.Retention = time.Duration(days) * 24 * time.Hour
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := orchestrators.NewDispatcher(unitofwork.NewSQLite(db), sender, cfg)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Start(ctx)
	}()

	mux := web.NewMux(stores, os.Getenv("COURIER_ALLOWED_ORIGIN"))

	addr := envOrDefault("COURIER_ADDR", ":8080")
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("Courier %s starting on %s (env=%s)", version, addr, envOrDefault("COURIER_ENV", "development"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http_shutdown_failed", "error", err)
	}
	<-dispatcherDone
	slog.Info("shutdown_complete")
}

// buildSender picks the mail transport from COURIER_MAILER: smtp, resend or
// noop. SMTP settings mirror the classic EMAIL/SMTP_* variable names.
func buildSender() emailPkg.Sender {
	switch envOrDefault("COURIER_MAILER", "smtp") {
	case "resend":
		key := os.Getenv("COURIER_RESEND_KEY")
		if key == "" {
			log.Fatal("COURIER_RESEND_KEY is required when COURIER_MAILER=resend")
		}
		from := envOrDefault("COURIER_FROM", "Courier <noreply@localhost>")
		log.Println("Email sender configured (Resend)")
		return emailPkg.NewResendSender(key, from)
	case "noop":
		log.Println("Email sender configured (noop — no real delivery)")
		return emailPkg.NewNoopSender()
	default:
		username := os.Getenv("EMAIL")
		password := os.Getenv("SMTP_PASS")
		if username == "" || password == "" {
			log.Fatal("EMAIL and SMTP_PASS are required when COURIER_MAILER=smtp")
		}
		host := envOrDefault("SMTP_SERVER", "smtp.gmail.com")
		port, err := strconv.Atoi(envOrDefault("SMTP_PORT", "587"))
		if err != nil {
			log.Fatalf("SMTP_PORT must be an integer: %v", err)
		}
		log.Printf("Email sender configured (SMTP via %s:%d)", host, port)
		return emailPkg.NewSMTPSender(host, port, username, password, os.Getenv("COURIER_FROM"))
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
