package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/api"
	"github.com/KAsare1/Dentora-server/cmd/config"
	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/db"
	"github.com/KAsare1/Dentora-server/service/notifications"
	"github.com/KAsare1/Dentora-server/service/user"
)

const replayTTL = 24 * time.Hour

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		err = startServer(cfg, log)
	case "migrate":
		err = runMigrations(cfg, log)
	case "clear-db":
		err = runDatabaseClear(cfg, log)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		log.Error(context.Background(), "command failed", "command", cmd, "err", err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config, log logging.Logger) (*gorm.DB, func(), error) {
	DB, err := db.NewPSQLStorage(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database initialization error: %w", err)
	}
	closeFn := func() {
		if err := db.Close(DB); err != nil {
			log.Warn(context.Background(), "closing database", "err", err)
			return
		}
		log.Info(context.Background(), "database connection closed")
	}
	return DB, closeFn, nil
}

func runMigrations(cfg *config.Config, log logging.Logger) error {
	DB, closeDB, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	log.Info(context.Background(), "starting database migrations")
	if err := db.Migrate(DB); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	log.Info(context.Background(), "migrations completed successfully")
	return nil
}

func startServer(cfg *config.Config, log *logging.SlogLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	DB, closeDB, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()
	log.Info(ctx, "connected to the database")

	if cfg.AutoMigrate {
		if err := db.Migrate(DB); err != nil {
			return fmt.Errorf("migration error: %w", err)
		}
		log.Info(ctx, "auto migration completed")
	}

	mailer, err := notifications.NewMailer(cfg)
	if err != nil {
		return err
	}

	server := api.NewApiServer(cfg, DB, log, mailer)
	if cfg.ClerkSecretKey != "" {
		server.WithIdentity(user.NewIdentityClient(cfg.ClerkAPIURL, cfg.ClerkSecretKey))
	} else {
		log.Warn(ctx, "CLERK_SECRET_KEY not set, on-demand user sync disabled")
	}
	if cfg.RedisURL != "" {
		guard, err := user.NewRedisReplayGuardFromURL(ctx, cfg.RedisURL, replayTTL)
		if err != nil {
			return fmt.Errorf("redis replay guard: %w", err)
		}
		defer guard.Close()
		server.WithReplayGuard(guard)
	}

	return server.Run(ctx)
}

func runDatabaseClear(cfg *config.Config, log logging.Logger) error {
	DB, closeDB, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	in := bufio.NewReader(os.Stdin)

	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	confirmation, _ := in.ReadString('\n')
	if strings.TrimSpace(confirmation) != "yes" {
		log.Info(context.Background(), "database clearing cancelled")
		return nil
	}

	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	tableNames, _ := in.ReadString('\n')

	tables, err := tablesByName(tableNames)
	if err != nil {
		return err
	}
	if err := db.DropAll(DB, tables); err != nil {
		return fmt.Errorf("error clearing database: %w", err)
	}
	log.Info(context.Background(), "database cleared successfully")
	return nil
}

// tablesByName resolves a comma separated list of table names. An empty list
// means every table.
func tablesByName(list string) ([]interface{}, error) {
	byName := map[string]interface{}{}
	for _, t := range db.Tables() {
		byName[tableName(t)] = t
	}

	var tables []interface{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown table: %s", name)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func tableName(model interface{}) string {
	if t, ok := model.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}
