package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"convolab/config"
	"convolab/internal/repository"
	"convolab/internal/services"
	"convolab/pkg/database"
)

const usage = `
Convo Lab - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Apply all migrations
  down        Roll back all migrations
  status      Show migration status and user count
  seed        Create a user through the signup flow

Flags:
  -username string   Username for seed (default "demo")
  -email string      Email for seed (default "demo@convolab.ai")
  -password string   Password for seed (default "demo-password")

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate -email me@example.com -password s3cret seed
`

func main() {
	username := flag.String("username", "demo", "Username for seed")
	email := flag.String("email", "demo@convolab.ai", "Email for seed")
	password := flag.String("password", "demo-password", "Password for seed")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.LoadUnchecked()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command := flag.Arg(0); command {
	case "up":
		err = database.Migrate(ctx, db)
	case "down":
		err = database.Rollback(ctx, db)
	case "status":
		err = showStatus(ctx, db)
	case "seed":
		err = seed(ctx, db, cfg, services.SignupInput{Username: *username, Email: *email, Password: *password})
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
	log.Printf("%s completed", flag.Arg(0))
}

func showStatus(ctx context.Context, db *sql.DB) error {
	if err := database.HealthCheck(ctx, db); err != nil {
		return err
	}
	if err := database.Status(ctx, db); err != nil {
		return err
	}
	count, err := database.UserCount(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("users: %d rows", count)
	return nil
}

func seed(ctx context.Context, db *sql.DB, cfg *config.Config, in services.SignupInput) error {
	authService := services.NewAuthService(repository.NewUserRepository(db), cfg)
	u, err := authService.Signup(ctx, in)
	if err != nil {
		return err
	}
	log.Printf("created user %s (id %d)", u.Email, u.ID)
	return nil
}
