// chatctl is a local-development stand-in for the site's account system:
// it seeds user rows and mints session tokens so the chat service can be
// exercised without the full site running.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcelolino/seucodigo-chat/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "chatctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()
	if len(args) == 0 {
		return fmt.Errorf("usage: chatctl <seed|token> [flags]")
	}
	switch args[0] {
	case "seed":
		return seed(args[1:])
	case "token":
		return token(args[1:])
	default:
		return fmt.Errorf("unknown command %q (want seed or token)", args[0])
	}
}

func seed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	dbPath := fs.String("db", getEnv("CHAT_DB_PATH", "seucodigo-chat.db"), "sqlite database path")
	name := fs.String("name", "", "user name (required)")
	password := fs.String("password", "", "password (required)")
	admin := fs.Bool("admin", false, "create an operator account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *password == "" {
		return fmt.Errorf("seed: -name and -password are required")
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := store.CreateUser(context.Background(), *name, hash, *admin)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("created user %d (%s, admin=%v)\n", id, *name, *admin)
	return nil
}

func token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	dbPath := fs.String("db", getEnv("CHAT_DB_PATH", "seucodigo-chat.db"), "sqlite database path")
	userID := fs.Int64("user", 0, "user id (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "session lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 {
		return fmt.Errorf("token: -user is required")
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	user, err := store.GetUserByID(ctx, *userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user with id %d", *userID)
	}
	sessionToken := uuid.NewString()
	if err := store.CreateSession(ctx, *userID, sessionToken, time.Now().Add(*ttl)); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	fmt.Println(sessionToken)
	return nil
}

func openStore(path string) (*storage.Store, error) {
	store, err := storage.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
