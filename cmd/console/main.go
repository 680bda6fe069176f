package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/marcelolino/seucodigo-chat/internal/console"
)

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", getEnv("CHAT_SERVER_URL", "http://localhost:8080"), "chat server base URL")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "operator session token (see chatctl token)")
	flag.Parse()

	program := tea.NewProgram(console.NewModel(*serverURL, *token))
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
