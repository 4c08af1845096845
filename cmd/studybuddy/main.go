package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/api"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/app"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/clock"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/config"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/event"
	"github.com/GimbiyaSa/campus-study-buddy-sub005/internal/mutate"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	baseURL := flag.String("url", "", "Backend base URL (overrides config)")
	token := flag.String("token", "", "Auth token (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Server.BaseURL = *baseURL
		cfg.Server.WSURL = deriveWSURL(*baseURL)
	}
	if *token != "" {
		cfg.Server.Token = *token
	}

	// A TUI owns stdout; log lines go to a file.
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			defer f.Close()
			log.SetOutput(f)
		}
	} else {
		log.SetOutput(io.Discard)
	}

	clk := clock.System{}
	bus := event.NewBus()
	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.Token, cfg.Sync.RetryDelay)
	stream := api.NewStreamClient(cfg.Server.WSURL, cfg.Server.Token)
	ctrl := mutate.New(clk, client, client, cfg.Sync.MutationTimeout)

	m := app.New(cfg, bus, stream, client, ctrl, clk)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the given path, or the default location when it
// exists, or falls back to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".config", "studybuddy", "config.yaml")
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}
	return config.Default(), nil
}

// deriveWSURL converts http://host:port → ws://host:port/ws
func deriveWSURL(base string) string {
	switch {
	case len(base) > 8 && base[:8] == "https://":
		return "wss://" + base[8:] + "/ws"
	case len(base) > 7 && base[:7] == "http://":
		return "ws://" + base[7:] + "/ws"
	default:
		return "ws://" + base + "/ws"
	}
}
