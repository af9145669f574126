package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dotsetgreg/chatmind/pkg/agent"
	"github.com/dotsetgreg/chatmind/pkg/config"
	"github.com/dotsetgreg/chatmind/pkg/fallback"
	"github.com/dotsetgreg/chatmind/pkg/logger"
	"github.com/dotsetgreg/chatmind/pkg/memory"
	"github.com/dotsetgreg/chatmind/pkg/news"
	"github.com/dotsetgreg/chatmind/pkg/persistence"
	"github.com/dotsetgreg/chatmind/pkg/providers"
)

const appName = "chatmind"

var version = "dev"

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           appName,
		Short:         "Personal AI tutor with tiered memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config file")

	root.AddCommand(newChatCommand(&configPath))
	root.AddCommand(newWipeCommand(&configPath))
	root.AddCommand(newVersionCommand())
	return root
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".chatmind", "config.json")
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s %s\n", appName, version)
			return nil
		},
	}
}

func newChatCommand(configPath *string) *cobra.Command {
	var userID, name, domain string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if domain != "" {
				cfg.Agent.Domain = domain
			}

			log := logger.New(os.Stderr, cfg.Agent.Verbose)

			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			provider, err := providers.NewProvider(cmd.Context(), providers.Options{
				Provider:     cfg.Agent.Provider,
				GeminiAPIKey: cfg.Providers.Gemini.APIKey,
				OpenAIAPIKey: cfg.Providers.OpenAI.APIKey,
				ChatModel:    cfg.Agent.Model,
				ImageModel:   cfg.Agent.ImageModel,
			})
			if err != nil {
				return fmt.Errorf("configure provider: %w", err)
			}

			var fetcher news.Fetcher = news.StaticFetcher{}
			if cfg.News.BraveAPIKey != "" {
				fetcher = news.NewBraveFetcher(cfg.News.BraveAPIKey)
			}

			responder, err := agent.NewResponder(store, provider, fallback.NewSelector(), fetcher, log)
			if err != nil {
				return err
			}
			defer responder.Close()

			return chatLoop(cmd.Context(), responder, cfg, userID, name)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "local", "user id for memory scoping")
	cmd.Flags().StringVar(&name, "name", "", "display name for a fresh profile")
	cmd.Flags().StringVar(&domain, "domain", "", "topic domain (overrides config)")
	return cmd
}

func newWipeCommand(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete all stored memory for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(os.Stderr, cfg.Agent.Verbose)

			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearForUser(cmd.Context(), userID); err != nil {
				return fmt.Errorf("wipe memory for %s: %w", userID, err)
			}
			fmt.Printf("Memory wiped for user %s\n", userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "local", "user id to wipe")
	return cmd
}

func openStore(cfg *config.Config, log *bolt.Logger) (*memory.Store, error) {
	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	port, err := persistence.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}

	memCfg := memory.Config{RetentionSchedule: cfg.Memory.RetentionSchedule}
	if cfg.Memory.SessionTTLSeconds > 0 {
		memCfg.SessionTTL = time.Duration(cfg.Memory.SessionTTLSeconds) * time.Second
	}
	store, err := memory.NewStore(memCfg, port, log)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return store, nil
}

func chatLoop(ctx context.Context, responder *agent.Responder, cfg *config.Config, userID, name string) error {
	sessionID := uuid.NewString()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".chatmind_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s interactive chat (exit or Ctrl+C to quit)\n\n", appName)

	var history []providers.Message
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nAté logo!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Até logo!")
			return nil
		}

		// Cumulative chunks render replace-in-place on a single line.
		onChunk := func(cumulative string) {
			fmt.Printf("\r\033[2K%s", cumulative)
		}

		turnCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		final, err := responder.Respond(turnCtx, agent.Request{
			SessionID:           sessionID,
			UserID:              userID,
			DisplayName:         name,
			Domain:              cfg.Agent.Domain,
			InstructionTemplate: cfg.Agent.InstructionTemplate,
			History:             history,
			Message:             input,
			OnChunk:             onChunk,
		})
		cancel()
		if err != nil {
			fmt.Printf("\nError: %v\n", err)
			continue
		}
		fmt.Printf("\r\033[2K%s\n\n", final)

		history = append(history, providers.Message{Role: "user", Text: input})
		history = append(history, providers.Message{Role: "assistant", Text: final})
	}
}
