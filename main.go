package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/app"
	"github.com/marketmind-ai/marketmind/internal/config"
	"github.com/marketmind-ai/marketmind/internal/coordinator"
	"github.com/marketmind-ai/marketmind/internal/mock"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

func main() {
	cliApp := &cli.App{
		Name:  "marketmind",
		Usage: "Terminal client for the MarketMind multi-agent analysis engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a marketmind.toml config file",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Agent engine base URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "User id for session scoping (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error, off",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "chat",
				Usage: "Start an interactive chat (default command)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Resume an existing session by id",
					},
				},
				Action: runChat,
			},
			{
				Name:  "mock",
				Usage: "Run a local mock agent engine",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Value: 8080,
						Usage: "Port to listen on",
					},
				},
				Action: func(c *cli.Context) error {
					return mock.NewServer().ListenAndServe(c.Int("port"))
				},
			},
			{
				Name:  "sessions",
				Usage: "Manage stored sessions",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List sessions for the configured user",
						Action: runSessionsList,
					},
					{
						Name:      "delete",
						Usage:     "Delete a session by id",
						ArgsUsage: "<session-id>",
						Action:    runSessionsDelete,
					},
				},
			},
		},
		Action: runChat,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads config, applies flag overrides, and builds the engine client.
func setup(c *cli.Context) (*config.Config, *engine.Client, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if v := c.String("backend"); v != "" {
		cfg.Backend.URL = v
	}
	if v := c.String("user"); v != "" {
		cfg.Backend.UserID = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	logOut := os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logOut = f
	}
	engine.SetLogger(engine.NewLogger(engine.ParseLogLevel(cfg.Logging.Level), logOut))

	client := engine.NewClient(cfg.Backend.URL,
		engine.WithAppName(cfg.Backend.AppName),
		engine.WithTimeout(30*time.Second),
	)
	return cfg, client, nil
}

func runChat(c *cli.Context) error {
	cfg, client, err := setup(c)
	if err != nil {
		return err
	}

	registry := agents.NewRegistry(agents.Defaults())
	shared := &app.SharedState{}

	co := coordinator.New(client, registry, cfg.Backend.UserID,
		coordinator.WithLogger(engine.GetLogger()),
		coordinator.WithOnUpdate(func() {
			shared.Send(app.RefreshMsg{})
		}),
	)
	model := app.New(co, registry, shared, c.String("session"))

	p := tea.NewProgram(model, tea.WithAltScreen())
	shared.SetProgram(p)

	_, err = p.Run()
	return err
}

func runSessionsList(c *cli.Context) error {
	cfg, client, err := setup(c)
	if err != nil {
		return err
	}

	page, err := client.ListSessions(c.Context, cfg.Backend.UserID, 50, "")
	if err != nil {
		return err
	}
	if len(page.Sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUPDATED")
	for _, s := range page.Sessions {
		id := engine.SessionID(s.Name)
		name := s.DisplayName
		if name == "" {
			name = "(untitled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, name, s.UpdateTime.Format(time.RFC3339))
	}
	return w.Flush()
}

func runSessionsDelete(c *cli.Context) error {
	cfg, client, err := setup(c)
	if err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if err := client.DeleteSession(c.Context, cfg.Backend.UserID, engine.SessionID(id)); err != nil {
		return err
	}
	fmt.Println("deleted", engine.SessionID(id))
	return nil
}
