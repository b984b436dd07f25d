package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sethvargo/go-password/password"
	"github.com/urfave/cli/v3"

	"github.com/starford/kanboard/internal"
	"github.com/starford/kanboard/internal/apperr"
	"github.com/starford/kanboard/internal/kanban"
	"github.com/starford/kanboard/internal/schema"
	"github.com/starford/kanboard/internal/storage"
	pkgconfig "github.com/starford/kanboard/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	written, err := pkgconfig.EnsureDefault(configPath, cfg)
	if err != nil {
		return nil, err
	}
	if written {
		slog.Info("wrote default config", slog.String("path", configPath))
	}
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogger(internal.NewTextLogger(os.Stderr, cfg.App.LogLevel)),
	)
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	file, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunTUI(ctx, file,
		internal.WithConfig(cfg),
		internal.WithLogger(internal.NewTextLogger(io.Discard, cfg.App.LogLevel)),
	)
}

func fileArg(cmd *cli.Command) (string, error) {
	file := cmd.Args().First()
	if file == "" {
		return "", errors.New("a document path is required")
	}
	return file, nil
}

func newDocument(_ context.Context, cmd *cli.Command) error {
	file, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, name, err := storage.OpenFile(file)
	if err != nil {
		return err
	}
	if _, err := store.Read(name); err == nil {
		return fmt.Errorf("%s: %w", file, apperr.ErrAlreadyExists)
	}

	title := cmd.String("title")
	if title == "" {
		title = strings.TrimSuffix(name, ".kanban.json")
	}
	doc := kanban.NewCard(title, cmd.String("description"), cfg.Defaults.Template())
	if _, err := storage.SaveDocument(store, name, doc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "created %s\n", file)
	return nil
}

func showDocument(_ context.Context, cmd *cli.Command) error {
	file, err := fileArg(cmd)
	if err != nil {
		return err
	}
	store, name, err := storage.OpenFile(file)
	if err != nil {
		return err
	}
	doc, _, err := storage.LoadDocument(store, name)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if doc.Title != "" {
		fmt.Fprintln(w, doc.Title)
	}
	if doc.Description != "" {
		fmt.Fprintln(w, doc.Description)
	}
	for _, b := range doc.Boards {
		fmt.Fprintf(w, "\n%s (%d)\n", b.Title, len(b.Notes))
		for _, n := range b.Notes {
			marker := "-"
			if n.Expanded {
				marker = "+"
			}
			fmt.Fprintf(w, "  %s %s\n", marker, n.Title)
			if n.Expanded && n.Content != "" {
				for _, line := range strings.Split(n.Content, "\n") {
					fmt.Fprintf(w, "      %s\n", line)
				}
			}
		}
	}
	return nil
}

func validateDocument(_ context.Context, cmd *cli.Command) error {
	file, err := fileArg(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	issues, err := schema.Validate(data)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	if len(issues) == 0 {
		fmt.Fprintf(w, "%s: ok\n", file)
		return nil
	}
	for _, is := range issues {
		fmt.Fprintf(w, "%s: %s\n", file, is)
	}
	return fmt.Errorf("%s: %d schema issue(s)", file, len(issues))
}

func generateToken(_ context.Context, cmd *cli.Command) error {
	length := int(cmd.Int("length"))
	token, err := password.Generate(length, length/4, 0, false, true)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintln(cmd.Root().Writer, token)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "kanboard",
		Usage:  "Personal kanban boards stored as JSON files, with a REST API, terminal UI and MCP tools",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, workspace watcher and event stream",
				Action: serve,
			},
			{
				Name:      "new",
				Usage:     "Create a board document with the default boards",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Document title (default: file name)"},
					&cli.StringFlag{Name: "description", Usage: "Document description"},
				},
				Action: newDocument,
			},
			{
				Name:      "show",
				Usage:     "Print the boards and notes of a document",
				ArgsUsage: "<path>",
				Action:    showDocument,
			},
			{
				Name:      "validate",
				Usage:     "Check a document against the JSON schema",
				ArgsUsage: "<path>",
				Action:    validateDocument,
			},
			{
				Name:      "tui",
				Usage:     "Edit a document in the terminal",
				ArgsUsage: "<path>",
				Action:    runTUI,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:  "token",
				Usage: "Generate a random bearer token for auth.mode=token",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "length", Value: 40, Usage: "Token length"},
				},
				Action: generateToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
