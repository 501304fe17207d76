package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/typedmdx/internal"
	"github.com/starford/typedmdx/internal/catalog"
	pkgconfig "github.com/starford/typedmdx/pkg/config"
	"github.com/starford/typedmdx/pkg/schema"
)

var version = "dev"

// errInvalidContent makes check exit non-zero without an extra log line.
var errInvalidContent = errors.New("invalid content found")

// loadConfig reads --config. Only an explicitly named file must exist;
// a missing default file leaves the built-in defaults in place.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Content.Root = root
	}
	return cfg, nil
}

// openCatalog builds the catalog for the one-shot commands. Logs go to
// stderr so stdout carries only the JSON result.
func openCatalog(cmd *cli.Command) (*catalog.Catalog, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg, os.Stderr)
	return internal.OpenCatalog(cfg, logger, nil)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(internal.WithConfig(cfg), internal.WithVersion(version))
}

type listedEntry struct {
	Slug string        `json:"slug"`
	Path string        `json:"path"`
	Data schema.Record `json:"data"`
	Body string        `json:"body,omitempty"`
}

func list(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("usage: list <collection>")
	}
	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	entries, err := cat.List(ctx, name)
	if err != nil {
		return err
	}
	out := make([]listedEntry, len(entries))
	for i, e := range entries {
		out[i] = listedEntry{Slug: e.Metadata.Slug, Path: e.Metadata.StoragePath, Data: e.Data}
		if cmd.Bool("body") {
			out[i].Body = e.Body
		}
	}
	return printJSON(os.Stdout, out)
}

func get(ctx context.Context, cmd *cli.Command) error {
	name, slug := cmd.Args().Get(0), cmd.Args().Get(1)
	if name == "" || slug == "" {
		return errors.New("usage: get <collection> <slug>")
	}
	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	e, err := cat.Get(ctx, name, slug)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			for _, is := range verr.Issues {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", is.Path, is.Message)
			}
		}
		return err
	}
	return printJSON(os.Stdout, listedEntry{Slug: e.Metadata.Slug, Path: e.Metadata.StoragePath, Data: e.Data, Body: e.Body})
}

func check(ctx context.Context, cmd *cli.Command) error {
	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	names := cat.Names()
	if n := cmd.Args().First(); n != "" {
		names = []string{n}
	}

	w := os.Stdout
	bad := 0
	for _, name := range names {
		res, err := cat.Scan(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d valid, %d skipped\n", name, len(res.Entries), len(res.Skipped))
		for _, s := range res.Skipped {
			bad++
			fmt.Fprintf(w, "  %s: %v\n", s.StoragePath, s.Err)
		}
	}
	if bad > 0 {
		return errInvalidContent
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "typedmdx",
		Usage:   "Typed, schema-validated content collections over Markdown/MDX files",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Override the content root directory",
				Sources: cli.EnvVars("CONTENT_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API (default)",
				Action: serve,
			},
			{
				Name:      "list",
				Usage:     "Print the valid entries of a collection as JSON",
				ArgsUsage: "<collection>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "body", Usage: "Include document bodies"},
				},
				Action: list,
			},
			{
				Name:      "get",
				Usage:     "Print one entry as JSON",
				ArgsUsage: "<collection> <slug>",
				Action:    get,
			},
			{
				Name:      "check",
				Usage:     "Validate every document and report the ones that fail",
				ArgsUsage: "[collection]",
				Action:    check,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalidContent) {
			slog.Error("application error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
