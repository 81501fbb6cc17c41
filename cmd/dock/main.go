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
	"golang.org/x/term"

	"github.com/starford/dock/internal"
	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/auth"
	"github.com/starford/dock/internal/dock"
	"github.com/starford/dock/internal/docs"
	"github.com/starford/dock/internal/importer"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
	"github.com/starford/dock/internal/store"
	"github.com/starford/dock/internal/vault"
	pkgconfig "github.com/starford/dock/pkg/config"
)

// session is an open store plus the user the command acts for.
type session struct {
	svc    *dock.Service
	userID string
	out    io.Writer
}

// storeConfig merges the optional config file with flag and env overrides.
func storeConfig(cmd *cli.Command) (internal.StoreConfig, error) {
	cfg := internal.NewDefaultConfig()
	if path := cmd.String("config"); path != "" {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return internal.StoreConfig{}, err
		}
	}
	sc := cfg.Store
	if cmd.IsSet("driver") {
		sc.Driver = cmd.String("driver")
	}
	if cmd.IsSet("sqlite-path") {
		sc.SQLite.Path = cmd.String("sqlite-path")
	}
	if cmd.IsSet("mongo-uri") {
		sc.Mongo.URI = cmd.String("mongo-uri")
	}
	if cmd.IsSet("mongo-database") {
		sc.Mongo.Database = cmd.String("mongo-database")
	}
	if cmd.IsSet("postgres-url") {
		sc.Postgres.URL = cmd.String("postgres-url")
	}
	return sc, sc.Validate()
}

// withSession opens the configured store, runs fn and closes the store.
func withSession(fn func(ctx context.Context, cmd *cli.Command, s *session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		sc, err := storeConfig(cmd)
		if err != nil {
			return fmt.Errorf("store config: %w", err)
		}
		st, closer, err := internal.OpenStore(ctx, sc)
		if err != nil {
			return err
		}
		defer closer.Close()

		s := &session{
			svc:    dock.NewService(st, docs.NewBuilder(parser.NewRenderer()), dock.DefaultViewConfig()),
			userID: cmd.String("user"),
			out:    cmd.Root().Writer,
		}
		return fn(ctx, cmd, s)
	}
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.out)
	if f, ok := s.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func (s *session) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(s.out, format+"\n", args...)
	return err
}

// content returns --file contents when given, else --content.
func content(cmd *cli.Command) (string, bool, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false, fmt.Errorf("read --file: %w", err)
		}
		return string(data), true, nil
	}
	return cmd.String("content"), cmd.IsSet("content"), nil
}

func requireID(cmd *cli.Command, op string) (string, error) {
	id := cmd.String("id")
	if id == "" {
		return "", fmt.Errorf("missing --id for %s", op)
	}
	return id, nil
}

func createAction(ctx context.Context, cmd *cli.Command, s *session) error {
	typ, err := parseType(cmd.Args().First())
	if err != nil {
		return err
	}
	title := cmd.String("title")
	if title == "" {
		title = docs.DefaultTitle
	}
	rec := &models.Record{ID: cmd.String("id"), Type: typ, Title: title}

	if typ == models.TypeList {
		if rec.Items, err = parseItems(cmd.String("items")); err != nil {
			return err
		}
	} else {
		body, _, err := content(cmd)
		if err != nil {
			return err
		}
		rec.Body = body
		rec.Tags = parseTags(cmd.String("tags"))
	}

	id, err := s.svc.Create(ctx, s.userID, rec)
	if err != nil {
		return err
	}
	return s.printf("Created %s %s", typ, id)
}

// lookup fetches id and checks it lives in the collection of typ.
func (s *session) lookup(ctx context.Context, typ models.ItemType, id string) (*models.Record, error) {
	rec, err := s.svc.Get(ctx, s.userID, id)
	if err != nil {
		return nil, err
	}
	if !sameCollection(typ, rec.Type) {
		return nil, apperr.ErrNotFound
	}
	return rec, nil
}

func updateAction(ctx context.Context, cmd *cli.Command, s *session) error {
	typ, err := parseType(cmd.Args().First())
	if err != nil {
		return err
	}
	id, err := requireID(cmd, "update")
	if err != nil {
		return err
	}
	if _, err := s.lookup(ctx, typ, id); err != nil {
		return err
	}

	var p models.Patch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		p.Title = &title
	}
	if typ == models.TypeList {
		if cmd.IsSet("items") {
			items, err := parseItems(cmd.String("items"))
			if err != nil {
				return err
			}
			p.Items = &items
		}
	} else {
		body, set, err := content(cmd)
		if err != nil {
			return err
		}
		if set {
			p.Body = &body
		}
		if cmd.IsSet("tags") {
			tags := parseTags(cmd.String("tags"))
			p.Tags = &tags
		}
	}

	if err := s.svc.Update(ctx, s.userID, id, p); err != nil {
		return err
	}
	return s.printf("Updated %s %s", typ, id)
}

func deleteAction(ctx context.Context, cmd *cli.Command, s *session) error {
	typ, err := parseType(cmd.Args().First())
	if err != nil {
		return err
	}
	id, err := requireID(cmd, "delete")
	if err != nil {
		return err
	}
	if _, err := s.lookup(ctx, typ, id); err != nil {
		return err
	}
	if err := s.svc.Delete(ctx, s.userID, id); err != nil {
		return err
	}
	return s.printf("Deleted %s %s", typ, id)
}

func getAction(ctx context.Context, cmd *cli.Command, s *session) error {
	typ, err := parseType(cmd.Args().First())
	if err != nil {
		return err
	}
	id, err := requireID(cmd, "get")
	if err != nil {
		return err
	}
	rec, err := s.lookup(ctx, typ, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.printf("Not found")
	}
	if err != nil {
		return err
	}
	return s.printJSON(rec)
}

func listAction(ctx context.Context, cmd *cli.Command, s *session) error {
	typ, err := parseType(cmd.Args().First())
	if err != nil {
		return err
	}
	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	items, err := s.svc.List(ctx, s.userID, models.Filter{Type: typ, Limit: min(limit, store.MaxLimit)})
	if err != nil {
		return err
	}
	return s.printJSON(map[string]any{"items": items})
}

func importAction(ctx context.Context, cmd *cli.Command, s *session) error {
	fs, err := vault.NewFS(cmd.String("dir"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	res, err := importer.New(fs, s.svc.Store(), s.userID, logger).Sync(ctx)
	if err != nil {
		return err
	}
	return s.printJSON(res)
}

func exportAction(ctx context.Context, cmd *cli.Command, s *session) error {
	dir := cmd.String("dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	fs, err := vault.NewFS(dir)
	if err != nil {
		return err
	}
	n, err := importer.Export(ctx, s.svc.Store(), s.userID, fs)
	if err != nil {
		return err
	}
	return s.printf("Exported %d records to %s", n, fs.Root())
}

func newApp() *cli.Command {
	contentFlags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Record id"},
		&cli.StringFlag{Name: "title", Usage: "Title"},
		&cli.StringFlag{Name: "content", Usage: "Markdown content"},
		&cli.StringFlag{Name: "file", Usage: "Read Markdown content from `PATH`"},
		&cli.StringFlag{Name: "tags", Usage: "Comma separated tags"},
		&cli.StringFlag{Name: "items", Usage: "List entries: JSON array or text separated by ; or newlines"},
	}
	idFlag := []cli.Flag{&cli.StringFlag{Name: "id", Usage: "Record id"}}
	dirFlag := []cli.Flag{&cli.StringFlag{Name: "dir", Usage: "Markdown directory", Required: true}}

	return &cli.Command{
		Name:  "dock",
		Usage: "Create, read, update and delete notes, journal entries, briefs and lists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Optional path to a server config file",
				Sources: cli.EnvVars("DOCK_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "Store driver: sqlite, mongo or postgres",
				Sources: cli.EnvVars("DOCK_STORE_DRIVER"),
			},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file", Sources: cli.EnvVars("DOCK_SQLITE_PATH")},
			&cli.StringFlag{Name: "mongo-uri", Usage: "MongoDB connection URI", Sources: cli.EnvVars("DOCK_MONGO_URI")},
			&cli.StringFlag{Name: "mongo-database", Usage: "MongoDB database", Sources: cli.EnvVars("DOCK_MONGO_DATABASE")},
			&cli.StringFlag{Name: "postgres-url", Usage: "PostgreSQL connection URL", Sources: cli.EnvVars("DOCK_POSTGRES_URL")},
			&cli.StringFlag{
				Name:    "user",
				Usage:   "User id the records belong to",
				Value:   auth.DefaultLocalUser,
				Sources: cli.EnvVars("DOCK_USER"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a record",
				ArgsUsage: "<note|journal|brief|list>",
				Flags:     contentFlags,
				Action:    withSession(createAction),
			},
			{
				Name:      "update",
				Usage:     "Update fields of a record",
				ArgsUsage: "<note|journal|brief|list>",
				Flags:     contentFlags,
				Action:    withSession(updateAction),
			},
			{
				Name:      "delete",
				Usage:     "Permanently delete a record",
				ArgsUsage: "<note|journal|brief|list>",
				Flags:     idFlag,
				Action:    withSession(deleteAction),
			},
			{
				Name:      "get",
				Usage:     "Print a record as JSON",
				ArgsUsage: "<note|journal|brief|list>",
				Flags:     idFlag,
				Action:    withSession(getAction),
			},
			{
				Name:      "list",
				Usage:     "Print the most recently updated records as JSON",
				ArgsUsage: "<note|journal|brief|list>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum records (max 200)", Value: store.DefaultLimit},
				},
				Action: withSession(listAction),
			},
			{
				Name:   "import",
				Usage:  "Import a directory of Markdown files",
				Flags:  dirFlag,
				Action: withSession(importAction),
			},
			{
				Name:   "export",
				Usage:  "Write active records as Markdown files",
				Flags:  dirFlag,
				Action: withSession(exportAction),
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
