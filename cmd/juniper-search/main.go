// Command juniper-search searches Bible translations by reference or by
// boolean expression, manages the local corpus and serves the search API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/internal/config"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

var version = "0.1.0"

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `help:"Settings file (default ~/.juniper-search/config.toml)" type:"path" env:"JUNIPER_SEARCH_CONFIG"`
	Database  string `help:"Corpus database (default corpus.db next to the settings file)" type:"path" env:"JUNIPER_SEARCH_DB"`
	LogLevel  string `name:"log-level" help:"Log level" default:"warn" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format" default:"text" enum:"text,json"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Search       SearchCmd         `cmd:"" default:"withargs" help:"Search by reference or expression"`
	Read         ReadCmd           `cmd:"" help:"Read consecutive verses of a chapter"`
	Ingest       IngestCmd         `cmd:"" help:"Import a translation from JSON or OSIS XML"`
	Translations TranslationsGroup `cmd:"" help:"List, enable, disable and order translations"`
	Settings     SettingsGroup     `cmd:"" help:"Show or change saved search settings"`
	History      HistoryCmd        `cmd:"" help:"Show recent queries"`
	Serve        ServeCmd          `cmd:"" help:"Start the REST and WebSocket API server"`
	Version      VersionCmd        `cmd:"" help:"Print version information"`
}

// env is the opened settings file and corpus of one command.
type env struct {
	cfg   *config.File
	store *store.Store
}

func (e *env) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// loadConfig reads the settings file named by the globals.
func (g *Globals) loadConfig() (*config.File, error) {
	path := g.Config
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, errors.Wrap(err, "locate settings")
		}
	}
	return config.Load(path)
}

// open loads the settings and opens the corpus, creating it when missing.
func (g *Globals) open(ctx context.Context) (*env, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	dbPath := g.Database
	if dbPath == "" {
		dbPath = cfg.DatabasePath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, errors.NewIO("mkdir", filepath.Dir(dbPath), err)
	}
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, errors.NewCorpusUnavailable("open "+dbPath, err)
	}
	logging.Debug("corpus opened", "path", dbPath, "config", cfg.Path())
	return &env{cfg: cfg, store: st}, nil
}

// initLogging applies the log flags.
func (g *Globals) initLogging() error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("juniper-search"),
		kong.Description("Juniper Search - multi-translation Bible search"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	if err := cli.Globals.initLogging(); err != nil {
		return err
	}
	return kctx.Run(&cli.Globals)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(stderr, "juniper-search: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "juniper-search version %s\n", version)
	return nil
}
