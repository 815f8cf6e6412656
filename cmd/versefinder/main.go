// Command versefinder extracts scripture references from free text and
// looks up their content.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/core/sqlite"
	"github.com/FocuswithJustin/versefinder/internal/api"
	"github.com/FocuswithJustin/versefinder/internal/config"
	"github.com/FocuswithJustin/versefinder/internal/content"
	"github.com/FocuswithJustin/versefinder/internal/logging"
	"github.com/FocuswithJustin/versefinder/internal/validation"
)

const version = "0.1.0"

// CLI defines the command-line interface for versefinder.
type CLI struct {
	// Global flags
	Config         string `short:"c" help:"Path to YAML config file" type:"path" env:"VERSEFINDER_CONFIG"`
	Format         string `help:"Output format" enum:"text,json" default:"text"`
	LogLevel       string `name:"log-level" help:"Log level (debug, info, warn, error); overrides the config file"`
	LogFormat      string `name:"log-format" help:"Log format (text, json); overrides the config file"`
	NoDotSeparator bool   `name:"no-dot-separator" help:"Treat '.' as punctuation instead of a chapter/verse separator"`

	Parse   ParseCmd   `cmd:"" help:"Extract references from a query (arguments or stdin)"`
	Lookup  LookupCmd  `cmd:"" help:"Extract references and look up their text"`
	Books   BooksCmd   `cmd:"" help:"List the book registry"`
	Store   StoreGroup `cmd:"" help:"Local verse store operations"`
	Init    InitCmd    `cmd:"" help:"Write the default configuration file"`
	Serve   ServeCmd   `cmd:"" help:"Start the REST and WebSocket API server"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// StoreGroup contains verse store operations.
type StoreGroup struct {
	Import StoreImportCmd `cmd:"" help:"Import tab-separated verse files (.tsv or .tsv.xz)"`
	Count  StoreCountCmd  `cmd:"" help:"Count stored verses"`
}

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	path   string
	format string
	noDot  bool
	stdin  io.Reader
	stdout io.Writer
}

func (e *env) isJSON() bool { return e.format == "json" }

func (e *env) writeJSON(v interface{}) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// query joins the arguments, or reads stdin when there are none.
func (e *env) query(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(e.stdin)
	if err != nil {
		return "", errors.NewIO("read", "stdin", err)
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", errors.NewValidation("query", "no query given")
	}
	return q, nil
}

func (e *env) parse(ctx context.Context, query string) (*refparse.Result, error) {
	reg, err := e.cfg.Registry()
	if err != nil {
		return nil, err
	}
	opts := e.cfg.ParseOptions()
	opts.Sink = logging.DiagnosticSink(ctx)
	res := refparse.Parse(query, reg, opts)
	for _, c := range res.Fatal() {
		logging.WarnContext(ctx, "malformed reference",
			"candidate", c.Candidate.Text,
			"book", c.Book,
			"error", c.Err)
	}
	return res, nil
}

// ParseCmd extracts references.
type ParseCmd struct {
	Query []string `arg:"" optional:"" help:"Query text (read from stdin when omitted)"`
}

func (c *ParseCmd) Run(e *env) error {
	ctx := context.Background()
	q, err := e.query(c.Query)
	if err != nil {
		return err
	}
	res, err := e.parse(ctx, q)
	if err != nil {
		return err
	}

	if e.isJSON() {
		return e.writeJSON(res)
	}
	if res.Empty() {
		fmt.Fprintln(e.stdout, "no valid references found")
		return nil
	}
	for _, ref := range res.References {
		fmt.Fprintln(e.stdout, ref.String())
	}
	return nil
}

// LookupCmd extracts references and resolves them with the configured
// provider.
type LookupCmd struct {
	Query []string `arg:"" optional:"" help:"Query text (read from stdin when omitted)"`
}

func (c *LookupCmd) Run(e *env) error {
	ctx := context.Background()
	q, err := e.query(c.Query)
	if err != nil {
		return err
	}
	res, err := e.parse(ctx, q)
	if err != nil {
		return err
	}

	resolver, closeFn, err := newResolver(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	if resolver == nil {
		return errors.NewUnsupported("lookup", "no content provider is configured")
	}

	batch := resolver.Resolve(ctx, res.References)
	if e.isJSON() {
		return e.writeJSON(batch)
	}
	if res.Empty() {
		fmt.Fprintln(e.stdout, "no valid references found")
		return nil
	}
	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(e.stdout, "%s: %s\n", r.Display, r.Error)
			continue
		}
		fmt.Fprintln(e.stdout, r.Display)
		for _, line := range r.Lines {
			fmt.Fprintf(e.stdout, "  %s\n", line)
		}
	}
	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", batch.Failed, len(batch.Results))
	}
	return nil
}

// BooksCmd lists the registry.
type BooksCmd struct{}

func (c *BooksCmd) Run(e *env) error {
	reg, err := e.cfg.Registry()
	if err != nil {
		return err
	}
	books := reg.Books()
	if e.isJSON() {
		return e.writeJSON(books)
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tBOUND\tOSIS\tNAME")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", b.Code, b.Bound, b.OSIS, b.Name)
	}
	return tw.Flush()
}

// StoreImportCmd imports verse files.
type StoreImportCmd struct {
	Files    []string `arg:"" help:"Files to import" type:"existingfile"`
	Database string   `help:"Store path (defaults to provider.database)" type:"path"`
}

func (c *StoreImportCmd) Run(e *env) error {
	ctx := context.Background()
	store, err := content.OpenStore(ctx, storePath(c.Database, e))
	if err != nil {
		return err
	}
	defer store.Close()

	var results []*content.ImportResult
	for _, path := range c.Files {
		if err := validation.ValidatePath(path); err != nil {
			return errors.NewValidation("file", err.Error())
		}
		res, err := store.ImportFile(ctx, path)
		if err != nil {
			return err
		}
		logging.Info("import finished", "path", path, "rows", res.Rows, "skipped", res.Skipped)
		results = append(results, res)
	}

	if e.isJSON() {
		return e.writeJSON(results)
	}
	for _, res := range results {
		if res.Skipped {
			fmt.Fprintf(e.stdout, "%s: already imported\n", res.Path)
			continue
		}
		fmt.Fprintf(e.stdout, "%s: %d verses\n", res.Path, res.Rows)
	}
	return nil
}

// storePath returns the --database flag or the configured database.
func storePath(flag string, e *env) string {
	if flag != "" {
		return flag
	}
	return e.cfg.Provider.Database
}

// StoreCountCmd counts stored verses.
type StoreCountCmd struct {
	Database string `help:"Store path (defaults to provider.database)" type:"path"`
}

func (c *StoreCountCmd) Run(e *env) error {
	ctx := context.Background()
	store, err := content.OpenStore(ctx, storePath(c.Database, e))
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if e.isJSON() {
		return e.writeJSON(map[string]int{"verses": n})
	}
	fmt.Fprintf(e.stdout, "%d verses\n", n)
	return nil
}

// InitCmd writes the default configuration.
type InitCmd struct {
	Path  string `arg:"" optional:"" help:"Destination file" default:"versefinder.yaml" type:"path"`
	Force bool   `help:"Overwrite an existing file"`
}

func (c *InitCmd) Run(e *env) error {
	if err := validation.ValidatePath(c.Path); err != nil {
		return errors.NewValidation("path", err.Error())
	}
	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return errors.NewValidation("path", c.Path+" exists (use --force to overwrite)")
	}
	if err := config.WriteDefault(c.Path); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s\n", c.Path)
	return nil
}

// ServeCmd starts the API server.
type ServeCmd struct {
	Port  int  `help:"HTTP server port (overrides server.port)"`
	Watch bool `help:"Reload the config file when it changes" default:"true" negatable:""`
}

func (c *ServeCmd) Run(e *env) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := config.NewManager(e.path)
	if err != nil {
		return err
	}
	cfg := manager.Get()
	if c.Watch && e.path != "" {
		if err := manager.Watch(ctx); err != nil {
			return err
		}
	}

	resolver, closeFn, err := newResolver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	if resolver == nil {
		logging.Warn("no content provider configured; lookups are disabled")
	} else if cached, ok := resolver.Provider().(*content.Cached); ok {
		// OSIS names and codes may change with the registry
		manager.OnChange(func(*config.Config) { cached.Invalidate() })
	}

	serverCfg := api.ConfigFrom(cfg, version)
	if c.Port != 0 {
		serverCfg.Port = c.Port
	}
	return api.New(serverCfg, parserSource{manager, e.noDot}, resolver).Start(ctx)
}

// parserSource applies --no-dot-separator on top of the live config.
type parserSource struct {
	*config.Manager
	noDot bool
}

func (p parserSource) ParseOptions() refparse.Options {
	opts := p.Manager.ParseOptions()
	if p.noDot {
		opts.DotSeparator = false
	}
	return opts
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	info := sqlite.GetInfo()
	if e.isJSON() {
		return e.writeJSON(map[string]any{"version": version, "sqlite": info})
	}
	fmt.Fprintf(e.stdout, "versefinder version %s\n", version)
	fmt.Fprintf(e.stdout, "sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

// run parses args and executes the selected command.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("versefinder"),
		kong.Description("Extract and look up scripture references in free text"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if cli.Config != "" {
		if cfg, err = config.Load(cli.Config); err != nil {
			return err
		}
	}
	if cli.NoDotSeparator {
		cfg.Parser.DotSeparator = false
	}
	if err := setupLogging(cfg, cli.LogLevel, cli.LogFormat, stderr); err != nil {
		return err
	}

	return kctx.Run(&env{
		cfg:    cfg,
		path:   cli.Config,
		format: cli.Format,
		noDot:  cli.NoDotSeparator,
		stdin:  stdin,
		stdout: stdout,
	})
}

func setupLogging(cfg *config.Config, level, format string, w io.Writer) error {
	if level == "" {
		level = cfg.Log.Level
	}
	if format == "" {
		format = cfg.Log.Format
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return errors.NewValidation("log-level", err.Error())
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return errors.NewValidation("log-format", err.Error())
	}
	logging.SetLogger(logging.NewLogger(w, lvl, f))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "versefinder: %v\n", err)
		os.Exit(1)
	}
}
