package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mcncl/jsonform/internal/clipboard"
	"github.com/mcncl/jsonform/internal/config"
	"github.com/mcncl/jsonform/internal/document"
	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/export"
	"github.com/mcncl/jsonform/internal/form"
	"github.com/mcncl/jsonform/internal/formatter"
	"github.com/mcncl/jsonform/internal/logging"
	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/parser"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/render"
	"github.com/mcncl/jsonform/internal/server"
	"github.com/mcncl/jsonform/internal/session"
	"github.com/mcncl/jsonform/internal/store"
	"github.com/mcncl/jsonform/internal/textview"
	"github.com/mcncl/jsonform/internal/watch"
)

// Version information
const (
	Version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config  string           `help:"Path to config file. Defaults to the nearest .jsonform.yml." short:"c" type:"path"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	Lenient bool             `help:"Accept comments and trailing commas in JSON input." short:"l"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`

	Tree   TreeCmd   `cmd:"" default:"withargs" help:"Print the form generated for a JSON document."`
	Fmt    FmtCmd    `cmd:"" help:"Print a JSON document the way the text editor shows it."`
	Edit   EditCmd   `cmd:"" help:"Apply form edits to a JSON document and print the result."`
	Export ExportCmd `cmd:"" help:"Write a JSON document to data-<date>.json."`
	Copy   CopyCmd   `cmd:"" help:"Copy a formatted JSON document to the clipboard."`
	Paste  PasteCmd  `cmd:"" help:"Read JSON from the clipboard and print it formatted."`
	Serve  ServeCmd  `cmd:"" help:"Serve the HTML form, the JSON API and live updates."`
}

// App carries the runtime dependencies shared by all commands
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time

	Config *config.Config
	Log    *zap.Logger
	Clip   clipboard.Clipboard
	Debug  bool

	closeLog func() error
}

func main() {
	app := &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Now: time.Now}
	if err := execute(os.Args[1:], app); err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonform --help\n")
		os.Exit(1)
	}
}

// execute parses args and runs the selected command
func execute(args []string, app *App) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("jsonform"),
		kong.Description("Turn any JSON document into an editable form"),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("jsonform version %s", Version)},
		kong.Writers(app.Stdout, app.Stderr),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.NewInputError("invalid arguments", err)
	}

	// No arguments means paste-and-go, like a bare form waiting for JSON
	if len(args) == 0 {
		cli.Tree.Interactive = true
	}

	if err := app.setup(&cli); err != nil {
		return err
	}
	defer app.close()

	return kctx.Run(app)
}

func (c *CLI) overrides() config.Overrides {
	var o config.Overrides
	if c.Lenient {
		lenient := true
		o.Lenient = &lenient
	}
	if c.Debug {
		o.LogLevel = "debug"
	}
	return o
}

// setup loads configuration, logging and the clipboard unless preset
func (a *App) setup(cli *CLI) error {
	if a.Now == nil {
		a.Now = time.Now
	}
	a.Debug = a.Debug || cli.Debug

	if a.Config == nil {
		configPath := cli.Config
		if configPath == "" {
			configPath = config.FindConfigFile()
		}
		cfg, err := config.LoadConfigWithCLI(configPath, cli.overrides())
		if err != nil {
			return errors.NewInputError("failed to load config", err)
		}
		a.Config = cfg
	} else {
		a.Config = config.MergeConfigs(a.Config, cli.overrides())
	}

	if a.Log == nil {
		log, closer, err := logging.New(a.Config.Log)
		if err != nil {
			return errors.NewInputError("failed to set up logging", err)
		}
		a.Log, a.closeLog = log, closer
	}

	if a.Clip == nil {
		cmd := clipboard.DefaultCommand()
		if len(a.Config.Clipboard.ReadCmd) > 0 {
			cmd.Read = a.Config.Clipboard.ReadCmd
		}
		if len(a.Config.Clipboard.WriteCmd) > 0 {
			cmd.Write = a.Config.Clipboard.WriteCmd
		}
		a.Clip = cmd
	}
	return nil
}

func (a *App) close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func (a *App) parserOptions() parser.Options {
	return parser.Options{Lenient: a.Config.Text.Lenient}
}

func (a *App) formatter() *formatter.Formatter {
	return formatter.NewFormatterWithIndent(a.Config.Text.Indent)
}

func (a *App) clipboard() *clipboard.Service {
	return clipboard.NewService(a.Clip, a.Config.Clipboard.Timeout, a.Log)
}

// synchronizer builds the form for value
func (a *App) synchronizer(value *models.JSONValue) *form.Synchronizer {
	view := textview.New(a.formatter(), a.parserOptions())
	return form.New(document.New(value), view, a.Log)
}

// InputArgs selects where a JSON document is read from
type InputArgs struct {
	File        string `arg:"" optional:"" help:"Path to input JSON file. If not specified, reads from stdin." type:"path"`
	Interactive bool   `help:"Paste JSON directly and press Ctrl+D to process." short:"I"`
}

// OutputArgs selects where a result is written to
type OutputArgs struct {
	Output string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
}

// parseInput reads JSON from file or stdin
func (a *App) parseInput(in InputArgs) (*models.JSONValue, error) {
	if in.File != "" {
		return parser.ParseFile(in.File, a.parserOptions())
	}

	if f, ok := a.Stdin.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		// Terminal is interactive (not piped)
		if in.Interactive {
			return a.readInteractiveInput()
		}
		return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	data, err := io.ReadAll(a.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	return parser.ParseStringWithOptions(string(data), a.parserOptions())
}

// readInteractiveInput lets users paste JSON and signal completion with
// Ctrl+D (EOF)
func (a *App) readInteractiveInput() (*models.JSONValue, error) {
	fmt.Fprintln(a.Stderr, "jsonform interactive mode")
	fmt.Fprintln(a.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(a.Stdin)
	var b strings.Builder
	for {
		line, err := reader.ReadString('\n')
		b.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInputError("error reading input", err)
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return nil, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}
	fmt.Fprintln(a.Stderr, "\nProcessing JSON...")
	return parser.ParseStringWithOptions(b.String(), a.parserOptions())
}

// writeOutput writes text to a file or stdout
func (a *App) writeOutput(out OutputArgs, text string) error {
	if out.Output != "" {
		if err := os.WriteFile(out.Output, []byte(text+"\n"), 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", out.Output), err)
		}
		fmt.Fprintf(a.Stderr, "Output written to %s\n", out.Output)
		return nil
	}

	if _, err := fmt.Fprintln(a.Stdout, text); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// TreeCmd prints the form tree
type TreeCmd struct {
	InputArgs  `embed:""`
	OutputArgs `embed:""`
	Format     string `help:"Output format: text or json." enum:"text,json" default:"text" short:"f"`
	Path       string `help:"Only print the subtree at this path, e.g. users[0]." short:"p"`
}

func (c *TreeCmd) Run(app *App) error {
	value, err := app.parseInput(c.InputArgs)
	if err != nil {
		return err
	}
	fs := app.synchronizer(value)

	if app.Debug {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
		cfg.Fdump(app.Stderr, fs.Root())
	}

	if c.Format == "json" {
		data, err := json.MarshalIndent(fs.Root(), "", "  ")
		if err != nil {
			return errors.NewOutputError("failed to encode form tree", err)
		}
		return app.writeOutput(c.OutputArgs, string(data))
	}

	var b strings.Builder
	surface := render.NewTextSurface(&b)
	if c.Path == "" {
		fs.Materialize(surface)
	} else {
		p, err := path.Parse(c.Path)
		if err != nil {
			return errors.NewInputError(fmt.Sprintf("invalid path %q", c.Path), err)
		}
		if err := fs.MaterializeAt(surface, p); err != nil {
			return err
		}
	}
	if err := surface.Err(); err != nil {
		return errors.NewOutputError("failed to render form tree", err)
	}
	return app.writeOutput(c.OutputArgs, strings.TrimRight(b.String(), "\n"))
}

// FmtCmd prints the editor text
type FmtCmd struct {
	InputArgs  `embed:""`
	OutputArgs `embed:""`
}

func (c *FmtCmd) Run(app *App) error {
	value, err := app.parseInput(c.InputArgs)
	if err != nil {
		return err
	}
	return app.writeOutput(c.OutputArgs, app.formatter().Format(value))
}

// EditCmd applies edits in the order removes, adds, sets
type EditCmd struct {
	InputArgs  `embed:""`
	OutputArgs `embed:""`
	Set        []string `help:"Set a primitive field, as PATH=VALUE." short:"s" sep:"none"`
	Add        []string `help:"Append an item to the array at PATH." short:"a" sep:"none"`
	Remove     []string `help:"Remove an array item, as PATH#INDEX or PATH[INDEX]." short:"r" sep:"none"`
}

func (c *EditCmd) Run(app *App) error {
	value, err := app.parseInput(c.InputArgs)
	if err != nil {
		return err
	}
	fs := app.synchronizer(value)

	for _, arg := range c.Remove {
		p, index, err := parseItemRef(arg)
		if err != nil {
			return err
		}
		if err := fs.RemoveItem(p, index); err != nil {
			return err
		}
	}
	for _, arg := range c.Add {
		p, err := path.Parse(arg)
		if err != nil {
			return errors.NewInputError(fmt.Sprintf("invalid path %q", arg), err)
		}
		if _, err := fs.AddItem(p); err != nil {
			return err
		}
	}
	for _, arg := range c.Set {
		p, raw, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		if err := fs.Edit(p, raw); err != nil {
			return err
		}
	}

	return app.writeOutput(c.OutputArgs, fs.Text())
}

// parseAssignment splits PATH=VALUE at the first '=' that ends a valid path,
// so quoted keys may contain '='.
func parseAssignment(ref string) (path.Path, string, error) {
	for i := 0; i < len(ref); i++ {
		if ref[i] != '=' {
			continue
		}
		if p, err := path.Parse(ref[:i]); err == nil {
			return p, ref[i+1:], nil
		}
	}
	return nil, "", errors.NewInputError(fmt.Sprintf("invalid assignment %q, want PATH=VALUE", ref), nil)
}

// parseItemRef reads PATH#INDEX, or a path whose last step is an index.
func parseItemRef(ref string) (path.Path, int, error) {
	if i := strings.LastIndexByte(ref, '#'); i >= 0 {
		index, err := strconv.Atoi(ref[i+1:])
		if err != nil {
			return nil, 0, errors.NewInputError(fmt.Sprintf("invalid index in %q", ref), err)
		}
		p, err := path.Parse(ref[:i])
		if err != nil {
			return nil, 0, errors.NewInputError(fmt.Sprintf("invalid path in %q", ref), err)
		}
		return p, index, nil
	}

	p, err := path.Parse(ref)
	if err != nil {
		return nil, 0, errors.NewInputError(fmt.Sprintf("invalid path %q", ref), err)
	}
	if p.IsRoot() {
		return nil, 0, errors.NewInputError(fmt.Sprintf("%q does not name an array item", ref), nil)
	}
	parent, last := p.Parent()
	if !last.IsIndex {
		return nil, 0, errors.NewInputError(fmt.Sprintf("%q does not name an array item", ref), nil)
	}
	return parent, last.Index, nil
}

// ExportCmd writes the document to a dated file
type ExportCmd struct {
	InputArgs `embed:""`
	Dir       string `help:"Directory to write into. Defaults to export.dir from the config." type:"path"`
}

func (c *ExportCmd) Run(app *App) error {
	value, err := app.parseInput(c.InputArgs)
	if err != nil {
		return err
	}
	dir := c.Dir
	if dir == "" {
		dir = app.Config.Export.Dir
	}

	written, err := export.ToDir(dir, app.formatter().Format(value), app.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Stderr, "Exported to %s\n", written)
	return nil
}

// CopyCmd copies the document to the clipboard
type CopyCmd struct {
	InputArgs `embed:""`
}

func (c *CopyCmd) Run(app *App) error {
	value, err := app.parseInput(c.InputArgs)
	if err != nil {
		return err
	}
	if err := app.clipboard().Copy(context.Background(), app.formatter().Format(value)); err != nil {
		return err
	}
	fmt.Fprintln(app.Stderr, session.CopiedAck)
	return nil
}

// PasteCmd prints the clipboard contents as formatted JSON
type PasteCmd struct {
	OutputArgs `embed:""`
}

func (c *PasteCmd) Run(app *App) error {
	text, err := app.clipboard().Paste(context.Background())
	if err != nil {
		return err
	}
	value, err := parser.ParseStringWithOptions(text, app.parserOptions())
	if err != nil {
		app.Log.Warn("ignored clipboard text", zap.Error(err))
		return err
	}
	return app.writeOutput(c.OutputArgs, app.formatter().Format(value))
}

// ServeCmd runs the HTTP server
type ServeCmd struct {
	Addr  string `help:"Listen address. Defaults to server.addr from the config." short:"a"`
	Dev   bool   `help:"Development mode: permissive CORS, verbose gin."`
	Redis string `help:"Redis address for session snapshots. Defaults to in-memory."`
	Watch string `help:"JSON file to load into a form and follow as it changes." type:"existingfile" short:"w"`
}

func (c *ServeCmd) Run(app *App) error {
	var dev *bool
	if c.Dev {
		dev = &c.Dev
	}
	cfg := config.MergeConfigs(app.Config, config.Overrides{Addr: c.Addr, Dev: dev, RedisAddr: c.Redis})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, app, cfg, c.Watch)
}

// serve runs the server, and the file watcher when watchFile is set, until
// ctx ends or one of them fails
func serve(ctx context.Context, app *App, cfg *config.Config, watchFile string) error {
	log := app.Log.Named("main")

	st, err := store.Open(ctx, cfg.Store, app.Log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	mgr := session.NewManager(st, session.ManagerConfig{
		Indent:      cfg.Text.Indent,
		Parser:      parser.Options{Lenient: cfg.Text.Lenient},
		Initial:     cfg.Initial,
		Check:       app.Debug,
		IdleTimeout: cfg.Store.IdleTimeout,
	}, app.Log)
	defer mgr.Close()

	srv := server.New(app.Log, mgr, app.clipboard(), cfg.Server)

	var w *watch.Watcher
	if watchFile != "" {
		sess, err := mgr.Create(ctx, "")
		if err != nil {
			return err
		}
		log.Info("watching file", zap.String("file", watchFile),
			zap.String("form", fmt.Sprintf("http://%s/forms/%s", cfg.Server.Addr, sess.ID())))

		id := sess.ID()
		// looked up per change: an idle session is restored from its snapshot
		w = watch.New(watchFile, 0, func(ctx context.Context, text string) error {
			sess, err := mgr.Get(ctx, id)
			if err != nil {
				return err
			}
			_, err = sess.SetText(ctx, text)
			return err
		}, app.Log)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, cfg.Server.Addr) })
	if w != nil {
		g.Go(func() error { return w.Run(ctx) })
	}

	return g.Wait()
}
