// Package app implements the CLI functionality, the CLI defers
// execution to the exported methods in this package.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/FollowTheProcess/collections"
	"github.com/FollowTheProcess/msg"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/juju/ansiterm/tabwriter"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/cache"
	"github.com/scholzdev/githook/config"
	"github.com/scholzdev/githook/eval"
	"github.com/scholzdev/githook/gitadapter"
	"github.com/scholzdev/githook/hostctx"
	"github.com/scholzdev/githook/lexer"
	"github.com/scholzdev/githook/logger"
	"github.com/scholzdev/githook/parser"
	"github.com/scholzdev/githook/span"
	"github.com/scholzdev/githook/stdlib"
)

// defaultScriptName is the hook script githook looks for when --script is
// not given, searched for across Config.SearchPaths.
const defaultScriptName = "pre-commit.ghook"

// App represents the githook program.
type App struct {
	stdout  io.Writer     // Where to write to
	stderr  io.Writer     // Where to write errors to
	Options *Options      // All the CLI options
	logger  logger.Logger // githook's logger, prints debug messages to stderr if --verbose is used
	printer msg.Printer   // githook's printer, prints user messages to stdout
}

// Options holds all the flag options for githook, these will be at their zero values
// if the flags were not set and the value of the flag otherwise.
type Options struct {
	Script     string // The --script flag, overrides config search
	GroupOnly  string // The --group-only flag, comma separated
	GroupSkip  string // The --group-skip flag, comma separated
	Verbose    bool   // The --verbose flag
	Check      bool   // The --check flag, parse only, don't evaluate
	ShowMacros bool   // The --show-macros flag
	NoCache    bool   // The --no-cache flag, forces Cache off regardless of .githookrc
	CollectAll bool   // The --collect-all flag, report every Blocked message instead of the first
}

// New creates and returns a new App.
func New(stdout, stderr io.Writer) *App {
	printer := msg.Default()
	printer.Stdout = stdout
	printer.Stderr = stderr
	return &App{
		stdout:  stdout,
		stderr:  stderr,
		Options: &Options{},
		printer: printer,
	}
}

// Run is the entry point to the githook program, implementing the driver
// sequence: load config, locate the hook script, populate a HostEnv from
// the repository, parse and evaluate, then map the ExecutionResult (or any
// lex/parse/eval error) onto an exit condition.
func (a *App) Run() error {
	zlog, err := logger.NewZapLogger(a.Options.Verbose)
	if err != nil {
		return err
	}
	a.logger = zlog
	defer a.logger.Sync() // nolint: errcheck

	repoRoot, err := os.Getwd()
	if err != nil {
		return err
	}

	a.logger.Debug("Loading configuration")
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var cacheOverride *bool
	if a.Options.NoCache {
		disabled := false
		cacheOverride = &disabled
	}
	cfg.MergeCLIArgs(cacheOverride, a.Options.Verbose, a.Options.GroupOnly, a.Options.GroupSkip)

	if err := loadDotenv(repoRoot, a.logger); err != nil {
		return err
	}

	scriptPath, err := a.resolveScriptPath(cfg, repoRoot)
	if err != nil {
		return err
	}
	a.logger.Debug("Using hook script at %s", scriptPath)

	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}

	var resolver eval.Resolver
	if cfg.Cache {
		resolver = cache.New()
	} else {
		resolver = noCacheResolver{}
	}

	stmts, err := resolver.Resolve(scriptPath)
	if err != nil {
		return a.reportDiagnostic(scriptPath, string(source), err)
	}

	if a.Options.ShowMacros {
		return a.showMacros(stmts)
	}

	if a.Options.Check {
		a.printer.Goodf("%s parses cleanly", scriptPath)
		return nil
	}

	git, err := gitadapter.Populate(repoRoot)
	if err != nil {
		return err
	}

	registry, err := stdlib.Load()
	if err != nil {
		return err
	}

	host := eval.HostEnv{
		Git:              git,
		Env:              hostctx.NewEnvContext(environMap()),
		GroupFilter:      groupFilter(cfg),
		Resolver:         resolver,
		Stdlib:           registry,
		ScriptPath:       scriptPath,
		CollectAllBlocks: a.Options.CollectAll,
	}

	result, err := eval.New(host).ExecuteStatements(stmts)
	if err != nil {
		return a.reportDiagnostic(scriptPath, string(source), err)
	}

	if result.Kind == eval.Blocked {
		fmt.Fprintln(a.stderr, result.Message)
		return fmt.Errorf("hook blocked")
	}

	a.printer.Good("Hook passed")
	return nil
}

// resolveScriptPath honours an explicit --script flag (made absolute
// against repoRoot if relative), falling back to cfg.ResolveScript's
// search-path scan.
func (a *App) resolveScriptPath(cfg *config.Config, repoRoot string) (string, error) {
	if a.Options.Script == "" {
		return cfg.ResolveScript(repoRoot, defaultScriptName)
	}
	if filepath.IsAbs(a.Options.Script) {
		return a.Options.Script, nil
	}
	return filepath.Join(repoRoot, a.Options.Script), nil
}

// loadDotenv auto-loads a .env file at the repository root into the
// process environment before the hook script runs.
func loadDotenv(repoRoot string, log logger.Logger) error {
	dotenvPath := filepath.Join(repoRoot, ".env")
	if !exists(dotenvPath) {
		log.Debug("No .env file found")
		return nil
	}
	if err := godotenv.Load(dotenvPath); err != nil {
		return fmt.Errorf("could not load .env file: %w", err)
	}
	log.Debug("Loaded .env file at %s", dotenvPath)
	return nil
}

// groupFilter builds an eval.GroupFilter from a loaded Config's
// only/skip group lists.
func groupFilter(cfg *config.Config) eval.GroupFilter {
	var filter eval.GroupFilter
	if len(cfg.OnlyGroups) > 0 {
		filter.Only = collections.NewSet(cfg.OnlyGroups...)
	}
	if len(cfg.SkipGroups) > 0 {
		filter.Skip = collections.NewSet(cfg.SkipGroups...)
	}
	return filter
}

// environMap snapshots os.Environ() into a map for hostctx.NewEnvContext.
func environMap() map[string]string {
	raw := os.Environ()
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

// reportDiagnostic prints a lex/parse/eval error in span.Format's
// "file:line:col: kind: message" shape plus a source excerpt, then
// returns err so the caller can turn it into a non-zero exit.
func (a *App) reportDiagnostic(path, source string, err error) error {
	var lexErr *lexer.Error
	var parseErr *parser.Error
	var evalErr *eval.Error
	switch {
	case errors.As(err, &lexErr):
		fmt.Fprintln(a.stderr, span.Format(path, "lex error", lexErr.Message, source, lexErr.Span))
	case errors.As(err, &parseErr):
		fmt.Fprintln(a.stderr, span.Format(path, parseErr.Kind.String(), parseErr.Message, source, parseErr.Span))
	case errors.As(err, &evalErr):
		fmt.Fprintln(a.stderr, span.Format(path, evalErr.Kind.String(), evalErr.Message, source, evalErr.Span))
	default:
		fmt.Fprintln(a.stderr, err)
	}
	return err
}

// showMacros prints the macros available to the script: its own
// top-level macro definitions plus every registered stdlib macro,
// namespace and doc comment included.
func (a *App) showMacros(stmts []ast.Statement) error {
	writer := tabwriter.NewWriter(a.stdout, 0, 8, 1, '\t', tabwriter.AlignRight)

	titleStyle := color.New(color.FgHiWhite, color.Bold)
	nameStyle := color.New(color.FgHiCyan, color.Bold)
	descStyle := color.New(color.FgHiBlack, color.Italic)

	fmt.Fprintln(a.stdout, "Script-local macros:")
	titleStyle.Fprintln(writer, "Name\tParams")

	var local []ast.MacroDef
	for _, stmt := range stmts {
		if def, ok := stmt.(ast.MacroDef); ok {
			local = append(local, def)
		}
	}
	sort.Slice(local, func(i, j int) bool { return local[i].Name < local[j].Name })
	for _, def := range local {
		fmt.Fprintf(writer, "%s\t%v\n", nameStyle.Sprint(def.Name), def.Params)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	registry, err := stdlib.Load()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "\nStandard library macros:")
	writer = tabwriter.NewWriter(a.stdout, 0, 8, 1, '\t', tabwriter.AlignRight)
	titleStyle.Fprintln(writer, "Module:Name\tDoc")

	entries := registry.Entries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Module != entries[j].Module {
			return entries[i].Module < entries[j].Module
		}
		return entries[i].Name < entries[j].Name
	})
	for _, e := range entries {
		line := fmt.Sprintf("%s\t%s\n", nameStyle.Sprint(e.Module+":"+e.Name), descStyle.Sprint(e.Doc))
		fmt.Fprint(writer, line)
	}
	return writer.Flush()
}

// noCacheResolver parses directly with no memoization, used when
// .githookrc sets cache = false.
type noCacheResolver struct{}

func (noCacheResolver) Resolve(absPath string) ([]ast.Statement, error) {
	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	tokens, err := lexer.Tokenize(string(source))
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
