package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"toolcall/config"
	"toolcall/mcp"
	"toolcall/model"
	"toolcall/provider"
	"toolcall/storage"
	"toolcall/tools"
	"toolcall/ui"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

// defaultQuestions are asked when no question is given on the command line.
var defaultQuestions = []string{
	"What is the flight time from New York (NYC) to Los Angeles (LAX)?",
	"What is the flight time from CDG to DXB?",
}

type options struct {
	configPath  string
	host        string
	model       string
	provider    string
	maxRounds   int
	unknownTool string
	noSave      bool
	plain       bool
	copy        bool
	debug       bool
	search      string
	show        string
	remove      string
	stats       bool
	version     bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("toolcall", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to config.toml (default: ~/.config/toolcall/config.toml)")
	flagSet.StringVar(&opts.host, "host", "", "Ollama host URL")
	flagSet.StringVarP(&opts.model, "model", "m", "", "model name")
	flagSet.StringVarP(&opts.provider, "provider", "p", "", "provider: ollama, openai or anthropic")
	flagSet.IntVar(&opts.maxRounds, "max-rounds", 0, "maximum tool rounds per question")
	flagSet.StringVar(&opts.unknownTool, "unknown-tool", "", "unknown tool policy: report or skip")
	flagSet.BoolVar(&opts.noSave, "no-save", false, "do not save a transcript for this run")
	flagSet.BoolVar(&opts.plain, "plain", false, "print answers without markdown rendering")
	flagSet.BoolVar(&opts.copy, "copy", false, "copy the last answer to the clipboard")
	flagSet.BoolVar(&opts.debug, "debug", false, "write a debug log to <data_dir>/debug.log")
	flagSet.StringVar(&opts.search, "search", "", "history: search saved messages")
	flagSet.StringVar(&opts.show, "show", "", "history: print the transcript with this id (prefix)")
	flagSet.StringVar(&opts.remove, "delete", "", "history: delete the transcript with this id (prefix) and its logged calls")
	flagSet.BoolVar(&opts.stats, "stats", false, "history: count logged tool calls by status")
	flagSet.BoolVar(&opts.version, "version", false, "print version and exit")
	return flagSet
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := newFlagSet(&opts)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.version {
		fmt.Fprintf(stdout, "toolcall %s (%s)\n", Version, License)
		return nil
	}

	command, rest := splitCommand(flagSet.Args())

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flagSet, &opts); err != nil {
		return err
	}

	config.InitDebugLog(cfg.DataDir(), opts.debug)
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Main] toolcall %s: command=%q provider=%s model=%s", Version, command, cfg.Provider, cfg.Model())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := ui.NewConsole(stdout, stderr, cfg.RenderMarkdown)

	switch command {
	case "serve-mcp":
		return mcp.Serve(tools.Default(), Version)
	case "models":
		return listModels(ctx, cfg, console)
	case "history":
		return history(ctx, cfg, console, opts)
	default:
		questions := rest
		if len(questions) == 0 {
			questions = defaultQuestions
		}
		return ask(ctx, cfg, console, questions, opts.copy)
	}
}

// splitCommand separates a leading subcommand from the remaining arguments.
// Anything that is not a known subcommand is a question.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	switch args[0] {
	case "models", "history", "serve-mcp":
		return args[0], args[1:]
	}
	return "", args
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet, opts *options) error {
	if flagSet.Changed("host") {
		cfg.OllamaHost = opts.host
	}
	if flagSet.Changed("model") {
		cfg.DefaultModel = opts.model
	}
	if flagSet.Changed("provider") {
		cfg.Provider = strings.ToLower(opts.provider)
	}
	if flagSet.Changed("max-rounds") {
		cfg.MaxRounds = opts.maxRounds
	}
	if flagSet.Changed("unknown-tool") {
		cfg.UnknownTool = strings.ToLower(opts.unknownTool)
	}
	if opts.noSave {
		cfg.SaveTranscripts = false
	}
	if opts.plain {
		cfg.RenderMarkdown = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func ask(ctx context.Context, cfg *config.Config, console *ui.Console, questions []string, copyAnswer bool) error {
	p, err := provider.FromConfig(cfg)
	if err != nil {
		return err
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach %s provider: %w", cfg.Provider, err)
	}
	if tc, ok := p.(interface{ SupportsToolCalling() bool }); ok && !tc.SupportsToolCalling() {
		console.Warn(fmt.Sprintf("model %s may not support tool calling", p.GetModel()))
	}

	mcpClient := mcp.NewClient()
	defer func() {
		if err := mcpClient.Shutdown(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Main] MCP shutdown: %v", err)
		}
	}()
	for _, srv := range cfg.MCPServers {
		if err := mcpClient.Start(ctx, srv); err != nil {
			console.Warn(fmt.Sprintf("skipping mcp server %s: %v", srv.Name, err))
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Main] MCP server %s failed: %v", srv.Name, err)
			}
		}
	}

	// Built-ins first: on a name clash the built-in tool is kept.
	registry := tools.NewRegistry(append([]tools.Tool{tools.NewFlightTimes()}, mcpClient.Tools()...)...)

	transcript := storage.NewTranscript(cfg.Provider, p.GetModel(), cfg.SystemPrompt)
	dispatchOpts := []model.DispatcherOption{
		model.WithUnknownToolPolicy(model.UnknownToolPolicy(cfg.UnknownTool)),
	}

	var transcripts *storage.TranscriptStorage
	if cfg.SaveTranscripts {
		transcripts, err = storage.NewTranscriptStorage(cfg.DataDir())
		if err != nil {
			return err
		}
		callLog, err := storage.NewCallLog(cfg.DataDir())
		if err != nil {
			return err
		}
		defer callLog.Close()
		dispatchOpts = append(dispatchOpts, model.WithCallRecorder(callLog.Recorder(transcript.ID)))
	}

	dispatcher := model.NewDispatcher(registry, dispatchOpts...)
	driver := model.NewDriver(p, dispatcher, registry.Definitions(),
		model.WithMaxRounds(cfg.MaxRounds),
		model.WithRequestTimeout(cfg.Timeout),
	)
	conv := model.NewConversation(cfg.SystemPrompt)

	var lastAnswer string
	var runErr error
	for i, question := range questions {
		console.Question(i+1, len(questions), question)

		before := conv.Len()
		reply, err := driver.Ask(ctx, conv, question)
		console.ToolActivity(conv.Messages()[before:])
		if err != nil {
			runErr = fmt.Errorf("question %d: %w", i+1, err)
			break
		}

		console.Answer(reply.Content)
		lastAnswer = reply.Content
	}

	if transcripts != nil {
		transcript.SetMessages(conv.Messages())
		if err := transcripts.Save(transcript); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		return runErr
	}

	if copyAnswer && lastAnswer != "" {
		if err := ui.CopyToClipboard(lastAnswer); err != nil {
			console.Warn(err.Error())
		}
	}
	return nil
}

func listModels(ctx context.Context, cfg *config.Config, console *ui.Console) error {
	p, err := provider.FromConfig(cfg)
	if err != nil {
		return err
	}
	models, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	console.Models(names, p.GetModel())
	return nil
}

func history(ctx context.Context, cfg *config.Config, console *ui.Console, opts options) error {
	transcripts, err := storage.NewTranscriptStorage(cfg.DataDir())
	if err != nil {
		return err
	}

	switch {
	case opts.remove != "":
		id, err := transcripts.Resolve(opts.remove)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.remove, err)
		}

		callLog, err := storage.NewCallLog(cfg.DataDir())
		if err != nil {
			return err
		}
		defer callLog.Close()
		removed, err := callLog.DeleteTranscript(ctx, id)
		if err != nil {
			return err
		}
		if err := transcripts.Delete(id); err != nil {
			return err
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Main] Deleted transcript %s with %d calls", id, removed)
		}

		console.Deleted(id, removed)
		return nil

	case opts.stats:
		callLog, err := storage.NewCallLog(cfg.DataDir())
		if err != nil {
			return err
		}
		defer callLog.Close()
		counts, err := callLog.CountByStatus(ctx)
		if err != nil {
			return err
		}
		console.CallStats(counts)
		return nil

	case opts.show != "":
		id, err := transcripts.Resolve(opts.show)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.show, err)
		}
		t, err := transcripts.Load(id)
		if err != nil {
			return err
		}

		callLog, err := storage.NewCallLog(cfg.DataDir())
		if err != nil {
			return err
		}
		defer callLog.Close()
		calls, err := callLog.List(ctx, id)
		if err != nil {
			return err
		}

		console.Transcript(t, calls)
		return nil

	case opts.search != "":
		matches, err := storage.NewSearchIndex(transcripts).Search(opts.search)
		if err != nil {
			return fmt.Errorf("failed to search transcripts: %w", err)
		}
		console.SearchResults(opts.search, matches)
		return nil

	default:
		list, err := transcripts.List()
		if err != nil {
			return err
		}
		console.TranscriptTable(list)
		return nil
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `toolcall asks a local model questions and answers its tool calls.

Usage:
  toolcall [flags] [question ...]   ask questions (default: two flight time questions)
  toolcall models                   list models on the server
  toolcall history [--search q] [--show id] [--delete id] [--stats]
                                    list, search, print or delete saved transcripts
  toolcall serve-mcp                serve the built-in tools over MCP stdio

Flags:
%s`, flagSet.FlagUsages())
}
