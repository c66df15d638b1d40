package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/CJHwong/gems.sh/internal/cli/formatter"
	"github.com/CJHwong/gems.sh/internal/config"
	"github.com/CJHwong/gems.sh/internal/response"
	"github.com/CJHwong/gems.sh/internal/service"
	"github.com/CJHwong/gems.sh/internal/template"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Options are the parsed command-line flags.
type Options struct {
	ConfigPath    string
	Model         string
	Template      string
	Verbose       bool
	ListTemplates bool
	ListModels    bool
	Pick          bool
	History       int
	Show          string
	Reformat      string
	NoCopy        bool
	NoHistory     bool

	// Stdout receives the terminal display sink.
	Stdout io.Writer
}

// ModelLister is the part of llm.LLMClient used by --list-models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Runtime is everything built from the configuration file.
type Runtime struct {
	Settings config.Settings
	Registry *template.Registry
	Ask      service.AskService
	History  service.HistoryService // nil when history is off
	Models   ModelLister
	Close    func() error
}

// App holds the hooks the root command needs. Setup runs after flag
// parsing because the config path is itself a flag.
type App struct {
	Setup func(ctx context.Context, opts Options) (*Runtime, error)

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool

	// Pick asks the user to choose a template. Defaults to a huh select.
	Pick func(names []string, current string) (string, error)

	// Now is the clock used by history listings.
	Now func() time.Time
}

// NewRootCmd creates the "gems" command.
func NewRootCmd(app *App) *cobra.Command {
	var opts Options

	root := &cobra.Command{
		Use:   "gems [flags] [text...]",
		Short: "Send text through prompt templates to a local LLM",
		Long: "gems runs input text through a configured prompt template, streams the\n" +
			"model's reply to the configured viewer and copies the result to the clipboard.\n\n" +
			"Input is taken from the arguments, or from stdin when it is piped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Stdout = cmd.OutOrStdout()
			return runRoot(cmd, app, opts, args)
		},
	}

	bindFlags(root.Flags(), &opts)
	root.MarkFlagsMutuallyExclusive("list-templates", "list-models", "history", "show", "reformat")
	root.MarkFlagsMutuallyExclusive("pick", "template")

	return root
}

func bindFlags(f *pflag.FlagSet, opts *Options) {
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $GEMS_CONFIG or ~/.config/gems/config.yaml)")
	f.StringVarP(&opts.Model, "model", "m", "", "model to use, overriding template and default")
	f.StringVarP(&opts.Template, "template", "t", "", "prompt template name")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and prompt preamble in the transcript")
	f.BoolVar(&opts.ListTemplates, "list-templates", false, "list configured templates and exit")
	f.BoolVar(&opts.ListModels, "list-models", false, "list models reported by the API and exit")
	f.BoolVarP(&opts.Pick, "pick", "p", false, "choose the template interactively")
	f.IntVar(&opts.History, "history", 0, "show the last N runs and exit")
	f.StringVar(&opts.Show, "show", "", "print a stored run by id or id prefix and exit")
	f.StringVar(&opts.Reformat, "reformat", "", "expand compact json code blocks in `FILE` and exit")
	f.BoolVar(&opts.NoCopy, "no-copy", false, "skip clipboard copy and notification")
	f.BoolVar(&opts.NoHistory, "no-history", false, "do not record this run")
}

func runRoot(cmd *cobra.Command, app *App, opts Options, args []string) error {
	out := cmd.OutOrStdout()

	// Needs no configuration.
	if opts.Reformat != "" {
		changed, err := response.ReformatFile(opts.Reformat)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(out, "%s reformatted\n", opts.Reformat)
		} else {
			fmt.Fprintf(out, "%s already formatted\n", opts.Reformat)
		}
		return nil
	}
	if opts.History < 0 {
		return fmt.Errorf("--history must be a positive number")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := app.Setup(ctx, opts)
	if err != nil {
		return err
	}
	if rt.Close != nil {
		defer rt.Close()
	}

	switch {
	case opts.ListTemplates:
		fmt.Fprint(out, listTemplates(rt))
		return nil
	case opts.ListModels:
		return listModels(ctx, cmd, rt)
	case opts.History > 0:
		return showHistory(ctx, out, app, rt, opts.History)
	case opts.Show != "":
		return showRun(ctx, out, rt, opts.Show)
	}

	input, err := readInput(args, cmd.InOrStdin(), app.interactive())
	if err != nil {
		return err
	}

	tmplName := opts.Template
	if opts.Pick {
		tmplName, err = app.pick(rt.Registry.Names(), rt.Settings.DefaultPromptTemplate)
		if err != nil {
			return err
		}
	}

	_, err = rt.Ask.Ask(ctx, service.AskRequest{
		Template:  tmplName,
		Model:     opts.Model,
		Input:     input,
		Verbose:   opts.Verbose,
		NoCopy:    opts.NoCopy,
		NoHistory: opts.NoHistory,
	})
	return err
}

func listTemplates(rt *Runtime) string {
	names := rt.Registry.Names()
	rows := make([]formatter.TemplateRow, 0, len(names))
	for _, name := range names {
		_, props, err := rt.Registry.Get(name)
		if err != nil {
			continue
		}
		rows = append(rows, formatter.TemplateRow{
			Name:       name,
			Properties: props,
			Default:    name == rt.Settings.DefaultPromptTemplate,
		})
	}
	return formatter.FormatTemplates(rows)
}

func listModels(ctx context.Context, cmd *cobra.Command, rt *Runtime) error {
	stop := func() {}
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && isTerminal(f) {
		stop = formatter.StartSpinner(f, "Fetching models")
	}
	ids, err := rt.Models.ListModels(ctx)
	stop()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatModels(ids, rt.Settings.DefaultModel))
	return nil
}

func showHistory(ctx context.Context, out io.Writer, app *App, rt *Runtime, n int) error {
	if rt.History == nil {
		return errHistoryOff
	}
	runs, err := rt.History.Recent(ctx, n)
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatter.FormatHistory(runs, app.now()))
	return nil
}

func showRun(ctx context.Context, out io.Writer, rt *Runtime, id string) error {
	if rt.History == nil {
		return errHistoryOff
	}
	run, err := rt.History.Show(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatter.FormatRun(run))
	return nil
}

var errHistoryOff = errors.New("history is disabled (configuration.history_db is off)")

func (a *App) interactive() bool {
	if a.IsInteractive == nil {
		return false
	}
	return a.IsInteractive()
}

func (a *App) pick(names []string, current string) (string, error) {
	if a.Pick != nil {
		return a.Pick(names, current)
	}
	return pickTemplate(names, current)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
