package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/varlab/vexpress/internal/pipeline"
	"github.com/varlab/vexpress/internal/script"
	"github.com/varlab/vexpress/internal/script/cuescript"
	"github.com/varlab/vexpress/internal/script/luascript"
	"github.com/varlab/vexpress/internal/vcf"
)

// FilterOptions holds the filter command's flags.
type FilterOptions struct {
	Expressions []string
	Sets        []string
	Template    string
	Preludes    []string
	Libraries   []string
	Output      string
	Sandbox     bool
	Engine      string
	Stats       bool
}

// NewFilterCommand creates the filter subcommand.
func NewFilterCommand(root *RootOptions, cfg Config) *cobra.Command {
	opts := &FilterOptions{
		Engine:  cfg.Engine,
		Sandbox: cfg.Sandbox,
	}

	cmd := &cobra.Command{
		Use:   "filter <path>",
		Short: "Filter a VCF and optionally print by template expression",
		Long: "Filter a VCF and optionally print by template expression.\n" +
			"If no template is given the output is VCF. Use - or stdin to read\n" +
			"standard input.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Expressions, "expression", "e", nil,
		"boolean expression(s) to filter records; first true wins")
	cmd.Flags().StringArrayVarP(&opts.Sets, "set-expression", "s", nil,
		`expression(s) to set INFO field(s), e.g. "AFmax=max(info('AF'), info('AFx'))"`)
	cmd.Flags().StringVarP(&opts.Template, "template", "t", "",
		"text template, e.g. '{chrom}:{pos}'; forces line output")
	cmd.Flags().StringArrayVarP(&opts.Preludes, "lua-prelude", "p", nil,
		"file(s) run once before any records; `header` is bound and mutable")
	cmd.Flags().StringArrayVarP(&opts.Libraries, "lua", "l", nil,
		"file(s) with library code available to expressions and the template")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-",
		"output path; default stdout; .gz compresses")
	cmd.Flags().BoolVarP(&opts.Sandbox, "sandbox", "b", opts.Sandbox,
		"run guest scripts without filesystem or OS access")
	cmd.Flags().StringVar(&opts.Engine, "engine", opts.Engine,
		"guest engine: lua or cue")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false,
		"print a YAML run summary to stderr")

	return cmd
}

func newEngine(opts *FilterOptions) (script.Engine, error) {
	switch opts.Engine {
	case "lua":
		return luascript.New(luascript.Options{Sandbox: opts.Sandbox})
	case "cue":
		return cuescript.New(), nil
	}
	return nil, fmt.Errorf("unknown engine %q: must be lua or cue", opts.Engine)
}

func readSources(paths []string) ([]pipeline.Source, error) {
	sources := make([]pipeline.Source, 0, len(paths))
	for _, path := range paths {
		code, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, pipeline.Source{Name: path, Code: string(code)})
	}
	return sources, nil
}

func runFilter(path string, opts *FilterOptions) error {
	runID, err := uuid.NewV7()
	if err != nil {
		return WrapExitError(ExitFailure, "run id", err)
	}
	logger := slog.With("run_id", runID.String())

	eng, err := newEngine(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "engine", err)
	}
	defer eng.Close()
	if opts.Engine == "cue" && (len(opts.Preludes) > 0 || len(opts.Libraries) > 0) {
		return NewExitError(ExitCommandError, "the cue engine does not support --lua-prelude or --lua scripts")
	}

	libs, err := readSources(opts.Libraries)
	if err != nil {
		return WrapExitError(ExitCommandError, "library script", err)
	}
	preludes, err := readSources(opts.Preludes)
	if err != nil {
		return WrapExitError(ExitCommandError, "prelude script", err)
	}

	r, err := vcf.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open input", err)
	}
	defer r.Close()

	logger.Debug("input open", "path", path, "samples", len(r.Header().Samples()))

	// preludes run inside New, so the header the sink snapshots below
	// already carries added tags and sample subsets
	p, err := pipeline.New(pipeline.Options{
		Engine:    eng,
		Header:    r.Header(),
		Filters:   opts.Expressions,
		Sets:      opts.Sets,
		Template:  opts.Template,
		Libraries: libs,
		Preludes:  preludes,
	})
	if err != nil {
		if pipeline.IsConfigError(err) {
			return WrapExitError(ExitCommandError, "pipeline", err)
		}
		return WrapExitError(ExitFailure, "pipeline", err)
	}

	sink, err := pipeline.NewSink(opts.Output, opts.Template != "", r.Header())
	if err != nil {
		if pipeline.IsConfigError(err) {
			return WrapExitError(ExitCommandError, "output", err)
		}
		return WrapExitError(ExitFailure, "output", err)
	}

	if err := pipeline.Run(r, p, sink); err != nil {
		sink.Close()
		return WrapExitError(ExitFailure, "run", err)
	}
	if err := sink.Close(); err != nil {
		return WrapExitError(ExitFailure, "close output", err)
	}

	stats := p.Stats()
	logger.Info("run complete",
		"evaluated", stats.VariantsEvaluated,
		"passing", stats.VariantsPassing,
	)
	if opts.Stats {
		out, err := yaml.Marshal(stats)
		if err != nil {
			return WrapExitError(ExitFailure, "stats", err)
		}
		fmt.Fprint(os.Stderr, string(out))
	}
	return nil
}
