// Package app provides the small Cobra-command bootstrap shared by every
// binary in this repository: flag registration from an Options struct and
// a single RunFunc. It does not register a --version flag.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prime-system/prime-agent/pkg/utils/cliflag"
)

// RunFunc is invoked once flags are parsed and options are validated.
type RunFunc func(basename string) error

// CliOptions is implemented by every command's options struct.
type CliOptions interface {
	Flags() cliflag.NamedFlagSets
	Validate() []error
}

// App wraps a cobra.Command with the conventions this repository's
// binaries share.
type App struct {
	name        string
	basename    string
	description string
	options     CliOptions
	runFunc     RunFunc
	validArgs   cobra.PositionalArgs
	cmd         *cobra.Command
}

type Option func(*App)

func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.validArgs = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any positional arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

func NewApp(name, basename string, opts ...Option) *App {
	a := &App{name: name, basename: basename}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.basename,
		Short:         a.name,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.validArgs,
	}
	cmd.SetOut(os.Stdout)
	cmd.Flags().SortFlags = false

	if a.options != nil {
		namedFlagSets := a.options.Flags()
		fs := cmd.Flags()
		for _, f := range namedFlagSets.FlagSets {
			fs.AddFlagSet(f)
		}
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if a.options != nil {
			if errs := a.options.Validate(); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(os.Stderr, e)
				}
				return fmt.Errorf("%d invalid option(s)", len(errs))
			}
		}
		if a.runFunc != nil {
			return a.runFunc(a.basename)
		}
		return nil
	}

	a.cmd = cmd
}

// Run executes the command, printing any error and exiting non-zero.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.basename, err)
		os.Exit(1)
	}
}

// Command exposes the underlying cobra.Command, mostly for tests.
func (a *App) Command() *cobra.Command { return a.cmd }
