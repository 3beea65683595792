// Copyright 2025 The Fleetdfu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package app provides the shared command-line application scaffold used by
// every binary in this repository: named flag sets, viper-backed
// environment binding, and a uniform validate-then-run flow.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
)

// RunFunc is invoked once options have been bound, completed and validated.
type RunFunc func() error

// NamedFlagSetOptions is implemented by a command's aggregate options
// struct. It groups its flags into named sets for usage output, fills in
// any values that depend on other values (Complete), and checks the final
// values are usable (Validate).
type NamedFlagSetOptions interface {
	Flags() cliflag.NamedFlagSets
	Complete() error
	Validate() error
}

// App wraps a cobra.Command with the conventions shared by the commands in
// this repository.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	validArgs   cobra.PositionalArgs

	// loggerCtxExtractor maps a log field name to a function that pulls its
	// value out of a request/event context (e.g. a correlation id). It is
	// stashed here for callers that want to enrich their loggers per
	// request; App itself does not invoke it.
	loggerCtxExtractor map[string]func(context.Context) string

	cmd *cobra.Command
}

// Option configures an App at construction time.
type Option func(*App)

// WithDescription sets the long description shown in --help output.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions attaches the command's options aggregate.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function executed once options are validated.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.validArgs = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(strings.TrimSpace(arg)) > 0 {
					return fmt.Errorf("%q does not take any positional arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithLoggerContextExtractor records per-field context extractors for
// request-scoped logging. Optional; most commands omit it.
func WithLoggerContextExtractor(extractor map[string]func(context.Context) string) Option {
	return func(a *App) { a.loggerCtxExtractor = extractor }
}

// NewApp builds an App, applying options and constructing the underlying
// cobra.Command immediately so Run can be called right away.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc}
	for _, opt := range opts {
		opt(a)
	}
	a.buildCommand()
	return a
}

// LoggerContextExtractor returns the context extractors supplied via
// WithLoggerContextExtractor, or nil if none were set.
func (a *App) LoggerContextExtractor() map[string]func(context.Context) string {
	return a.loggerCtxExtractor
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		Args:          a.validArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runE()
		},
	}
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc)

	if a.options != nil {
		namedFlagSets := a.options.Flags()
		fs := cmd.Flags()
		for _, f := range namedFlagSets.FlagSets {
			fs.AddFlagSet(f)
		}

		cols := 80
		cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)
	}

	a.cmd = cmd
}

func (a *App) runE() error {
	if a.options != nil {
		envPrefix := strings.ToUpper(strings.ReplaceAll(a.name, "-", "_"))
		v := viper.GetViper()
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
		v.AutomaticEnv()
		if err := v.BindPFlags(a.cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags to environment: %w", err)
		}

		if err := a.options.Complete(); err != nil {
			return fmt.Errorf("failed to complete options: %w", err)
		}
		if err := a.options.Validate(); err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}
	}

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// Run executes the underlying command, parsing os.Args.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// Command returns the underlying cobra.Command, primarily for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
