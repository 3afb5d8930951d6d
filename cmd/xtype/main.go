// Command xtype answers type compatibility questions about a YAML manifest.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wippyai/typecore"
	"github.com/wippyai/typecore/compat"
	"github.com/wippyai/typecore/config"
	"github.com/wippyai/typecore/link"
	"github.com/wippyai/typecore/witimport"
	"go.uber.org/zap"
)

// Version is set at build time
var Version = "0.1.0"

// app carries state shared by all commands of one invocation
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	cfgFile  string
	manifest string
	verbose  bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "xtype",
		Short: "Type compatibility queries over declaration manifests",
		Long: `xtype loads declarations from a YAML manifest, links them and answers
assignability, variance and auto-narrowing questions.

Type arguments are YAML nodes in the manifest's type syntax, for example
Derived, this, or "{class: Box, args: [String]}".`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./xtype.yaml)")
	pf.StringVarP(&a.manifest, "manifest", "m", "", "declaration manifest")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.String("scope", "", "declaration path names resolve in")
	pf.String("variance", "", "type argument rules (strict|permissive)")
	pf.Bool("structural", true, "allow structural interface satisfaction")
	pf.String("access", "", "default access for variance queries")
	pf.String("log-level", "", "log level")
	pf.String("log-format", "", "log format (console|json)")
	pf.Int("workers", 0, "concurrent batch queries")

	_ = root.RegisterFlagCompletionFunc("variance", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"strict", "permissive"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("access", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"public", "protected", "private", "struct"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newCheckCmd(a),
		newChainsCmd(a),
		newVarianceCmd(a),
		newNarrowCmd(a),
		newBatchCmd(a),
		newExploreCmd(a),
	)
	return root
}

// setup loads configuration and installs the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log

	link.SetLogger(log)
	compat.SetLogger(log)
	witimport.SetLogger(log)
	config.SetLogger(log)
	return nil
}

func (a *app) options() typecore.Options {
	opts := typecore.DefaultOptions()
	opts.Link.Workers = a.cfg.Batch.Workers
	opts.Check = a.cfg.CheckerOptions()
	return opts
}

// program loads and links the manifest given with --manifest
func (a *app) program(ctx context.Context) (*typecore.Program, error) {
	if a.manifest == "" {
		return nil, fmt.Errorf("no manifest: use --manifest")
	}
	p, err := typecore.Load(ctx, a.manifest, a.options())
	if err != nil {
		return nil, err
	}
	a.log.Debug("manifest linked",
		zap.String("manifest", a.manifest),
		zap.Int("declarations", p.Repository().Len()))
	return p, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
