package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/wippyai/typecore/manifest"
)

// typeFlag parses a YAML type expression flag value
func typeFlag(cmd *cobra.Command, name string) (*manifest.Type, error) {
	src, _ := cmd.Flags().GetString(name)
	if src == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	t, err := manifest.ParseType(src)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func (a *app) query(cmd *cobra.Command, q manifest.Query) (answer, error) {
	p, err := a.program(cmd.Context())
	if err != nil {
		return answer{}, err
	}
	r := &runner{p: p, scope: a.cfg.Scope, access: a.cfg.AccessLevel()}
	return r.run(q)
}

func comparison(cmd *cobra.Command, kind manifest.QueryKind) (manifest.Query, error) {
	from, err := typeFlag(cmd, "from")
	if err != nil {
		return manifest.Query{}, err
	}
	to, err := typeFlag(cmd, "to")
	if err != nil {
		return manifest.Query{}, err
	}
	return manifest.Query{Kind: kind, From: from, To: to}, nil
}

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a type is assignable to another",
		Example: `  xtype check -m prog.yaml --scope app --from Derived --to Base
  xtype check -m prog.yaml --from "{class: app.Box, args: [app.Derived]}" --to "{class: app.Box, args: [app.Base]}"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := comparison(cmd, manifest.QueryAssignable)
			if err != nil {
				return err
			}
			ans, err := a.query(cmd, q)
			if err != nil {
				return err
			}
			w := out(cmd)
			fmt.Fprintln(w, verdict(w, *ans.OK))
			if *ans.OK && len(ans.Chains) > 0 {
				fmt.Fprintf(w, "  via %s\n", ans.Chains[0])
			}
			return nil
		},
	}
	cmd.Flags().String("from", "", "value type")
	cmd.Flags().String("to", "", "target type")
	return cmd
}

func newChainsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chains",
		Short: "List every composition chain from one type to another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := comparison(cmd, manifest.QueryChains)
			if err != nil {
				return err
			}
			ans, err := a.query(cmd, q)
			if err != nil {
				return err
			}
			w := out(cmd)
			if len(ans.Chains) == 0 {
				fmt.Fprintln(w, "no chains")
				return nil
			}
			t := newTable(w, "#", "Chain")
			for i, ch := range ans.Chains {
				t.AppendRow(table.Row{i + 1, ch})
			}
			t.Render()
			fmt.Fprintf(w, "assignable: %s\n", verdict(w, *ans.OK))
			return nil
		},
	}
	cmd.Flags().String("from", "", "value type")
	cmd.Flags().String("to", "", "target type")
	return cmd
}

func newVarianceCmd(a *app) *cobra.Command {
	var class, formal string
	cmd := &cobra.Command{
		Use:   "variance",
		Short: "Show how a class produces and consumes its formal type parameters",
		Example: `  xtype variance -m prog.yaml --class app.Box
  xtype variance -m prog.yaml --class Box --formal T --access private`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if class == "" {
				return fmt.Errorf("--class is required")
			}
			ans, err := a.query(cmd, manifest.Query{
				Kind:   manifest.QueryVariance,
				Class:  class,
				Formal: formal,
			})
			if err != nil {
				return err
			}
			t := newTable(out(cmd), "Formal", "Variance", "Produces", "Consumes")
			for _, v := range ans.Variance {
				t.AppendRow(table.Row{v.Formal, v.Variance, yesNo(v.Produces), yesNo(v.Consumes)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "class path or unique name")
	cmd.Flags().StringVar(&formal, "formal", "*", "formal type parameter, * for all")
	return cmd
}

func newNarrowCmd(a *app) *cobra.Command {
	var ctxClass string
	cmd := &cobra.Command{
		Use:     "narrow",
		Short:   "Resolve auto-narrowing types relative to a class",
		Example: `  xtype narrow -m prog.yaml --type this --context app.Derived`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := typeFlag(cmd, "type")
			if err != nil {
				return err
			}
			if ctxClass == "" {
				return fmt.Errorf("--context is required")
			}
			ans, err := a.query(cmd, manifest.Query{Kind: manifest.QueryNarrow, Type: t, Context: ctxClass})
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), ans.Value)
			return nil
		},
	}
	cmd.Flags().String("type", "", "type to narrow")
	cmd.Flags().StringVar(&ctxClass, "context", "", "context class path or unique name")
	return cmd
}
