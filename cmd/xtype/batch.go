package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/wippyai/typecore/manifest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// outcome is one answered batch query
type outcome struct {
	err    error
	answer answer
}

// failed reports whether the query errored or contradicted its expectation
func (o outcome) failed(q manifest.Query) bool {
	if o.err != nil {
		return true
	}
	return q.Expect != nil && (o.answer.OK == nil || *o.answer.OK != *q.Expect)
}

// runBatch answers every query with at most workers running at once.
// Outcomes are returned in query order.
func runBatch(ctx context.Context, r *runner, queries []manifest.Query, workers int) ([]outcome, error) {
	results := make([]outcome, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ans, err := r.run(q)
			results[i] = outcome{answer: ans, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <queries.yaml>",
		Short: "Answer a file of queries concurrently",
		Long: `Answer every query of a batch file. Queries run concurrently, bounded by
--workers. The command fails when a query errors or an expectation is not met.`,
		Example: `  xtype batch -m prog.yaml queries.yaml --workers 8`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := manifest.LoadBatch(args[0])
			if err != nil {
				return err
			}
			p, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			r := &runner{p: p, scope: a.cfg.Scope, access: a.cfg.AccessLevel()}
			results, err := runBatch(cmd.Context(), r, batch.Queries, a.cfg.Batch.Workers)
			if err != nil {
				return err
			}

			w := out(cmd)
			t := newTable(w, "Query", "Kind", "Answer", "Expect", "Status")
			failures := 0
			for i, q := range batch.Queries {
				o := results[i]
				expect := ""
				if q.Expect != nil {
					expect = yesNo(*q.Expect)
				}
				value, status := o.answer.Value, "ok"
				if o.err != nil {
					value = o.err.Error()
				}
				if o.failed(q) {
					status = "FAIL"
					failures++
				}
				t.AppendRow(table.Row{q.Label(i), q.Kind, value, expect, status})
			}
			t.Render()
			fmt.Fprintf(w, "failed: %d/%d\n", failures, len(batch.Queries))

			a.log.Debug("batch done",
				zap.Int("queries", len(batch.Queries)),
				zap.Int("failed", failures))
			if failures > 0 {
				return fmt.Errorf("%d of %d queries failed", failures, len(batch.Queries))
			}
			return nil
		},
	}
}
