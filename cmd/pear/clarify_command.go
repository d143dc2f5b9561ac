package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/reconcile"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

func newClarifyCommand(ctx *commandContext) *cobra.Command {
	var (
		by       string
		note     string
		goal     string
		target   float64
		unit     string
		goalCtx  string
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "clarify <record-id>",
		Short: "Mark a vague goal clarified, optionally linking a quantifiable goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := reconcile.Clarification{
				UpdatedBy:            by,
				Note:                 note,
				QuantifiableGoalText: goal,
				TargetUnit:           unit,
				GoalContext:          goalCtx,
			}
			if cmd.Flags().Changed("target") {
				if goal == "" {
					return errors.New("--target requires --goal")
				}
				c.TargetNumber = &target
			}

			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				eng := reconcile.New(st, nil, ctx.log())
				res, err := eng.ApplyClarification(cmd.Context(), args[0], c)
				if err != nil {
					return err
				}
				if jsonMode {
					return writeJSON(cmd, res)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Record %s marked %s\n", res.Record.ID, res.Record.Status)
				if res.Linked != nil {
					fmt.Fprintf(out, "Linked goal %s: %s (target %g)\n",
						res.Linked.ID, res.Linked.PayloadText, *res.Linked.TargetNumber)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "Reviewer recorded in the provenance log")
	cmd.Flags().StringVar(&note, "note", "", "Clarification note")
	cmd.Flags().StringVar(&goal, "goal", "", "Quantifiable replacement goal text")
	cmd.Flags().Float64Var(&target, "target", 0, "Target number for the replacement goal")
	cmd.Flags().StringVar(&unit, "unit", "", "Target unit, e.g. calls or pages")
	cmd.Flags().StringVar(&goalCtx, "context", "", "Goal context for the replacement goal")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}
