package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/go-drift/listkit/cmd/listkit/internal/scenario"
	"github.com/go-drift/listkit/pkg/cache"
	"github.com/go-drift/listkit/pkg/reuse"
)

func simulateCmd() *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Replay a scenario against a headless surface",
		Long: `Replay a scenario against a headless surface.

Every step prints the update outcome, the scroll offset and the slots on
screen. The cache statistics are printed at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), sc, slog.Default(), cmd.OutOrStdout(), showMetrics)
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print Prometheus metrics after the run")

	return cmd
}

func simulate(ctx context.Context, sc *scenario.Scenario, logger *slog.Logger, w io.Writer, showMetrics bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(sc, logger)
	if err != nil {
		return err
	}
	if sc.Name != "" {
		fmt.Fprintf(w, "scenario %s\n", sc.Name)
	}
	for i, step := range sc.Steps {
		res := s.apply(ctx, i+1, step)
		fmt.Fprintln(w, s.formatStep(res))
	}

	stats := s.coordinator.Cache().Stats()
	fmt.Fprintf(w, "cache: cheap=%d expensive=%d/%d hits=%d/%d misses=%d/%d evictions=%d\n",
		stats.CheapEntries, stats.ExpensiveEntries, stats.Capacity,
		stats.Hits[cache.TierCheap], stats.Hits[cache.TierExpensive],
		stats.Misses[cache.TierCheap], stats.Misses[cache.TierExpensive],
		stats.Evictions)
	live, pending, free := s.coordinator.Counts()
	fmt.Fprintf(w, "cells: inUse=%d pendingReuse=%d free=%d\n", live, pending, free)

	if showMetrics {
		families, err := s.registry.Gather()
		if err != nil {
			return fmt.Errorf("failed to gather metrics: %w", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) formatStep(res stepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d %-8s", res.Index, res.Kind)
	if res.Kind == "snapshot" {
		fmt.Fprintf(&b, " %-11s", res.Outcome.Kind)
	} else {
		fmt.Fprintf(&b, " %-11s", "-")
	}
	fmt.Fprintf(&b, " offset=%-6g", res.Offset)
	labels := make([]string, 0, len(res.Displayed))
	for _, target := range res.Displayed {
		labels = append(labels, s.label(target))
	}
	fmt.Fprintf(&b, " [%s]", strings.Join(labels, ", "))
	return b.String()
}

func (s *session) label(target reuse.Target) string {
	text := s.text(target)
	if target.Kind != reuse.KindItem {
		return target.Kind.String() + ":" + text
	}
	return text
}
