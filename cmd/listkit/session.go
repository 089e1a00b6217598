package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-drift/listkit/cmd/listkit/internal/scenario"
	"github.com/go-drift/listkit/pkg/container"
	"github.com/go-drift/listkit/pkg/metrics"
	"github.com/go-drift/listkit/pkg/reuse"
	"github.com/go-drift/listkit/pkg/textmeasure"
)

// session wires a scenario's preferences to a coordinator, a container
// and a headless surface. Content is plain text sized by a Measurer.
type session struct {
	scenario    *scenario.Scenario
	logger      *slog.Logger
	measurer    *textmeasure.Measurer
	registry    *prometheus.Registry
	coordinator *reuse.Coordinator
	container   *container.Container
	surface     *container.Headless
}

func newSession(sc *scenario.Scenario, logger *slog.Logger) (*session, error) {
	measurer := textmeasure.New(nil)
	registry := prometheus.NewRegistry()
	collector := metrics.New(metrics.WithRegistry(registry))

	builders := reuse.Builders{
		Item:   measurer.Build,
		Header: measurer.Build,
		Footer: measurer.Build,
	}
	coordinator, err := reuse.New(sc.Preferences, builders,
		reuse.WithLogger(logger),
		reuse.WithObserver(collector),
		reuse.WithCacheObserver(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	surface := container.NewHeadless(sc.Viewport.Size())
	c := container.New(surface, coordinator, container.WithLogger(logger))
	surface.Attach(c)

	return &session{
		scenario:    sc,
		logger:      logger,
		measurer:    measurer,
		registry:    registry,
		coordinator: coordinator,
		container:   c,
		surface:     surface,
	}, nil
}

// stepResult describes the list after one step.
type stepResult struct {
	Index     int
	Kind      string
	Outcome   reuse.Outcome
	Offset    float64
	Displayed []reuse.Target
}

func (s *session) apply(ctx context.Context, index int, step scenario.Step) stepResult {
	res := stepResult{Index: index, Kind: step.Kind()}
	switch {
	case step.Snapshot != nil:
		res.Outcome, _ = s.container.Update(ctx, step.Snapshot.Snapshot())
		s.container.Tick()
	case step.Reload:
		s.container.Reload()
	default:
		s.surface.ScrollBy(step.Scroll)
	}
	res.Offset = s.surface.ContentOffset().Y
	res.Displayed = s.surface.Displayed()

	attrs := []any{"step", index, "kind", res.Kind, "offset", res.Offset, "displayed", len(res.Displayed)}
	if step.Snapshot != nil {
		attrs = append(attrs, "outcome", res.Outcome.Kind, "duration", res.Outcome.Duration)
	}
	s.logger.Info("listkit: step applied", attrs...)
	return res
}

// text returns the text shown in a slot.
func (s *session) text(target reuse.Target) string {
	if content, ok := s.container.ContentFor(target).(*textmeasure.TextContent); ok {
		return content.Text()
	}
	return ""
}
