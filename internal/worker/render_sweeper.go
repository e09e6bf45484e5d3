package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	defaultSweepBatch   = 50
	defaultSweepTimeout = 4 * time.Minute
)

// PendingRenderer renders certificates that have no stored artifact.
type PendingRenderer interface {
	RenderPending(ctx context.Context, limit int) (int, error)
}

// RenderSweeper periodically renders certificates the async path missed.
type RenderSweeper struct {
	cron     *cron.Cron
	renderer PendingRenderer
	batch    int
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRenderSweeper schedules the sweep. An empty schedule yields a disabled sweeper.
func NewRenderSweeper(renderer PendingRenderer, schedule string, batch int, location *time.Location, logger zerolog.Logger) (*RenderSweeper, error) {
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	if location == nil {
		location = time.UTC
	}

	sweeper := &RenderSweeper{
		renderer: renderer,
		batch:    batch,
		timeout:  defaultSweepTimeout,
		logger:   logger.With().Str("component", "certificate_render_sweeper").Logger(),
	}
	if schedule == "" {
		return sweeper, nil
	}

	c := cron.New(cron.WithLocation(location), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweeper.timeout)
		defer cancel()
		sweeper.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid render sweep schedule %q: %w", schedule, err)
	}
	sweeper.cron = c

	return sweeper, nil
}

// Enabled reports whether a schedule was configured.
func (s *RenderSweeper) Enabled() bool {
	return s.cron != nil
}

// Start runs the schedule until ctx is cancelled.
func (s *RenderSweeper) Start(ctx context.Context) {
	if s.cron == nil {
		return
	}

	s.cron.Start()
	s.logger.Info().Int("batch", s.batch).Msg("certificate render sweeper started")

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Sweep renders one batch and returns how many certificates were rendered.
func (s *RenderSweeper) Sweep(ctx context.Context) int {
	rendered, err := s.renderer.RenderPending(ctx, s.batch)
	if err != nil {
		s.logger.Warn().Err(err).Int("rendered", rendered).Msg("render sweep finished with failures")
		return rendered
	}
	if rendered > 0 {
		s.logger.Info().Int("rendered", rendered).Msg("render sweep finished")
	}
	return rendered
}
