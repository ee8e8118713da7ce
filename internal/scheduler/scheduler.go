// Package scheduler runs the periodic idle-room sweep.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper evicts idle rooms and returns their ids.
type Sweeper interface {
	Sweep(ctx context.Context) []string
}

// Scheduler runs a Sweeper on a cron spec.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	sweeper Sweeper
	logger  *logrus.Logger
}

// New returns a stopped scheduler. spec accepts standard cron expressions and
// descriptors such as "@every 10m".
func New(logger *logrus.Logger, spec string, sweeper Sweeper) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		spec:    spec,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunNow); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.WithField("spec", s.spec).Info("room sweep scheduled")
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("room sweep stopped")
}

// RunNow performs one sweep immediately.
func (s *Scheduler) RunNow() {
	ids := s.sweeper.Sweep(context.Background())
	s.logger.WithField("evicted", len(ids)).Debug("room sweep finished")
}
