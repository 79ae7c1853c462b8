package jobs

import (
	"context"
	"time"

	"github.com/yigit/formatrack/internal/app/services"
)

// Job names
const (
	DispatchMessages = "dispatch-messages"
	SweepSignaling   = "sweep-signaling"
)

// Dispatch runs one dispatcher pass
func Dispatch(d *services.Dispatcher) Job {
	return func(ctx context.Context) error {
		_, err := d.RunOnce(ctx)
		return err
	}
}

// Sweep expires silent peers and old signals
func Sweep(signaling services.SignalingService) Job {
	return func(ctx context.Context) error {
		_, err := signaling.Sweep(ctx, time.Now().UTC())
		return err
	}
}

// Specs are the cron specs of the periodic jobs
type Specs struct {
	Dispatch string
	Sweep    string
}

// Register schedules the dispatcher and the signaling sweep
func Register(s *Scheduler, specs Specs, d *services.Dispatcher, signaling services.SignalingService) error {
	if err := s.Add(DispatchMessages, specs.Dispatch, Dispatch(d)); err != nil {
		return err
	}
	return s.Add(SweepSignaling, specs.Sweep, Sweep(signaling))
}
