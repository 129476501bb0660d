// internal/program/program.go
package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/relayd/internal/config"
	"github.com/tamzrod/relayd/internal/logging"
)

// Switcher records relay intent. The controller satisfies it.
type Switcher interface {
	RelayOn(relay int) error
	RelayOff(relay int) error
}

// Step switches Relays on for Duration, then off again.
type Step struct {
	Relays   []int
	Duration time.Duration
}

// Parse pairs each relay list ("1,2") with the minutes at the same index.
func Parse(relays []string, minutes []int) ([]Step, error) {
	if len(relays) != len(minutes) {
		return nil, fmt.Errorf("program: %d relay lists but %d durations", len(relays), len(minutes))
	}

	steps := make([]Step, 0, len(relays))
	for i, list := range relays {
		ids, err := parseList(list)
		if err != nil {
			return nil, fmt.Errorf("program: step %d: %w", i+1, err)
		}
		if minutes[i] <= 0 {
			return nil, fmt.Errorf("program: step %d: duration must be > 0 minutes", i+1)
		}
		steps = append(steps, Step{Relays: ids, Duration: time.Duration(minutes[i]) * time.Minute})
	}
	return steps, nil
}

func parseList(list string) ([]int, error) {
	var ids []int
	seen := make(map[int]bool)

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("relay %q: %w", part, err)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("empty relay list")
	}

	sort.Ints(ids)
	return ids, nil
}

// FromConfig converts the YAML run list. Config is assumed normalized.
func FromConfig(cfg []config.StepConfig) []Step {
	steps := make([]Step, 0, len(cfg))
	for _, s := range cfg {
		steps = append(steps, Step{
			Relays:   append([]int(nil), s.Relays...),
			Duration: time.Duration(s.Minutes) * time.Minute,
		})
	}
	return steps
}

// Run executes steps in order. When ctx ends mid-step the step's relays are
// switched off before returning ctx.Err(). Intent errors abort the run.
func Run(ctx context.Context, sw Switcher, steps []Step, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "program")

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := logger.With("step", i+1, "relays", step.Relays)
		log.Info("step started", "duration", step.Duration)

		if err := setAll(sw.RelayOn, step.Relays); err != nil {
			// Partially switched on steps still get released.
			_ = setAll(sw.RelayOff, step.Relays)
			return fmt.Errorf("program: step %d: %w", i+1, err)
		}

		t := time.NewTimer(step.Duration)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Info("step cancelled")
			_ = setAll(sw.RelayOff, step.Relays)
			return ctx.Err()
		case <-t.C:
		}

		if err := setAll(sw.RelayOff, step.Relays); err != nil {
			return fmt.Errorf("program: step %d: %w", i+1, err)
		}
		log.Info("step finished")
	}

	return nil
}

func setAll(fn func(int) error, relays []int) error {
	var errs []error
	for _, r := range relays {
		if err := fn(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
