package skill

import (
	"context"
	"fmt"

	"skillserv/internal/logging"
)

// LoadFailure records one skill that failed to load, and why.
type LoadFailure struct {
	// Source names the failing factory (the skill id when known,
	// otherwise the factory's position in the manifest).
	Source string
	Err    error
}

// LoadResult reports which skills loaded and which failed.
type LoadResult struct {
	Loaded []*Skill
	Failed []LoadFailure
}

// Load runs every factory in the manifest, validates and registers the
// produced skills, and awaits each skill's Init hook. One bad skill
// never aborts the others: factory errors, factory panics, validation
// failures, registry conflicts, and Init errors are all captured
// per-skill in the result. Progress goes to the diagnostic log (stderr),
// never stdout.
func Load(ctx context.Context, reg *Registry, factories []Factory) *LoadResult {
	result := &LoadResult{}

	for i, factory := range factories {
		s, err := buildSkill(factory)
		if err != nil {
			result.Failed = append(result.Failed, LoadFailure{
				Source: fmt.Sprintf("factory #%d", i),
				Err:    err,
			})
			logging.Warn("skill factory failed", "index", i, "error", err)
			continue
		}

		if err := reg.Register(s); err != nil {
			result.Failed = append(result.Failed, LoadFailure{Source: s.ID, Err: err})
			logging.Warn("skill rejected", "skill", s.ID, "error", err)
			continue
		}

		if s.Init != nil {
			if err := runHook(ctx, s.Init); err != nil {
				// Init failed after registration: roll the skill back out
				// so a half-initialized skill never serves tool calls.
				_, _ = reg.Unregister(s.ID)
				result.Failed = append(result.Failed, LoadFailure{
					Source: s.ID,
					Err:    fmt.Errorf("init: %w", err),
				})
				logging.Warn("skill init failed", "skill", s.ID, "error", err)
				continue
			}
		}

		result.Loaded = append(result.Loaded, s)
		logging.Info("skill loaded", "skill", s.ID, "version", s.Version, "tools", len(s.Tools))
	}

	return result
}

// Unload runs Cleanup for every registered skill in reverse registration
// order and empties the registry. Cleanup errors are logged, not returned:
// shutdown proceeds regardless.
func Unload(ctx context.Context, reg *Registry) {
	all := reg.GetAll()
	for i := len(all) - 1; i >= 0; i-- {
		s := all[i]
		if _, err := reg.Unregister(s.ID); err != nil {
			continue
		}
		if s.Cleanup == nil {
			continue
		}
		if err := runHook(ctx, s.Cleanup); err != nil {
			logging.Warn("skill cleanup failed", "skill", s.ID, "error", err)
		}
	}
}

// buildSkill invokes a factory, converting a panic into an error.
func buildSkill(factory Factory) (s *Skill, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory panic: %v", rec)
		}
	}()
	s, err = factory()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("factory returned nil skill")
	}
	return s, nil
}

// runHook invokes an init/cleanup hook, converting a panic into an error.
func runHook(ctx context.Context, hook func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook panic: %v", rec)
		}
	}()
	return hook(ctx)
}
