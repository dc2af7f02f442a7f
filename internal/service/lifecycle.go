package service

import (
	"errors"
	"fmt"

	"github.com/cursedai/cursed-go/internal/model"
)

// ErrInvalidTransition is returned when a manual status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// manualTransitions lists the moderator-driven edges of the lifecycle.
// Removal is reachable from every state.
var manualTransitions = map[model.Status]map[model.Status]bool{
	model.StatusActive:    {model.StatusGraveyard: true, model.StatusRemoved: true},
	model.StatusGraveyard: {model.StatusActive: true, model.StatusRemoved: true},
	model.StatusRemoved:   {model.StatusActive: true},
}

// ManualTransition validates a moderator status change. Same-state changes are no-ops.
func ManualTransition(from, to model.Status) error {
	if !to.Valid() {
		return invalid("INVALID_STATUS", "unknown status %q", to)
	}
	if from == to {
		return nil
	}
	if manualTransitions[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
