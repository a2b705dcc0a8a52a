// Package events carries tour and leg change notifications to optional sinks.
package events

import (
	"context"
	"errors"
	"time"
)

// Entities.
const (
	EntityTour = "tour"
	EntityLeg  = "leg"
)

// Actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes one committed mutation.
type Event struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	Key    string    `json:"key"` // tour_id or leg id.
	At     time.Time `json:"at"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes each event to every publisher, collecting all errors.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
