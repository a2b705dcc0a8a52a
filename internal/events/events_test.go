package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestFanout(t *testing.T) {
	errSink := errors.New("sink down")
	a, b, c := &recorder{}, &recorder{err: errSink}, &recorder{}
	ev := Event{Entity: EntityLeg, Action: ActionCreated, Key: "7", At: time.Now()}

	err := Fanout{a, b, c}.Publish(context.Background(), ev)
	if !errors.Is(err, errSink) {
		t.Fatalf("err = %v, want %v", err, errSink)
	}
	for i, r := range []*recorder{a, b, c} {
		if len(r.got) != 1 || r.got[0] != ev {
			t.Errorf("publisher %d got %+v", i, r.got)
		}
	}
}

func TestFanoutEmptyAndNop(t *testing.T) {
	if err := (Fanout{}).Publish(context.Background(), Event{}); err != nil {
		t.Errorf("empty fanout: %v", err)
	}
	if err := (Nop{}).Publish(context.Background(), Event{}); err != nil {
		t.Errorf("nop: %v", err)
	}
}

func TestNATSSubject(t *testing.T) {
	tests := []struct {
		entity, action, want string
	}{
		{EntityTour, ActionCreated, "fstours.tour.created"},
		{EntityTour, ActionDeleted, "fstours.tour.deleted"},
		{EntityLeg, ActionUpdated, "fstours.leg.updated"},
	}

	p := &NATSPublisher{prefix: "fstours"}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := p.Subject(Event{Entity: tt.entity, Action: tt.action}); got != tt.want {
				t.Errorf("Subject = %q, want %q", got, tt.want)
			}
		})
	}
}
