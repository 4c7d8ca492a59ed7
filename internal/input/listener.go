// Package input turns GPIO edge events from the frame's four buttons into
// refresh triggers.
package input

import (
	"context"
	"log/slog"
)

// buttonLabels maps configured line index to the label printed on the
// frame bezel. The order must match the configured offsets.
var buttonLabels = [...]string{"A", "B", "C", "D"}

// Event is one observed falling edge on a button line.
type Event struct {
	Offset int // GPIO line offset the edge was seen on
}

// Refresher is the single operation a button press can trigger.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Listener consumes button edge events and triggers a refresh when the
// designated button is pressed.
type Listener struct {
	events    <-chan Event
	offsets   []int
	trigger   string
	refresher Refresher
}

// New creates a Listener. offsets are the GPIO lines in bezel order (A..D);
// trigger is the label that drives a refresh.
func New(events <-chan Event, offsets []int, trigger string, r Refresher) *Listener {
	return &Listener{
		events:    events,
		offsets:   offsets,
		trigger:   trigger,
		refresher: r,
	}
}

// Run consumes events until ctx is cancelled. A press of the trigger
// button invokes Refresh synchronously, so rapid presses serialize behind
// the running refresh instead of piling up.
func (l *Listener) Run(ctx context.Context) {
	slog.Info("input: button listener started", "offsets", l.offsets, "trigger", l.trigger)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.events:
			if !ok {
				return
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *Listener) handle(ctx context.Context, ev Event) {
	label := l.labelFor(ev.Offset)
	if label == "" {
		slog.Warn("input: edge on unconfigured line", "gpio", ev.Offset)
		return
	}
	slog.Info("input: button press detected", "gpio", ev.Offset, "label", label)

	if label == l.trigger {
		slog.Info("input: trigger button pressed, refreshing", "label", label)
		l.refresher.Refresh(ctx)
	}
}

func (l *Listener) labelFor(offset int) string {
	for i, o := range l.offsets {
		if o == offset && i < len(buttonLabels) {
			return buttonLabels[i]
		}
	}
	return ""
}
