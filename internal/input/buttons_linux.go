//go:build linux

package input

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumerName = "muses-frame-buttons"

// debouncePeriod filters contact bounce in the kernel before events reach
// the listener.
const debouncePeriod = 10 * time.Millisecond

// OpenButtons requests the button lines on chip (pull-up, falling edge)
// and returns the event channel for a Listener plus a release function.
func OpenButtons(chip string, offsets []int) (<-chan Event, func() error, error) {
	events := make(chan Event, 16)

	lines, err := gpiocdev.RequestLines(chip, offsets,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(debouncePeriod),
		gpiocdev.WithConsumer(consumerName),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case events <- Event{Offset: evt.Offset}:
			default:
				// Presses arriving faster than the listener drains
				// them are dropped; the refresh they would trigger
				// is already rate limited anyway.
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("request button lines on %s: %w", chip, err)
	}

	release := func() error {
		err := lines.Close()
		close(events)
		return err
	}
	return events, release, nil
}
