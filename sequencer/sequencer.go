// Package sequencer schedules timed button presses against a controller
// tracker. Callers press a control with a hold duration; the sequencer
// releases it when the deadline passes, merging overlapping holds of the
// same control into the later deadline.
package sequencer

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ffpad/ffpad/ds4"
)

// MinHold is the floor on hold durations. A press shorter than one input
// report tick would never be visible to the host.
const MinHold = 8 * time.Millisecond

type event struct {
	at     time.Time
	button ds4.Buttons // buttons to release; zero for a dpad event
	dpad   bool        // reset the hat to neutral
	index  int
}

type eventQueue []*event

func (q eventQueue) Len() int            { return len(q) }
func (q eventQueue) Less(i, j int) bool  { return q[i].at.Before(q[j].at) }
func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *eventQueue) Push(x any)         { e := x.(*event); e.index = len(*q); *q = append(*q, e) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Sequencer owns a release-event queue over one tracker. Run must be active
// for deadlines to fire.
type Sequencer struct {
	tracker *ds4.Tracker
	logger  *slog.Logger

	mu       sync.Mutex
	queue    eventQueue
	byButton map[ds4.Buttons]*event
	dpadEv   *event
	wake     chan struct{}
}

// New returns a sequencer bound to the tracker.
func New(tracker *ds4.Tracker, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		tracker:  tracker,
		logger:   logger,
		byButton: make(map[ds4.Buttons]*event),
		wake:     make(chan struct{}, 1),
	}
}

// Press holds a button for the given duration and schedules its release.
// Pressing an already-held button extends the hold to the later deadline.
func (s *Sequencer) Press(b ds4.Buttons, hold time.Duration) {
	if hold < MinHold {
		hold = MinHold
	}
	deadline := time.Now().Add(hold)

	s.tracker.SetButton(b, true)

	s.mu.Lock()
	if ev, ok := s.byButton[b]; ok {
		if deadline.After(ev.at) {
			ev.at = deadline
			heap.Fix(&s.queue, ev.index)
		}
	} else {
		ev := &event{at: deadline, button: b}
		s.byButton[b] = ev
		heap.Push(&s.queue, ev)
	}
	s.mu.Unlock()
	s.kick()
}

// Hold presses a button with no scheduled release. Release or Cancel ends it.
func (s *Sequencer) Hold(b ds4.Buttons) {
	s.tracker.SetButton(b, true)
}

// Release lets go of a button immediately and drops any pending deadline.
func (s *Sequencer) Release(b ds4.Buttons) {
	s.mu.Lock()
	if ev, ok := s.byButton[b]; ok {
		heap.Remove(&s.queue, ev.index)
		delete(s.byButton, b)
	}
	s.mu.Unlock()
	s.tracker.SetButton(b, false)
	s.kick()
}

// PressDPad points the hat for the given duration, then returns it to
// neutral.
func (s *Sequencer) PressDPad(d ds4.DPad, hold time.Duration) {
	if hold < MinHold {
		hold = MinHold
	}
	deadline := time.Now().Add(hold)

	s.tracker.SetDPad(d)

	s.mu.Lock()
	if s.dpadEv != nil {
		if deadline.After(s.dpadEv.at) {
			s.dpadEv.at = deadline
			heap.Fix(&s.queue, s.dpadEv.index)
		}
	} else {
		ev := &event{at: deadline, dpad: true}
		s.dpadEv = ev
		heap.Push(&s.queue, ev)
	}
	s.mu.Unlock()
	s.kick()
}

// Cancel drops every pending deadline and releases everything it was
// tracking.
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	var buttons ds4.Buttons
	for b := range s.byButton {
		buttons |= b
	}
	hadDpad := s.dpadEv != nil
	s.queue = s.queue[:0]
	s.byButton = make(map[ds4.Buttons]*event)
	s.dpadEv = nil
	s.mu.Unlock()

	if buttons != 0 {
		s.tracker.SetButton(buttons, false)
	}
	if hadDpad {
		s.tracker.SetDPad(ds4.DPadNeutral)
	}
	s.kick()
}

// Pending reports how many release events are queued.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Sequencer) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run fires release events as their deadlines pass. It returns when the
// context ends, cancelling all pending holds on the way out.
func (s *Sequencer) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.fireDue(time.Now())

		s.mu.Lock()
		var wait time.Duration = time.Hour
		if len(s.queue) > 0 {
			wait = time.Until(s.queue[0].at)
		}
		s.mu.Unlock()
		if wait < 0 {
			wait = 0
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.Cancel()
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

func (s *Sequencer) fireDue(now time.Time) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].at.After(now) {
			s.mu.Unlock()
			return
		}
		ev := heap.Pop(&s.queue).(*event)
		if ev.dpad {
			s.dpadEv = nil
		} else {
			delete(s.byButton, ev.button)
		}
		s.mu.Unlock()

		if ev.dpad {
			s.tracker.SetDPad(ds4.DPadNeutral)
		} else {
			s.tracker.SetButton(ev.button, false)
		}
	}
}
