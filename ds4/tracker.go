package ds4

import (
	"sync"
)

// Tracker owns the live controller state. Writers mutate it through Modify
// (single-writer discipline enforced by the mutex); the report loop pulls
// one consistent frame per tick via NextReport. Feedback from the host lands
// in a separate Effects value so input state is never touched by the output
// path.
type Tracker struct {
	mu       sync.Mutex
	state    State
	counter  uint8 // 6-bit rolling report index
	touchSeq uint8 // 7-bit touch frame sequence
	touchID  uint8 // 7-bit contact auto-index

	effects    Effects
	onEffects  func(Effects)
	effectsSet bool
}

// NewTracker returns a tracker with a neutral controller state.
func NewTracker() *Tracker {
	return &Tracker{state: NewState()}
}

// Modify applies fn to the live state under the tracker lock. fn must not
// retain the pointer.
func (t *Tracker) Modify(fn func(*State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.state)
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// NextReport encodes the next input report frame. Each call advances the
// rolling report counter; the touch frame sequence advances only while a
// contact is active (touch sustain).
func (t *Tracker) NextReport() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Touch[0].Active || t.state.Touch[1].Active {
		t.touchSeq = (t.touchSeq + 1) & 0x7F
	}
	frame := t.state.Encode(t.counter, t.touchSeq)
	t.counter = (t.counter + 1) & 0x3F
	return frame
}

// CurrentReport encodes the present state with the current counter and touch
// sequence values without advancing either. Control-channel polls use this
// so they do not perturb the interrupt stream.
func (t *Tracker) CurrentReport() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Encode(t.counter, t.touchSeq)
}

// TouchDown places a contact on the touchpad. A contact that was previously
// inactive gets a fresh 7-bit contact ID, mirroring how the hardware tracks
// touches across frames.
func (t *Tracker) TouchDown(slot int, x, y uint16) {
	if slot < 0 || slot > 1 {
		return
	}
	if x > TouchpadMaxX {
		x = TouchpadMaxX
	}
	if y > TouchpadMaxY {
		y = TouchpadMaxY
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tp := &t.state.Touch[slot]
	if !tp.Active {
		tp.ID = t.touchID
		t.touchID = (t.touchID + 1) & 0x7F
	}
	tp.X, tp.Y = x, y
	tp.Active = true
}

// TouchUp releases a contact.
func (t *Tracker) TouchUp(slot int) {
	if slot < 0 || slot > 1 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Touch[slot].Active = false
}

// SetButton presses or releases a single button.
func (t *Tracker) SetButton(b Buttons, pressed bool) {
	t.Modify(func(s *State) {
		if pressed {
			s.Buttons |= b
		} else {
			s.Buttons &^= b
		}
	})
}

// SetDPad sets the hat switch position.
func (t *Tracker) SetDPad(d DPad) {
	t.Modify(func(s *State) { s.DPad = d })
}

// ProcessFeedback consumes one host feedback report and updates the effects
// state.
func (t *Tracker) ProcessFeedback(report []byte) error {
	effects, err := DecodeFeedbackReport(report)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.effects = effects
	t.effectsSet = true
	cb := t.onEffects
	t.mu.Unlock()

	if cb != nil {
		cb(effects)
	}
	return nil
}

// Effects returns the last feedback state received from the host.
func (t *Tracker) Effects() (Effects, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.effects, t.effectsSet
}

// OnEffects registers a callback invoked for every feedback report. The
// callback runs on the output consumer goroutine and must not block.
func (t *Tracker) OnEffects(fn func(Effects)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEffects = fn
}
