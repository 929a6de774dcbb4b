package sequencer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffpad/ffpad/ds4"
)

func runningSequencer(t *testing.T) (*Sequencer, *ds4.Tracker) {
	t.Helper()
	tr := ds4.NewTracker()
	s := New(tr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, tr
}

func pressed(tr *ds4.Tracker, b ds4.Buttons) func() bool {
	return func() bool { return tr.Snapshot().Buttons&b != 0 }
}

func released(tr *ds4.Tracker, b ds4.Buttons) func() bool {
	return func() bool { return tr.Snapshot().Buttons&b == 0 }
}

func TestPressReleasesAfterHold(t *testing.T) {
	s, tr := runningSequencer(t)

	s.Press(ds4.ButtonCross, 30*time.Millisecond)
	assert.True(t, pressed(tr, ds4.ButtonCross)(), "pressed immediately")
	require.Eventually(t, released(tr, ds4.ButtonCross), time.Second, time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestPressEnforcesMinimumHold(t *testing.T) {
	s, tr := runningSequencer(t)

	s.Press(ds4.ButtonCircle, 0)
	assert.True(t, pressed(tr, ds4.ButtonCircle)(), "held for at least one report tick")
	require.Eventually(t, released(tr, ds4.ButtonCircle), time.Second, time.Millisecond)
}

func TestOverlappingPressExtendsHold(t *testing.T) {
	s, tr := runningSequencer(t)

	s.Press(ds4.ButtonSquare, 20*time.Millisecond)
	s.Press(ds4.ButtonSquare, 150*time.Millisecond)
	assert.Equal(t, 1, s.Pending(), "overlapping holds merge into one deadline")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, pressed(tr, ds4.ButtonSquare)(), "still held past the first deadline")
	require.Eventually(t, released(tr, ds4.ButtonSquare), time.Second, time.Millisecond)
}

func TestHoldAndRelease(t *testing.T) {
	s, tr := runningSequencer(t)

	s.Hold(ds4.ButtonL1)
	time.Sleep(30 * time.Millisecond)
	assert.True(t, pressed(tr, ds4.ButtonL1)(), "hold has no deadline")
	assert.Equal(t, 0, s.Pending())

	s.Release(ds4.ButtonL1)
	assert.True(t, released(tr, ds4.ButtonL1)())
}

func TestReleaseDropsPendingDeadline(t *testing.T) {
	s, tr := runningSequencer(t)

	s.Press(ds4.ButtonR1, time.Minute)
	require.Equal(t, 1, s.Pending())
	s.Release(ds4.ButtonR1)
	assert.True(t, released(tr, ds4.ButtonR1)())
	assert.Equal(t, 0, s.Pending())
}

func TestDPadPress(t *testing.T) {
	s, tr := runningSequencer(t)

	s.PressDPad(ds4.DPadW, 30*time.Millisecond)
	assert.Equal(t, ds4.DPadW, tr.Snapshot().DPad)
	require.Eventually(t, func() bool { return tr.Snapshot().DPad == ds4.DPadNeutral },
		time.Second, time.Millisecond)
}

func TestCancelReleasesEverything(t *testing.T) {
	s, tr := runningSequencer(t)

	s.Press(ds4.ButtonCross, time.Minute)
	s.Press(ds4.ButtonTriangle, time.Minute)
	s.PressDPad(ds4.DPadS, time.Minute)
	require.Equal(t, 3, s.Pending())

	s.Cancel()
	snap := tr.Snapshot()
	assert.Equal(t, ds4.Buttons(0), snap.Buttons)
	assert.Equal(t, ds4.DPadNeutral, snap.DPad)
	assert.Equal(t, 0, s.Pending())
}

func TestContextCancelReleasesHolds(t *testing.T) {
	tr := ds4.NewTracker()
	s := New(tr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	s.Press(ds4.ButtonPS, time.Minute)
	cancel()
	<-done
	assert.Equal(t, ds4.Buttons(0), tr.Snapshot().Buttons)
}
