package gadget

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ffpad/ffpad/ds4"
	"github.com/ffpad/ffpad/functionfs"
)

// startLoops opens the data endpoints and spins up the input report loop and
// the feedback consumer. Called from the event loop on enable. The session
// stays Enabled until the input loop completes its first report cycle.
func (s *Session) startLoops() error {
	epIn, err := s.transport.OpenEndpoint(s.cfg.InEndpoint)
	if err != nil {
		return s.classify(err)
	}
	epOut, err := s.transport.OpenEndpoint(s.cfg.OutEndpoint)
	if err != nil {
		_ = epIn.Close()
		return s.classify(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.epIn, s.epOut = epIn, epOut
	s.loopCancel = cancel
	s.mu.Unlock()

	s.loopWG.Add(2)
	go s.inputLoop(ctx, epIn)
	go s.feedbackLoop(ctx, epOut)

	return nil
}

// stopLoops cancels the loop context, closes the endpoints to unblock any
// pending I/O, and waits for both goroutines to drain. Safe to call when no
// loops are running.
func (s *Session) stopLoops() {
	s.mu.Lock()
	cancel := s.loopCancel
	epIn, epOut := s.epIn, s.epOut
	s.loopCancel = nil
	s.epIn, s.epOut = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if epIn != nil {
		_ = epIn.Close()
	}
	if epOut != nil {
		_ = epOut.Close()
	}
	s.loopWG.Wait()
}

// inputLoop pushes one input report per tick onto the interrupt IN endpoint.
// The first completed cycle moves the session from Enabled to Active. A full
// host-side queue (EAGAIN) gets a bounded retry with a short backoff; past
// the bound the frame is dropped so state never goes stale. Disconnect
// errors end the loop; the authoritative teardown still comes from the ep0
// disable event.
func (s *Session) inputLoop(ctx context.Context, ep io.Writer) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.cfg.ReportInterval)
	defer ticker.Stop()

	entered := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame := s.tracker.NextReport()
		s.raw.Log(false, frame)
		if err := s.writeFrame(ctx, ep, frame); err != nil {
			if ctx.Err() == nil {
				s.logger.Debug("input report loop ending", "error", err)
			}
			return
		}
		if !entered {
			entered = true
			if err := s.setState(Active); err != nil {
				// A disable raced the first cycle; the loop context ends next.
				s.logger.Debug("not entering active state", "error", err)
			}
		}
	}
}

func (s *Session) writeFrame(ctx context.Context, ep io.Writer, frame []byte) error {
	for attempt := 0; ; attempt++ {
		_, err := ep.Write(frame)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EAGAIN) {
			return err
		}
		if attempt >= s.cfg.MaxWriteRetries {
			s.logger.Debug("dropping input frame, endpoint queue full")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReportInterval / 4):
		}
	}
}

// feedbackLoop consumes host output reports from the interrupt OUT endpoint.
// Each report updates the tracked effects state (rumble, lightbar, flash).
func (s *Session) feedbackLoop(ctx context.Context, ep io.Reader) {
	defer s.loopWG.Done()

	buf := make([]byte, ds4.InputReportSize)
	for {
		n, err := ep.Read(buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, functionfs.ErrDisconnected) {
				s.logger.Debug("feedback loop ending", "error", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		s.raw.Log(true, buf[:n])
		if err := s.tracker.ProcessFeedback(buf[:n]); err != nil {
			s.logger.Warn("discarding malformed feedback report", "error", err)
		}
	}
}
