// Package gadget runs a controller emulation session over a USB gadget
// transport. It owns the lifecycle state machine, dispatches control
// requests, and drives the input report and feedback loops while the host
// keeps the function enabled.
package gadget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ffpad/ffpad/ds4"
	"github.com/ffpad/ffpad/functionfs"
	"github.com/ffpad/ffpad/internal/log"
	"github.com/ffpad/ffpad/usb"
)

// Transport is the kernel-facing surface a session drives. functionfs
// provides the real one; tests substitute a fake.
type Transport interface {
	Describe(fs, hs []byte, lang uint16, strs []string) error
	ReadEvent() (functionfs.Event, error)
	ReadSetupData(n int) ([]byte, error)
	WriteSetupData(b []byte) error
	AckSetup(dirIn bool) error
	Stall(dirIn bool)
	OpenEndpoint(n int) (io.ReadWriteCloser, error)
	Close() error
}

// FFS adapts a functionfs.Function to the Transport interface.
type FFS struct {
	*functionfs.Function
}

func (f FFS) OpenEndpoint(n int) (io.ReadWriteCloser, error) {
	return f.Function.OpenEndpoint(n)
}

// Config tunes a session. Zero values select the defaults below.
type Config struct {
	// ReportInterval is the input report cadence. Default 4ms, the stock
	// full-speed poll rate.
	ReportInterval time.Duration
	// MaxWriteRetries bounds consecutive EAGAIN retries on the interrupt IN
	// endpoint before the frame is dropped. Default 8.
	MaxWriteRetries int
	// InEndpoint and OutEndpoint are the functionfs endpoint file numbers.
	// Defaults 1 (interrupt IN) and 2 (interrupt OUT).
	InEndpoint  int
	OutEndpoint int
	// Lang is the USB string descriptor language ID. Default 0x0409 (en-US).
	Lang uint16
}

func (c *Config) applyDefaults() {
	if c.ReportInterval <= 0 {
		c.ReportInterval = 4 * time.Millisecond
	}
	if c.MaxWriteRetries <= 0 {
		c.MaxWriteRetries = 8
	}
	if c.InEndpoint == 0 {
		c.InEndpoint = 1
	}
	if c.OutEndpoint == 0 {
		c.OutEndpoint = 2
	}
	if c.Lang == 0 {
		c.Lang = 0x0409
	}
}

// Session binds a controller model to a gadget transport.
type Session struct {
	cfg       Config
	transport Transport
	set       *usb.DescriptorSet
	strings   []string
	tracker   *ds4.Tracker
	auth      *ds4.Auth
	features  ds4.FeatureConf
	logger    *slog.Logger
	raw       log.RawLogger

	mu    sync.Mutex
	state State
	idle  uint8

	closeOnce sync.Once

	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
	epIn       io.ReadWriteCloser
	epOut      io.ReadWriteCloser
}

// NewSession builds the descriptor set and wires the controller model to the
// transport. Run starts the session.
func NewSession(t Transport, desc *usb.Descriptor, tracker *ds4.Tracker, auth *ds4.Auth, cfg Config, logger *slog.Logger, rawLogger log.RawLogger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	cfg.applyDefaults()

	set, err := desc.Build()
	if err != nil {
		return nil, fmt.Errorf("build descriptors: %w", err)
	}
	return &Session{
		cfg:       cfg,
		transport: t,
		set:       set,
		strings:   desc.Strings,
		tracker:   tracker,
		auth:      auth,
		features:  ds4.DefaultFeatureConf(),
		logger:    logger,
		raw:       rawLogger,
		state:     Unbound,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == next {
		return nil
	}
	if !s.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, s.state, next)
	}
	s.logger.Debug("session state change", "from", s.state.String(), "to", next.String())
	s.state = next
	return nil
}

// Run pushes the descriptors and services kernel events until the context is
// cancelled, the host unbinds the function, or the transport fails. A busy
// functionfs instance surfaces as ErrResourceBusy.
func (s *Session) Run(ctx context.Context) error {
	if err := s.transport.Describe(s.set.Function, s.set.FunctionHS, s.cfg.Lang, s.strings); err != nil {
		s.fail()
		return s.classify(err)
	}

	// Closing the transport is the only way to unblock a pending event read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.close()
		case <-done:
		}
	}()

	defer s.teardown()

	for {
		ev, err := s.transport.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.fail()
			return s.classify(err)
		}
		if err := s.handleEvent(ev); err != nil {
			s.fail()
			return err
		}
		if s.State() == Unbound {
			// Host unbound the function; the session is over.
			return nil
		}
	}
}

func (s *Session) handleEvent(ev functionfs.Event) error {
	s.logger.Debug("gadget event", "type", ev.Type.String())
	switch ev.Type {
	case functionfs.EventBind:
		return s.setState(Bound)
	case functionfs.EventUnbind:
		// The kernel may unbind without a preceding disable; drain through
		// Disabling so the loops stop before the state settles.
		if st := s.State(); st == Active || st == Enabled {
			if err := s.setState(Disabling); err != nil {
				return err
			}
			s.stopLoops()
			if err := s.setState(Bound); err != nil {
				return err
			}
		}
		return s.setState(Unbound)
	case functionfs.EventEnable:
		if err := s.setState(Enabled); err != nil {
			return err
		}
		return s.startLoops()
	case functionfs.EventDisable:
		if s.State() == Active || s.State() == Enabled {
			if err := s.setState(Disabling); err != nil {
				return err
			}
			s.stopLoops()
			return s.setState(Bound)
		}
		return nil
	case functionfs.EventSetup:
		s.handleSetup(ev.Setup)
		return nil
	case functionfs.EventSuspend, functionfs.EventResume:
		// Bus power events; report cadence is left untouched.
		return nil
	}
	s.logger.Warn("unknown gadget event", "type", uint8(ev.Type))
	return nil
}

// teardown drains the loops and closes the transport on the way out of Run.
func (s *Session) teardown() {
	if st := s.State(); st == Active || st == Enabled {
		_ = s.setState(Disabling)
		s.stopLoops()
		_ = s.setState(Bound)
	}
	if s.State() == Bound {
		_ = s.setState(Unbound)
	}
	s.close()
}

func (s *Session) fail() {
	s.mu.Lock()
	if s.state != Errored {
		s.logger.Debug("session state change", "from", s.state.String(), "to", Errored.String())
		s.state = Errored
	}
	s.mu.Unlock()
	s.stopLoops()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		_ = s.transport.Close()
	})
}

func (s *Session) classify(err error) error {
	switch {
	case errors.Is(err, functionfs.ErrBusy):
		return fmt.Errorf("%w: %w", ErrResourceBusy, err)
	case errors.Is(err, functionfs.ErrDisconnected):
		return fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return err
}
