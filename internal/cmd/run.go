package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ffpad/ffpad/console"
	"github.com/ffpad/ffpad/ds4"
	"github.com/ffpad/ffpad/functionfs"
	"github.com/ffpad/ffpad/gadget"
	"github.com/ffpad/ffpad/internal/log"
	"github.com/ffpad/ffpad/sequencer"
)

// Run starts a controller gadget session over a mounted functionfs instance.
type Run struct {
	FFSMount       string        `help:"FunctionFS mount point" default:"/dev/ffs-ffpad" env:"FFPAD_FFS_MOUNT"`
	KeyFile        string        `help:"Controller key bundle (0x590 bytes); without it authentication reports failure" env:"FFPAD_KEY_FILE"`
	ReportInterval time.Duration `help:"Input report cadence" default:"4ms" env:"FFPAD_REPORT_INTERVAL"`
	Turbo          bool          `help:"Advertise a 1ms poll interval to the host"`
	VID            uint16        `help:"USB vendor ID" default:"1356"`
	PID            uint16        `help:"USB product ID" default:"1476"`
	Manufacturer   string        `help:"Manufacturer string" default:"Sony Interactive Entertainment"`
	Product        string        `help:"Product string" default:"Wireless Controller"`
	Interactive    bool          `help:"Start the interactive console on stdin" default:"true" negatable:""`
}

// Run is called by kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger, rawLogger)
}

// Start wires the controller model to the kernel and runs until the context
// ends or the session fails.
func (r *Run) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	signer, err := r.loadSigner(logger)
	if err != nil {
		return err
	}

	tracker := ds4.NewTracker()
	auth, err := ds4.NewAuth(signer, ds4.DefaultAuthConfig(), logger)
	if err != nil {
		return err
	}

	desc, err := ds4.Descriptor(ds4.DescriptorConfig{
		VID:          r.VID,
		PID:          r.PID,
		Manufacturer: r.Manufacturer,
		Product:      r.Product,
		Turbo:        r.Turbo,
	})
	if err != nil {
		return fmt.Errorf("build descriptors: %w", err)
	}

	fn, err := functionfs.Open(r.FFSMount, logger)
	if err != nil {
		if errors.Is(err, functionfs.ErrBusy) {
			return fmt.Errorf("%w: %w", gadget.ErrResourceBusy, err)
		}
		return err
	}

	session, err := gadget.NewSession(gadget.FFS{Function: fn}, desc, tracker, auth,
		gadget.Config{ReportInterval: r.ReportInterval}, logger, rawLogger)
	if err != nil {
		_ = fn.Close()
		return err
	}

	seq := sequencer.New(tracker, logger)
	tracker.OnEffects(func(fx ds4.Effects) {
		logger.Debug("host feedback",
			"rumbleLeft", fx.RumbleLeft, "rumbleRight", fx.RumbleRight,
			"led", fmt.Sprintf("#%02x%02x%02x", fx.LEDRed, fx.LEDGreen, fx.LEDBlue))
	})

	logger.Info("Starting controller gadget", "mount", r.FFSMount,
		"vid", fmt.Sprintf("%04x", r.VID), "pid", fmt.Sprintf("%04x", r.PID))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		seq.Run(runCtx)
	}()

	sessionErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionErr <- session.Run(runCtx)
	}()

	consoleDone := make(chan error, 1)
	if r.Interactive {
		go func() {
			consoleDone <- console.New(tracker, seq, logger).Run(runCtx)
		}()
	}

	var result error
	select {
	case err := <-sessionErr:
		result = err
	case err := <-consoleDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("console exited with error", "error", err)
		}
		cancel()
		result = <-sessionErr
	}
	cancel()
	wg.Wait()

	if errors.Is(result, context.Canceled) {
		logger.Info("Controller gadget stopped")
		return nil
	}
	if result != nil {
		return result
	}
	logger.Info("Controller gadget stopped")
	return nil
}

// loadSigner loads key material, or falls back to a signer that fails every
// challenge so the rest of the gadget still works without a key bundle.
func (r *Run) loadSigner(logger *slog.Logger) (ds4.Signer, error) {
	if r.KeyFile == "" {
		logger.Warn("no key bundle configured, authentication challenges will fail")
		return noKeySigner{}, nil
	}
	f, err := os.Open(r.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("open key bundle: %w", err)
	}
	defer f.Close()

	key, err := ds4.LoadKey(f)
	if err != nil {
		return nil, fmt.Errorf("load key bundle %s: %w", r.KeyFile, err)
	}
	logger.Info("Loaded controller key", "fingerprint", key.Fingerprint())
	return key, nil
}

type noKeySigner struct{}

func (noKeySigner) SignChallenge([]byte) ([]byte, error) {
	return nil, errors.New("no key material available")
}
