// Package console provides a line-oriented interactive shell for driving a
// controller session from a terminal: press buttons, point the hat, move
// sticks, place touches, and inspect the feedback the host sent back.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ffpad/ffpad/ds4"
	"github.com/ffpad/ffpad/sequencer"
)

// Console reads commands from in and drives the tracker and sequencer.
type Console struct {
	tracker *ds4.Tracker
	seq     *sequencer.Sequencer
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	prompt  bool
}

// New builds a console over stdin/stdout. The prompt only shows when stdin
// is a terminal, so piped scripts get clean output.
func New(tracker *ds4.Tracker, seq *sequencer.Sequencer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		tracker: tracker,
		seq:     seq,
		logger:  logger,
		in:      os.Stdin,
		out:     os.Stdout,
		prompt:  term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewWithIO builds a console over explicit streams. Used by tests.
func NewWithIO(tracker *ds4.Tracker, seq *sequencer.Sequencer, in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	c := New(tracker, seq, logger)
	c.in = in
	c.out = out
	c.prompt = false
	return c
}

// Run processes commands until EOF, "quit", or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		if c.prompt {
			fmt.Fprint(c.out, "> ")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line := <-lines:
			if quit := c.handle(line); quit {
				return nil
			}
		}
	}
}

func (c *Console) handle(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "press":
		err = c.press(args)
	case "hold":
		err = c.hold(args)
	case "release":
		err = c.release(args)
	case "dpad":
		err = c.dpad(args)
	case "stick":
		err = c.stick(args)
	case "trigger":
		err = c.trigger(args)
	case "touch":
		err = c.touch(args)
	case "touchup":
		err = c.touchUp(args)
	case "status":
		c.status()
	case "effects":
		c.effects()
	case "help", "?":
		c.help()
	case "quit", "exit":
		return true
	default:
		err = fmt.Errorf("unknown command %q (try help)", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
	return false
}

func (c *Console) press(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: press <button> [ms]")
	}
	b, ok := ds4.ButtonByName(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown button %q", args[0])
	}
	hold := 100 * time.Millisecond
	if len(args) > 1 {
		ms, err := strconv.Atoi(args[1])
		if err != nil || ms < 0 {
			return fmt.Errorf("bad duration %q", args[1])
		}
		hold = time.Duration(ms) * time.Millisecond
	}
	c.seq.Press(b, hold)
	return nil
}

func (c *Console) hold(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hold <button>")
	}
	b, ok := ds4.ButtonByName(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown button %q", args[0])
	}
	c.seq.Hold(b)
	return nil
}

func (c *Console) release(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: release <button>")
	}
	b, ok := ds4.ButtonByName(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown button %q", args[0])
	}
	c.seq.Release(b)
	return nil
}

func (c *Console) dpad(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dpad <n|ne|e|se|s|sw|w|nw|neutral> [ms]")
	}
	d, ok := ds4.DPadByName(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown direction %q", args[0])
	}
	if d == ds4.DPadNeutral {
		c.tracker.SetDPad(d)
		return nil
	}
	hold := 100 * time.Millisecond
	if len(args) > 1 {
		ms, err := strconv.Atoi(args[1])
		if err != nil || ms < 0 {
			return fmt.Errorf("bad duration %q", args[1])
		}
		hold = time.Duration(ms) * time.Millisecond
	}
	c.seq.PressDPad(d, hold)
	return nil
}

func (c *Console) stick(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: stick <ls|rs> <x 0-255> <y 0-255>")
	}
	x, errX := strconv.Atoi(args[1])
	y, errY := strconv.Atoi(args[2])
	if errX != nil || errY != nil || x < 0 || x > 255 || y < 0 || y > 255 {
		return fmt.Errorf("stick values must be 0-255")
	}
	switch strings.ToLower(args[0]) {
	case "ls", "left":
		c.tracker.Modify(func(s *ds4.State) { s.LX, s.LY = uint8(x), uint8(y) })
	case "rs", "right":
		c.tracker.Modify(func(s *ds4.State) { s.RX, s.RY = uint8(x), uint8(y) })
	default:
		return fmt.Errorf("unknown stick %q", args[0])
	}
	return nil
}

func (c *Console) trigger(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: trigger <l2|r2> <0-255>")
	}
	v, err := strconv.Atoi(args[1])
	if err != nil || v < 0 || v > 255 {
		return fmt.Errorf("trigger value must be 0-255")
	}
	switch strings.ToLower(args[0]) {
	case "l2", "left":
		c.tracker.Modify(func(s *ds4.State) { s.L2 = uint8(v) })
	case "r2", "right":
		c.tracker.Modify(func(s *ds4.State) { s.R2 = uint8(v) })
	default:
		return fmt.Errorf("unknown trigger %q", args[0])
	}
	return nil
}

func (c *Console) touch(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: touch <0|1> <x> <y>")
	}
	slot, errS := strconv.Atoi(args[0])
	x, errX := strconv.Atoi(args[1])
	y, errY := strconv.Atoi(args[2])
	if errS != nil || errX != nil || errY != nil || slot < 0 || slot > 1 || x < 0 || y < 0 {
		return fmt.Errorf("usage: touch <0|1> <x> <y>")
	}
	c.tracker.TouchDown(slot, uint16(x), uint16(y))
	return nil
}

func (c *Console) touchUp(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: touchup <0|1>")
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil || slot < 0 || slot > 1 {
		return fmt.Errorf("usage: touchup <0|1>")
	}
	c.tracker.TouchUp(slot)
	return nil
}

func (c *Console) status() {
	s := c.tracker.Snapshot()
	fmt.Fprintf(c.out, "buttons: %s\n", s.Buttons)
	fmt.Fprintf(c.out, "dpad: %d  ls: %d,%d  rs: %d,%d  l2: %d  r2: %d\n",
		s.DPad, s.LX, s.LY, s.RX, s.RY, s.L2, s.R2)
	for i, t := range s.Touch {
		if t.Active {
			fmt.Fprintf(c.out, "touch %d: id=%d %d,%d\n", i, t.ID, t.X, t.Y)
		}
	}
	fmt.Fprintf(c.out, "pending releases: %d\n", c.seq.Pending())
}

func (c *Console) effects() {
	fx, ok := c.tracker.Effects()
	if !ok {
		fmt.Fprintln(c.out, "no feedback received yet")
		return
	}
	fmt.Fprintf(c.out, "rumble: left=%d right=%d\n", fx.RumbleLeft, fx.RumbleRight)
	fmt.Fprintf(c.out, "lightbar: #%02x%02x%02x flash on=%d off=%d\n",
		fx.LEDRed, fx.LEDGreen, fx.LEDBlue, fx.FlashOn, fx.FlashOff)
}

func (c *Console) help() {
	fmt.Fprint(c.out, `commands:
  press <button> [ms]     tap a button (default 100ms)
  hold <button>           press and keep holding
  release <button>        let go of a held button
  dpad <dir> [ms]         point the hat (n ne e se s sw w nw neutral)
  stick <ls|rs> <x> <y>   set a stick position (0-255, 128 = center)
  trigger <l2|r2> <v>     set a trigger (0-255)
  touch <0|1> <x> <y>     place a touchpad contact
  touchup <0|1>           lift a contact
  status                  show current controller state
  effects                 show last rumble/lightbar feedback
  quit                    exit
`)
}
