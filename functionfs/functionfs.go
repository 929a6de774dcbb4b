// Package functionfs binds to the Linux FunctionFS gadget interface.
//
// A Function wraps one mounted functionfs instance: descriptors and strings
// are pushed through ep0, lifecycle events and control requests are read back
// from it, and data endpoints open as plain files once the host enables the
// configuration.
package functionfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// usb_functionfs_descs_head_v2 / usb_functionfs_strings_head constants.
const (
	descriptorsMagicV2 = 3
	stringsMagic       = 2

	flagHasFSDesc = 1 << 0
	flagHasHSDesc = 1 << 1
)

// Classified I/O failures. ErrBusy means another function already claimed the
// instance; ErrDisconnected means the host side went away mid-session.
var (
	ErrBusy         = errors.New("functionfs: endpoint busy")
	ErrDisconnected = errors.New("functionfs: host disconnected")
)

// classify maps raw errnos onto the package sentinels while keeping the
// original error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%s: %w: %w", op, ErrBusy, err)
	case errors.Is(err, unix.ESHUTDOWN), errors.Is(err, unix.ENODEV):
		return fmt.Errorf("%s: %w: %w", op, ErrDisconnected, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Function is an open functionfs instance rooted at a mount directory.
type Function struct {
	dir    string
	ep0    *os.File
	logger *slog.Logger

	pending []Event
	evbuf   [4 * EventSize]byte
}

// Open opens the ep0 control file under dir. The instance stays inert until
// Describe pushes the descriptor blobs.
func Open(dir string, logger *slog.Logger) (*Function, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ep0, err := os.OpenFile(filepath.Join(dir, "ep0"), os.O_RDWR, 0)
	if err != nil {
		return nil, classify("open ep0", err)
	}
	return &Function{dir: dir, ep0: ep0, logger: logger}, nil
}

// Close releases ep0. Any blocked ReadEvent call returns with an error.
func (f *Function) Close() error {
	return f.ep0.Close()
}

// Describe writes the v2 descriptor blob followed by the strings blob. The
// kernel binds the function to the UDC once both writes land, after which
// events start flowing.
func (f *Function) Describe(fs, hs []byte, lang uint16, strs []string) error {
	if err := f.writeDescriptors(fs, hs); err != nil {
		return err
	}
	return f.writeStrings(lang, strs)
}

func (f *Function) writeDescriptors(fs, hs []byte) error {
	var flags uint32
	var body bytes.Buffer

	var counts []uint32
	if len(fs) > 0 {
		flags |= flagHasFSDesc
		counts = append(counts, countDescriptors(fs))
	}
	if len(hs) > 0 {
		flags |= flagHasHSDesc
		counts = append(counts, countDescriptors(hs))
	}
	for _, c := range counts {
		_ = binary.Write(&body, binary.LittleEndian, c)
	}
	body.Write(fs)
	body.Write(hs)

	var blob bytes.Buffer
	_ = binary.Write(&blob, binary.LittleEndian, uint32(descriptorsMagicV2))
	_ = binary.Write(&blob, binary.LittleEndian, uint32(12+body.Len()))
	_ = binary.Write(&blob, binary.LittleEndian, flags)
	blob.Write(body.Bytes())

	f.logger.Debug("writing descriptor blob", "bytes", blob.Len(), "flags", flags)
	if _, err := f.ep0.Write(blob.Bytes()); err != nil {
		return classify("write descriptors", err)
	}
	return nil
}

// countDescriptors walks a concatenated sequence of length-prefixed USB
// descriptors.
func countDescriptors(b []byte) uint32 {
	var n uint32
	for len(b) > 0 {
		l := int(b[0])
		if l == 0 || l > len(b) {
			break
		}
		b = b[l:]
		n++
	}
	return n
}

// writeStrings pushes the single-language string table. FunctionFS takes raw
// NUL-terminated UTF-8; the kernel handles UTF-16 conversion on the wire.
func (f *Function) writeStrings(lang uint16, strs []string) error {
	var body bytes.Buffer
	_ = binary.Write(&body, binary.LittleEndian, lang)
	for _, s := range strs {
		body.WriteString(s)
		body.WriteByte(0)
	}

	var blob bytes.Buffer
	_ = binary.Write(&blob, binary.LittleEndian, uint32(stringsMagic))
	_ = binary.Write(&blob, binary.LittleEndian, uint32(16+body.Len()))
	_ = binary.Write(&blob, binary.LittleEndian, uint32(len(strs)))
	_ = binary.Write(&blob, binary.LittleEndian, uint32(1)) // one language
	blob.Write(body.Bytes())

	if _, err := f.ep0.Write(blob.Bytes()); err != nil {
		return classify("write strings", err)
	}
	return nil
}

// ReadEvent blocks until the kernel delivers the next lifecycle event. The
// kernel may batch several events into one read; extras are queued and
// returned by subsequent calls without touching the file.
func (f *Function) ReadEvent() (Event, error) {
	if len(f.pending) > 0 {
		ev := f.pending[0]
		f.pending = f.pending[1:]
		return ev, nil
	}

	n, err := f.ep0.Read(f.evbuf[:])
	if err != nil {
		return Event{}, classify("read event", err)
	}
	for off := 0; off+EventSize <= n; off += EventSize {
		ev, err := DecodeEvent(f.evbuf[off : off+EventSize])
		if err != nil {
			return Event{}, err
		}
		f.pending = append(f.pending, ev)
	}
	if len(f.pending) == 0 {
		return Event{}, fmt.Errorf("functionfs: short event read: %d bytes", n)
	}
	ev := f.pending[0]
	f.pending = f.pending[1:]
	return ev, nil
}

// ReadSetupData reads the data stage of a host-to-device control request.
func (f *Function) ReadSetupData(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := f.ep0.Read(buf)
	if err != nil {
		return nil, classify("read setup data", err)
	}
	return buf[:got], nil
}

// WriteSetupData sends the data stage of a device-to-host control request.
// The caller must not send more than the request's wLength.
func (f *Function) WriteSetupData(b []byte) error {
	if _, err := f.ep0.Write(b); err != nil {
		return classify("write setup data", err)
	}
	return nil
}

// AckSetup completes the status stage of a request with no data to move:
// a zero-length I/O in the data-stage direction.
func (f *Function) AckSetup(dirIn bool) error {
	var err error
	if dirIn {
		_, err = f.ep0.Write(nil)
	} else {
		_, err = f.ep0.Read(nil)
	}
	return classify("ack setup", err)
}

// Stall rejects the pending control request by performing a zero-length I/O
// against the data-stage direction. The kernel turns that into a protocol
// stall on ep0; the resulting errno is the expected outcome, not a failure.
func (f *Function) Stall(dirIn bool) {
	if dirIn {
		_, _ = f.ep0.Read(nil)
	} else {
		_, _ = f.ep0.Write(nil)
	}
}

// OpenEndpoint opens the numbered data endpoint file (ep1, ep2, ...).
// Endpoints only exist between the enable and disable events.
func (f *Function) OpenEndpoint(n int) (*os.File, error) {
	ep, err := os.OpenFile(filepath.Join(f.dir, fmt.Sprintf("ep%d", n)), os.O_RDWR, 0)
	if err != nil {
		return nil, classify(fmt.Sprintf("open ep%d", n), err)
	}
	return ep, nil
}
