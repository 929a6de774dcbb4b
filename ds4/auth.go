package ds4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"sync"
)

// Auth protocol errors. Page-ordering violations are protocol desyncs: the
// session resets and the offending request is stalled, but the gadget
// session keeps running.
var (
	ErrPageOutOfOrder = errors.New("ds4: challenge page out of order")
	ErrBadAuthReport  = errors.New("ds4: malformed auth report")
	ErrNotReady       = errors.New("ds4: response not ready")
	ErrNoMoreData     = errors.New("ds4: no more response data")
	ErrSigningFailed  = errors.New("ds4: challenge signing failed")
)

// AuthConfig is the chunking and status-code convention of the handshake.
// The numbers are protocol constants observed in captures, kept configurable
// so they can be validated against a reference capture rather than baked in.
type AuthConfig struct {
	PageSize      int // payload bytes carried per auth report page
	ChallengeSize int // total nonce bytes the host sends
	ResponseSize  int // total response bytes the host reads back

	StatusIdle    uint8
	StatusPending uint8
	StatusReady   uint8
	StatusError   uint8
}

// DefaultAuthConfig matches the exchange as licensed controllers speak it:
// 56-byte pages, 256-byte challenge, 1040-byte response.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		PageSize:      AuthReportDataSize,
		ChallengeSize: 0x100,
		ResponseSize:  ResponseSize,
		StatusIdle:    0x10,
		StatusPending: 0x01,
		StatusReady:   0x00,
		StatusError:   0xFF,
	}
}

func (c AuthConfig) validate() error {
	if c.PageSize < 1 || c.PageSize > AuthReportDataSize {
		return fmt.Errorf("%w: page size %d", ErrBadAuthReport, c.PageSize)
	}
	if c.ChallengeSize < 1 || c.ResponseSize < 1 {
		return fmt.Errorf("%w: empty challenge or response", ErrBadAuthReport)
	}
	return nil
}

func (c AuthConfig) challengePages() int {
	return (c.ChallengeSize + c.PageSize - 1) / c.PageSize
}

func (c AuthConfig) responsePages() int {
	return (c.ResponseSize + c.PageSize - 1) / c.PageSize
}

// AuthPhase is the handshake state. Transitions are monotonic within one
// challenge; the only way back is a reset (new challenge, desync, or
// completion).
type AuthPhase int

const (
	AuthIdle AuthPhase = iota
	AuthCollecting
	AuthSigning
	AuthReady
	AuthComplete
	AuthFailed
)

func (p AuthPhase) String() string {
	switch p {
	case AuthIdle:
		return "idle"
	case AuthCollecting:
		return "collecting"
	case AuthSigning:
		return "signing"
	case AuthReady:
		return "ready"
	case AuthComplete:
		return "complete"
	case AuthFailed:
		return "failed"
	}
	return "unknown"
}

// Auth is the challenge/response engine. The host writes the nonce across
// several 0xF0 pages, polls 0xF2 until the signature is ready, then reads
// the response back across 0xF1 pages. Signing runs on its own goroutine so
// control traffic stays responsive.
type Auth struct {
	cfg    AuthConfig
	signer Signer
	logger *slog.Logger

	mu       sync.Mutex
	phase    AuthPhase
	seq      uint8
	reqPage  int
	respPage int
	nonce    []byte
	response []byte
}

// NewAuth creates an authentication engine over the given signing
// capability.
func NewAuth(signer Signer, cfg AuthConfig, logger *slog.Logger) (*Auth, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{cfg: cfg, signer: signer, logger: logger}, nil
}

// Phase returns the current handshake phase.
func (a *Auth) Phase() AuthPhase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Reset discards any partial handshake state.
func (a *Auth) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

func (a *Auth) reset() {
	a.phase = AuthIdle
	a.reqPage = 0
	a.respPage = 0
	a.nonce = nil
	a.response = nil
}

// SetChallenge consumes one 0xF0 page. Page 0 always begins a fresh
// handshake; any out-of-order, duplicate, or mistyped page resets the
// session and reports a desync for the dispatcher to stall.
func (a *Auth) SetChallenge(report []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(report) != AuthReportSize {
		a.reset()
		return fmt.Errorf("%w: %d bytes", ErrBadAuthReport, len(report))
	}
	if report[0] != ReportIDSetChallenge {
		a.reset()
		return fmt.Errorf("%w: report ID 0x%02x", ErrBadAuthReport, report[0])
	}
	if !checkCRC(report) {
		// Hosts have been observed sending garbage trailers; log and accept,
		// matching reference captures.
		a.logger.Warn("challenge page has invalid CRC32")
	}

	seq := report[1]
	page := int(report[2])

	if page == 0 {
		a.reset()
		a.phase = AuthCollecting
		a.seq = seq
	} else {
		if a.phase != AuthCollecting || page != a.reqPage {
			a.reset()
			return fmt.Errorf("%w: got page %d", ErrPageOutOfOrder, page)
		}
		if seq != a.seq {
			a.reset()
			return fmt.Errorf("%w: sequence changed mid-challenge", ErrPageOutOfOrder)
		}
	}

	remaining := a.cfg.ChallengeSize - page*a.cfg.PageSize
	valid := min(remaining, a.cfg.PageSize)
	a.nonce = append(a.nonce, report[4:4+valid]...)
	a.reqPage = page + 1

	if a.reqPage == a.cfg.challengePages() {
		a.phase = AuthSigning
		nonce := append([]byte(nil), a.nonce...)
		go a.sign(nonce)
	}
	return nil
}

// sign runs off the control path; the dispatcher keeps answering status
// polls with StatusPending meanwhile.
func (a *Auth) sign(nonce []byte) {
	resp, err := a.signer.SignChallenge(nonce)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != AuthSigning {
		// Session was reset while signing; drop the result.
		return
	}
	if err != nil {
		a.logger.Error("challenge signing failed", "error", err)
		a.phase = AuthFailed
		return
	}
	if len(resp) != a.cfg.ResponseSize {
		a.logger.Error("signer returned unexpected response size",
			"got", len(resp), "want", a.cfg.ResponseSize)
		a.phase = AuthFailed
		return
	}
	a.response = resp
	a.phase = AuthReady
}

// StatusReport builds the 16-byte 0xF2 status report.
func (a *Auth) StatusReport() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	var status uint8
	switch a.phase {
	case AuthSigning:
		status = a.cfg.StatusPending
	case AuthReady, AuthComplete:
		status = a.cfg.StatusReady
	case AuthFailed:
		status = a.cfg.StatusError
	default:
		status = a.cfg.StatusIdle
	}

	b := make([]byte, AuthStatusSize)
	b[0] = ReportIDAuthStatus
	b[1] = a.seq
	b[2] = status
	appendCRC(b)
	return b
}

// PageSizeReport builds the 8-byte 0xF3 chunking advertisement.
func (a *Auth) PageSizeReport() []byte {
	b := make([]byte, AuthPageSizeSize)
	b[0] = ReportIDAuthPageSize
	b[2] = uint8(a.cfg.PageSize)
	b[3] = uint8(a.cfg.PageSize)
	return b
}

// ResponseReport serves the next 0xF1 page. The final page completes the
// handshake; reading past it reports ErrNoMoreData. A poll during signing
// reports ErrNotReady so the host retries after checking status.
func (a *Auth) ResponseReport() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.phase {
	case AuthSigning:
		return nil, ErrNotReady
	case AuthFailed:
		return nil, ErrSigningFailed
	case AuthComplete:
		return nil, ErrNoMoreData
	case AuthReady:
	default:
		return nil, ErrNotReady
	}

	b := make([]byte, AuthReportSize)
	b[0] = ReportIDGetResponse
	b[1] = a.seq
	b[2] = uint8(a.respPage)

	start := a.respPage * a.cfg.PageSize
	end := min(start+a.cfg.PageSize, a.cfg.ResponseSize)
	copy(b[4:], a.response[start:end])
	appendCRC(b)

	if a.respPage == a.cfg.responsePages()-1 {
		a.phase = AuthComplete
	} else {
		a.respPage++
	}
	return b, nil
}

// FinalPage reports the index of the last response page for the configured
// geometry.
func (a *Auth) FinalPage() int {
	return a.cfg.responsePages() - 1
}

func checkCRC(report []byte) bool {
	n := len(report) - 4
	want := binary.LittleEndian.Uint32(report[n:])
	return crc32.ChecksumIEEE(report[:n]) == want
}

func appendCRC(report []byte) {
	n := len(report) - 4
	binary.LittleEndian.PutUint32(report[n:], crc32.ChecksumIEEE(report[:n]))
}
