package gadget

import (
	"errors"

	"github.com/ffpad/ffpad/ds4"
	"github.com/ffpad/ffpad/functionfs"
	"github.com/ffpad/ffpad/usb"
)

// HID class request codes.
const (
	reqGetReport     = 0x01
	reqGetIdle       = 0x02
	reqGetProtocol   = 0x03
	reqSetReport     = 0x09
	reqSetIdle       = 0x0A
	reqSetProtocol   = 0x0B
	reqGetDescriptor = 0x06
)

// wValue high byte of Get/SetReport.
const (
	reportTypeInput   = 0x01
	reportTypeOutput  = 0x02
	reportTypeFeature = 0x03
)

// bmRequestType values the dispatcher routes on.
const (
	rtStandardInterfaceIn = 0x81
	rtClassInterfaceIn    = 0xA1
	rtClassInterfaceOut   = 0x21
)

// handleSetup routes one control request. Dispatch only runs in the Active
// state; anything else, and anything the table does not cover, is stalled so
// the host sees a clean protocol rejection instead of a timeout.
func (s *Session) handleSetup(st functionfs.Setup) {
	if state := s.State(); state != Active {
		s.logger.Debug("stalling control request outside active state", "state", state.String())
		s.transport.Stall(st.DirIn())
		return
	}
	switch st.BmRequestType {
	case rtStandardInterfaceIn:
		if st.BRequest == reqGetDescriptor && uint8(st.WValue>>8) == usb.ReportDescType {
			s.reply(st, s.set.Report)
			return
		}
	case rtClassInterfaceIn:
		switch st.BRequest {
		case reqGetReport:
			s.getReport(st)
			return
		case reqGetIdle:
			s.mu.Lock()
			idle := s.idle
			s.mu.Unlock()
			s.reply(st, []byte{idle})
			return
		case reqGetProtocol:
			s.reply(st, []byte{0x01}) // report protocol
			return
		}
	case rtClassInterfaceOut:
		switch st.BRequest {
		case reqSetReport:
			s.setReport(st)
			return
		case reqSetIdle:
			s.mu.Lock()
			s.idle = uint8(st.WValue >> 8)
			s.mu.Unlock()
			s.ack(st)
			return
		case reqSetProtocol:
			s.ack(st)
			return
		}
	}
	s.logger.Debug("stalling unhandled control request",
		"bmRequestType", st.BmRequestType, "bRequest", st.BRequest, "wValue", st.WValue)
	s.transport.Stall(st.DirIn())
}

func (s *Session) getReport(st functionfs.Setup) {
	rtype := uint8(st.WValue >> 8)
	rid := uint8(st.WValue)

	switch {
	case rtype == reportTypeInput && rid == ds4.ReportIDInput:
		// A control poll must not consume a counter increment from the
		// interrupt stream.
		s.reply(st, s.tracker.CurrentReport())
	case rtype == reportTypeFeature && rid == ds4.ReportIDFeatureConf:
		s.reply(st, s.features.Encode())
	case rtype == reportTypeFeature && rid == ds4.ReportIDGetResponse:
		page, err := s.auth.ResponseReport()
		if err != nil {
			s.logger.Debug("auth response unavailable", "error", err)
			s.transport.Stall(st.DirIn())
			return
		}
		s.reply(st, page)
	case rtype == reportTypeFeature && rid == ds4.ReportIDAuthStatus:
		s.reply(st, s.auth.StatusReport())
	case rtype == reportTypeFeature && rid == ds4.ReportIDAuthPageSize:
		s.reply(st, s.auth.PageSizeReport())
	default:
		s.transport.Stall(st.DirIn())
	}
}

func (s *Session) setReport(st functionfs.Setup) {
	rtype := uint8(st.WValue >> 8)
	rid := uint8(st.WValue)

	data, err := s.transport.ReadSetupData(int(st.WLength))
	if err != nil {
		s.logger.Warn("reading control data stage failed", "error", err)
		return
	}

	switch {
	case rtype == reportTypeFeature && rid == ds4.ReportIDSetChallenge:
		if err := s.auth.SetChallenge(data); err != nil {
			if errors.Is(err, ds4.ErrPageOutOfOrder) {
				s.logger.Warn("challenge desync, resetting handshake", "error", err)
			} else {
				s.logger.Warn("rejecting challenge page", "error", err)
			}
			s.transport.Stall(st.DirIn())
			return
		}
	case rtype == reportTypeOutput && rid == ds4.ReportIDFeedback:
		if err := s.tracker.ProcessFeedback(data); err != nil {
			s.logger.Warn("rejecting feedback report", "error", err)
			s.transport.Stall(st.DirIn())
			return
		}
	default:
		s.transport.Stall(st.DirIn())
	}
}

// reply sends an IN data stage, truncated to the host's wLength.
func (s *Session) reply(st functionfs.Setup, data []byte) {
	if int(st.WLength) < len(data) {
		data = data[:st.WLength]
	}
	if err := s.transport.WriteSetupData(data); err != nil {
		s.logger.Warn("writing control reply failed", "error", err)
	}
}

// ack completes a request that moved no data.
func (s *Session) ack(st functionfs.Setup) {
	if err := s.transport.AckSetup(st.DirIn()); err != nil {
		s.logger.Debug("control status stage ack failed", "error", err)
	}
}
