package ds4

import (
	"fmt"

	"github.com/ffpad/ffpad/usb"
	"github.com/ffpad/ffpad/usb/hid"
)

// DescriptorConfig is the static identity used to build the descriptor set.
type DescriptorConfig struct {
	VID          uint16
	PID          uint16
	Manufacturer string
	Product      string
	// Turbo selects a 1ms poll interval instead of the stock 4ms.
	Turbo bool
}

// DefaultDescriptorConfig mimics a licensed third-party controller.
func DefaultDescriptorConfig() DescriptorConfig {
	return DescriptorConfig{
		VID:          DefaultVID,
		PID:          DefaultPID,
		Manufacturer: "Sony Interactive Entertainment",
		Product:      "Wireless Controller",
	}
}

// Descriptor builds the complete USB descriptor tree for the emulated
// controller. The result is deterministic for a given config.
func Descriptor(cfg DescriptorConfig) (*usb.Descriptor, error) {
	report, err := reportDescriptor()
	if err != nil {
		return nil, err
	}

	fsInterval, hsInterval := uint8(4), uint8(6)
	if cfg.Turbo {
		fsInterval, hsInterval = 1, 4
	}

	return &usb.Descriptor{
		Device: usb.DeviceDescriptor{
			BcdUSB:             0x0200,
			BMaxPacketSize0:    0x40,
			IDVendor:           cfg.VID,
			IDProduct:          cfg.PID,
			BcdDevice:          0x0100,
			IManufacturer:      0x01,
			IProduct:           0x02,
			BNumConfigurations: 0x01,
		},
		Config: usb.ConfigDescriptor{
			BConfigurationValue: 1,
			BMAttributes:        0x80, // bus powered
			BMaxPower:           250,  // 500mA
		},
		Interfaces: []usb.InterfaceConfig{
			{
				Descriptor: usb.InterfaceDescriptor{
					BNumEndpoints:   2,
					BInterfaceClass: 0x03, // HID
				},
				HID:       &usb.HIDDescriptor{BcdHID: 0x0111},
				HIDReport: report,
				Endpoints: []usb.EndpointDescriptor{
					{
						BEndpointAddress: EndpointIn, // interrupt IN
						BMAttributes:     0x03,
						WMaxPacketSize:   64,
						BInterval:        fsInterval,
						BIntervalHS:      hsInterval,
					},
					{
						BEndpointAddress: EndpointOut, // interrupt OUT
						BMAttributes:     0x03,
						WMaxPacketSize:   64,
						BInterval:        fsInterval,
						BIntervalHS:      hsInterval,
					},
				},
			},
		},
		Strings: []string{cfg.Manufacturer, cfg.Product},
	}, nil
}

func reportDescriptor() ([]byte, error) {
	r := hid.Report{
		Items: []hid.Item{
			hid.UsagePage{Page: hid.UsagePageGenericDesktop},
			hid.Usage{Usage: hid.UsageGamePad},
			hid.Collection{Kind: hid.CollectionApplication, Items: []hid.Item{
				hid.ReportID{ID: ReportIDInput},

				hid.Usage{Usage: hid.UsageX},
				hid.Usage{Usage: hid.UsageY},
				hid.Usage{Usage: hid.UsageZ},
				hid.Usage{Usage: hid.UsageRz},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 255},
				hid.ReportSize{Bits: 8},
				hid.ReportCount{Count: 4},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.Usage{Usage: hid.UsageHat},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 7},
				hid.PhysicalMaximum{Max: 315},
				hid.Unit{Unit: 0x14}, // degrees
				hid.ReportSize{Bits: 4},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs | hid.MainNullState},
				hid.Unit{Unit: 0x00},
				hid.PhysicalMaximum{Max: 0},

				hid.UsagePage{Page: hid.UsagePageButton},
				hid.UsageMinimum{Min: 0x01},
				hid.UsageMaximum{Max: 0x0E},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.ReportSize{Bits: 1},
				hid.ReportCount{Count: 14},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				// 6-bit rolling report counter
				hid.UsagePage{Page: hid.UsagePageVendor},
				hid.Usage{Usage: 0x20},
				hid.ReportSize{Bits: 6},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.UsagePage{Page: hid.UsagePageGenericDesktop},
				hid.Usage{Usage: hid.UsageRx},
				hid.Usage{Usage: hid.UsageRy},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 255},
				hid.ReportSize{Bits: 8},
				hid.ReportCount{Count: 2},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				// sensors, battery, touch frames
				hid.UsagePage{Page: hid.UsagePageVendor},
				hid.Usage{Usage: 0x21},
				hid.ReportCount{Count: 54},
				hid.ReportSize{Bits: 8},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.ReportID{ID: ReportIDFeedback},
				hid.Usage{Usage: 0x22},
				hid.ReportCount{Count: FeedbackReportSize - 1},
				hid.Output{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.ReportID{ID: ReportIDFeatureConf},
				hid.Usage{Usage: 0x23},
				hid.ReportCount{Count: FeatureConfSize - 1},
				hid.Feature{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.ReportID{ID: ReportIDSetChallenge},
				hid.Usage{Usage: 0x24},
				hid.ReportCount{Count: AuthReportSize - 1},
				hid.Feature{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.ReportID{ID: ReportIDGetResponse},
				hid.Usage{Usage: 0x25},
				hid.ReportCount{Count: AuthReportSize - 1},
				hid.Feature{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.ReportID{ID: ReportIDAuthStatus},
				hid.Usage{Usage: 0x26},
				hid.ReportCount{Count: AuthStatusSize - 1},
				hid.Feature{Flags: hid.MainData | hid.MainVar | hid.MainAbs},

				hid.ReportID{ID: ReportIDAuthPageSize},
				hid.Usage{Usage: 0x27},
				hid.ReportCount{Count: AuthPageSizeSize - 1},
				hid.Feature{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
			}},
		},
	}

	data, err := r.Bytes()
	if err != nil {
		return nil, fmt.Errorf("build report descriptor: %w", err)
	}
	return data, nil
}
