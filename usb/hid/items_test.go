package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemEncoding(t *testing.T) {
	cases := []struct {
		name string
		item Item
		want []byte
	}{
		{"usage page", UsagePage{Page: UsagePageGenericDesktop}, []byte{0x05, 0x01}},
		{"vendor usage page", UsagePage{Page: UsagePageVendor}, []byte{0x06, 0x00, 0xFF}},
		{"usage", Usage{Usage: UsageGamePad}, []byte{0x09, 0x05}},
		{"logical min", LogicalMinimum{Min: 0}, []byte{0x15, 0x00}},
		{"logical max byte", LogicalMaximum{Max: 255}, []byte{0x26, 0xFF, 0x00}},
		{"logical max short", LogicalMaximum{Max: 127}, []byte{0x25, 0x7F}},
		{"negative min", LogicalMinimum{Min: -128}, []byte{0x15, 0x80}},
		{"physical max", PhysicalMaximum{Max: 315}, []byte{0x46, 0x3B, 0x01}},
		{"unit", Unit{Unit: 0x14}, []byte{0x65, 0x14}},
		{"report size", ReportSize{Bits: 8}, []byte{0x75, 0x08}},
		{"report id", ReportID{ID: 0x01}, []byte{0x85, 0x01}},
		{"report count", ReportCount{Count: 14}, []byte{0x95, 0x0E}},
		{"usage minimum", UsageMinimum{Min: 1}, []byte{0x19, 0x01}},
		{"usage maximum", UsageMaximum{Max: 14}, []byte{0x29, 0x0E}},
		{"input data var abs", Input{Flags: MainData | MainVar | MainAbs}, []byte{0x81, 0x02}},
		{"input with null state", Input{Flags: MainData | MainVar | MainAbs | MainNullState}, []byte{0x81, 0x42}},
		{"output", Output{Flags: MainData | MainVar | MainAbs}, []byte{0x91, 0x02}},
		{"feature", Feature{Flags: MainData | MainVar | MainAbs}, []byte{0xB1, 0x02}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Report{Items: []Item{tc.item}}.Bytes()
			require.NoError(t, err)
			assert.Equal(t, Data(tc.want), got)
		})
	}
}

func TestCollectionWrapsChildren(t *testing.T) {
	got, err := Report{Items: []Item{
		UsagePage{Page: UsagePageGenericDesktop},
		Usage{Usage: UsageGamePad},
		Collection{Kind: CollectionApplication, Items: []Item{
			ReportID{ID: 1},
		}},
	}}.Bytes()
	require.NoError(t, err)

	want := Data{
		0x05, 0x01, // usage page
		0x09, 0x05, // usage
		0xA1, 0x01, // collection (application)
		0x85, 0x01, // report id
		0xC0, // end collection
	}
	assert.Equal(t, want, got)
}

func TestNestedCollections(t *testing.T) {
	got, err := Report{Items: []Item{
		Collection{Kind: CollectionApplication, Items: []Item{
			Collection{Kind: CollectionPhysical, Items: []Item{}},
		}},
	}}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, Data{0xA1, 0x01, 0xA1, 0x00, 0xC0, 0xC0}, got)
}

func TestEncodeErrors(t *testing.T) {
	_, err := Report{Items: []Item{nil}}.Bytes()
	assert.Error(t, err)

	_, err = Report{Items: []Item{Collection{Kind: CollectionApplication, Items: []Item{nil}}}}.Bytes()
	assert.Error(t, err)

	_, err = Report{Items: []Item{AnyItem{Type: ItemTypeLocal, Tag: 0x0, Data: Data{1, 2, 3}}}}.Bytes()
	assert.Error(t, err, "3-byte short item payload is invalid")
}

func TestAnyItem(t *testing.T) {
	got, err := Report{Items: []Item{AnyItem{Type: ItemTypeGlobal, Tag: 0xA, Data: Data{0x02}}}}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, Data{0xA5, 0x02}, got)
}
