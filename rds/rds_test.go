package rds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPI = 0x83D2

// ps0A builds a group 0A quadruple carrying one PS name segment.
func ps0A(seg int, chars string, afHigh, afLow byte) (a, b, c, d uint16) {
	b = 0<<12 | uint16(VersionA)<<11 | uint16(seg&0x03)
	c = uint16(afHigh)<<8 | uint16(afLow)
	d = uint16(chars[0])<<8 | uint16(chars[1])
	return testPI, b, c, d
}

// rt2A builds a group 2A quadruple carrying one 4-character radiotext slot.
func rt2A(flag bool, slot int, chars string) (a, b, c, d uint16) {
	b = 2<<12 | uint16(VersionA)<<11 | uint16(slot&0x0f)
	if flag {
		b |= 0x0010
	}
	c = uint16(chars[0])<<8 | uint16(chars[1])
	d = uint16(chars[2])<<8 | uint16(chars[3])
	return testPI, b, c, d
}

// rt2B builds a group 2B quadruple carrying one 2-character radiotext slot.
func rt2B(flag bool, slot int, chars string) (a, b, c, d uint16) {
	b = 2<<12 | uint16(VersionB)<<11 | uint16(slot&0x0f)
	if flag {
		b |= 0x0010
	}
	d = uint16(chars[0])<<8 | uint16(chars[1])
	return testPI, b, testPI, d
}

func TestStationNameAssembly(t *testing.T) {
	dec := NewDecoder()

	// segments arrive out of order and repeat; the name is only reported
	// once all four have been seen
	segments := map[int]string{0: "KQ", 1: "ED", 2: " F", 3: "M "}
	for _, seg := range []int{2, 0, 3, 0, 2} {
		res := dec.Decode(ps0A(seg, segments[seg], 0, 0))
		assert.Empty(t, res.StationName)
		assert.Empty(t, dec.Info().StationName)
	}

	res := dec.Decode(ps0A(1, segments[1], 0, 0))
	assert.Equal(t, "KQED FM", res.StationName)
	assert.Equal(t, "KQED FM", dec.Info().StationName)
	assert.Equal(t, "83D2", res.PICode())
	assert.Equal(t, "83D2", dec.Info().PICode())
}

func TestStationNameControlCharacters(t *testing.T) {
	dec := NewDecoder()
	dec.Decode(ps0A(0, "R\x07", 0, 0))
	dec.Decode(ps0A(1, "AD", 0, 0))
	dec.Decode(ps0A(2, "IO", 0, 0))
	res := dec.Decode(ps0A(3, "\x001", 0, 0))

	// 0x07 and 0x00 must surface as spaces, never as control characters
	assert.Equal(t, "R ADIO 1", res.StationName)
	for _, ch := range dec.Info().StationName {
		assert.GreaterOrEqual(t, ch, ' ')
	}
}

func TestBasicFlags(t *testing.T) {
	dec := NewDecoder()
	b := uint16(0)<<12 | uint16(VersionB)<<11 | 0x0400 | uint16(10)<<5 | 0x0010 | 0x0008 | 2
	res := dec.Decode(testPI, b, testPI, uint16('A')<<8|uint16('B'))

	require.NotNil(t, res.Basic)
	assert.Equal(t, uint8(10), res.Basic.ProgramType)
	assert.True(t, res.Basic.TrafficProgram)
	assert.True(t, res.Basic.TrafficAnnouncement)
	assert.True(t, res.Basic.Music)
	assert.Equal(t, 2, res.Basic.Segment)
	assert.Equal(t, "AB", res.Basic.Chars)
	assert.Nil(t, res.Basic.AltFrequencies, "0B carries no AF codes")

	info := dec.Info()
	assert.Equal(t, "Pop Music", info.ProgramTypeName())
	assert.True(t, info.TrafficProgram)
	assert.True(t, info.TrafficAnnouncement)
	assert.True(t, info.Music)
}

func TestAlternativeFrequencies(t *testing.T) {
	tt := []struct {
		desc     string
		afHigh   byte
		afLow    byte
		expected []float64
	}{
		{
			desc:     "band edges",
			afHigh:   1,
			afLow:    204,
			expected: []float64{87.5, 107.8},
		},
		{
			desc:     "not to be used and filler are dropped",
			afHigh:   0,
			afLow:    205,
			expected: nil,
		},
		{
			desc:     "count code and valid entry",
			afHigh:   255,
			afLow:    100,
			expected: []float64{97.4},
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			dec := NewDecoder()
			res := dec.Decode(ps0A(0, "AB", tc.afHigh, tc.afLow))
			require.NotNil(t, res.Basic)
			require.Len(t, res.Basic.AltFrequencies, len(tc.expected))
			for i, want := range tc.expected {
				assert.InDelta(t, want, res.Basic.AltFrequencies[i], 0.001)
			}
		})
	}
}

func TestRadioText2A(t *testing.T) {
	dec := NewDecoder()
	message := "Now playing: Bohemian Rhapsody  " // 8 slots of 4

	// fewer than half of the 16 slots: not reported yet
	for slot := 0; slot < 7; slot++ {
		res := dec.Decode(rt2A(false, slot, message[slot*4:slot*4+4]))
		assert.Empty(t, res.RadioText)
	}
	assert.Empty(t, dec.Info().RadioText)

	res := dec.Decode(rt2A(false, 7, message[28:32]))
	assert.Equal(t, "Now playing: Bohemian Rhapsody", res.RadioText)
	assert.Equal(t, "Now playing: Bohemian Rhapsody", dec.Info().RadioText)
	assert.Equal(t, "83D2", res.PICode())
}

func TestRadioText2B(t *testing.T) {
	dec := NewDecoder()
	message := "PRIDE FM"

	// 2B expects 8 slots of 2 characters; half is enough
	for slot := 0; slot < 3; slot++ {
		res := dec.Decode(rt2B(false, slot, message[slot*2:slot*2+2]))
		assert.Empty(t, res.RadioText)
	}
	res := dec.Decode(rt2B(false, 3, message[6:8]))
	assert.Equal(t, "PRIDE FM", res.RadioText)
}

func TestRadioTextFlagFlipClears(t *testing.T) {
	dec := NewDecoder()
	old := "OLD MESSAGE STILL GOING HERE...."
	for slot := 0; slot < 8; slot++ {
		dec.Decode(rt2A(false, slot, old[slot*4:slot*4+4]))
	}
	require.Contains(t, dec.Info().RadioText, "OLD MESSAGE")

	// flag flip signals a new message: everything accumulated is dropped
	// before the new segment lands
	res := dec.Decode(rt2A(true, 0, "NEW "))
	assert.Empty(t, res.RadioText, "one slot of sixteen is not complete")
	assert.Empty(t, dec.Info().RadioText)

	for slot := 1; slot < 8; slot++ {
		dec.Decode(rt2A(true, slot, "    "))
	}
	assert.Equal(t, "NEW", dec.Info().RadioText)
	assert.NotContains(t, dec.Info().RadioText, "OLD")
}

func TestRadioTextCarriageReturn(t *testing.T) {
	dec := NewDecoder()
	message := "Short\rXXXXXXXXXXXXXXXXXXXXXXXXXX"
	for slot := 0; slot < 8; slot++ {
		dec.Decode(rt2A(false, slot, message[slot*4:slot*4+4]))
	}

	// the carriage return marks end of message: the report stops there,
	// the buffer does not
	assert.Equal(t, "Short", dec.Info().RadioText)

	// overwriting the CR slot exposes the rest of the buffer again
	dec.Decode(rt2A(false, 1, "t to"))
	assert.Contains(t, dec.Info().RadioText, "XXXX")
}

func TestProgramItemNumber(t *testing.T) {
	dec := NewDecoder()

	b := uint16(1)<<12 | uint16(VersionA)<<11
	res := dec.Decode(testPI, b, 0x1F2E, 0xBEEF)
	require.NotNil(t, res.Item)
	assert.Equal(t, uint16(0x1F2E), res.Item.Number)
	assert.Equal(t, "BEEF", res.Item.SlowLabeling)
	assert.Equal(t, testPI, int(res.PI))

	// 1B carries neither field
	b = uint16(1)<<12 | uint16(VersionB)<<11
	res = dec.Decode(testPI, b, 0x1F2E, 0xBEEF)
	assert.Nil(t, res.Item)
	assert.Equal(t, testPI, int(res.PI))
}

func TestUnhandledGroupTypes(t *testing.T) {
	dec := NewDecoder()
	for _, gt := range []uint8{3, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15} {
		for _, ver := range []Version{VersionA, VersionB} {
			b := uint16(gt)<<12 | uint16(ver)<<11 | 0x07ff
			res := dec.Decode(0xffff, b, 0xffff, 0xffff)
			assert.True(t, res.Empty(), "group %d%s should decode to nothing", gt, ver)
		}
	}
	assert.Equal(t, StationInfo{}, dec.Info(), "unhandled groups must not touch state")
}

func TestDecodeIdempotence(t *testing.T) {
	once := NewDecoder()
	twice := NewDecoder()

	quads := [][4]uint16{}
	for seg, chars := range map[int]string{0: "PR", 1: "ID", 2: "E ", 3: "FM"} {
		a, b, c, d := ps0A(seg, chars, 42, 0)
		quads = append(quads, [4]uint16{a, b, c, d})
	}
	for slot := 0; slot < 8; slot++ {
		a, b, c, d := rt2A(false, slot, "ssss")
		quads = append(quads, [4]uint16{a, b, c, d})
	}

	for _, q := range quads {
		once.Decode(q[0], q[1], q[2], q[3])
		twice.Decode(q[0], q[1], q[2], q[3])
		twice.Decode(q[0], q[1], q[2], q[3])
	}

	assert.Equal(t, once.Info(), twice.Info())
	assert.Equal(t, once.Completion(), twice.Completion())
}

func TestReset(t *testing.T) {
	dec := NewDecoder()
	for seg, chars := range map[int]string{0: "PR", 1: "ID", 2: "E ", 3: "FM"} {
		dec.Decode(ps0A(seg, chars, 0, 0))
	}
	for slot := 0; slot < 8; slot++ {
		dec.Decode(rt2A(false, slot, "text"))
	}
	require.NotEmpty(t, dec.Info().StationName)
	require.NotEmpty(t, dec.Info().RadioText)

	dec.Reset()

	assert.Equal(t, StationInfo{}, dec.Info())
	assert.Equal(t, Completion{}, dec.Completion())

	// post-reset accumulation starts over: one segment is not a name
	res := dec.Decode(ps0A(0, "PR", 0, 0))
	assert.Empty(t, res.StationName)
}

func TestGroupID(t *testing.T) {
	assert.Equal(t, "0A", GroupID{Type: 0, Version: VersionA}.String())
	assert.Equal(t, "2B", GroupID{Type: 2, Version: VersionB}.String())
	assert.Equal(t, "Radio Text only", GroupID{Type: 2, Version: VersionA}.Name())
	assert.Equal(t, "Clock Time and Date only", GroupID{Type: 4, Version: VersionA}.Name())
}
