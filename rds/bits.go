package rds

/*

Block B layout, common to every group:

    * Group Type      : xxxx_...._...._....
    * Version         : ...._x..._...._....
    * Traffic Program : ...._.x.._...._....
    * Program Type    : ...._..xx_xxx._....
    * GT-dependent    : ...._...._...x_xxxx

The GT-dependent low five bits and blocks C/D are picked apart per group by
the accessors below, so the handlers share one bit vocabulary instead of
scattering shift/mask literals.

*/

// Version distinguishes the A and B variants of a group type.
type Version uint8

const (
	VersionA Version = 0
	VersionB Version = 1
)

func (v Version) String() string {
	if v == VersionB {
		return "B"
	}
	return "A"
}

// groupType extracts the 4-bit group type, bits 15..12 of block B.
func groupType(b uint16) uint8 { return uint8(b >> 12) }

// groupVersion extracts the version flag, bit 11 of block B.
func groupVersion(b uint16) Version { return Version((b >> 11) & 0x01) }

// trafficProgram extracts the TP flag, bit 10 of block B.
func trafficProgram(b uint16) bool { return b&0x0400 != 0 }

// programType extracts the 5-bit PTY code, bits 9..5 of block B.
func programType(b uint16) uint8 { return uint8((b >> 5) & 0x1f) }

// trafficAnnouncement extracts the TA flag, bit 4 of block B (group 0).
func trafficAnnouncement(b uint16) bool { return b&0x0010 != 0 }

// musicSpeech extracts the M/S flag, bit 3 of block B (group 0).
func musicSpeech(b uint16) bool { return b&0x0008 != 0 }

// psSegment extracts the PS segment address, bits 1..0 of block B (group 0).
func psSegment(b uint16) int { return int(b & 0x03) }

// textFlag extracts the radiotext A/B flag, bit 4 of block B (group 2).
func textFlag(b uint16) bool { return b&0x0010 != 0 }

// textSlot extracts the radiotext segment address, bits 3..0 of block B (group 2).
func textSlot(b uint16) int { return int(b & 0x0f) }

// modifiedJulianDay assembles the 17-bit MJD from bits 1..0 of block B and
// bits 15..1 of block C (group 4A).
func modifiedJulianDay(b, c uint16) int {
	return int(b&0x03)<<15 | int(c>>1)
}

// clockHour assembles the 5-bit hour from bit 0 of block C and bits 15..12
// of block D (group 4A).
func clockHour(c, d uint16) int { return int(c&0x01)<<4 | int(d>>12) }

// clockMinute extracts the 6-bit minute, bits 11..6 of block D (group 4A).
func clockMinute(d uint16) int { return int((d >> 6) & 0x3f) }

// offsetNegative extracts the offset sign, bit 5 of block D (group 4A).
// A set bit means the local time offset is negative.
func offsetNegative(d uint16) bool { return d&0x0020 != 0 }

// offsetHalfHours extracts the offset magnitude in half hours, bits 4..0 of
// block D (group 4A).
func offsetHalfHours(d uint16) int { return int(d & 0x1f) }

func highByte(w uint16) byte { return byte(w >> 8) }
func lowByte(w uint16) byte  { return byte(w) }

// printable substitutes a space for sub-0x20 control codes so accumulated
// name/text buffers never hold control characters.
func printable(c byte) byte {
	if c < 0x20 {
		return ' '
	}
	return c
}
