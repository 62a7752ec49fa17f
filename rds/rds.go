// Package rds decodes the Radio Data System groups broadcast alongside FM
// audio into station metadata.
//
// A group is four blocks of 26 bits; the tuner chip strips the checksum and
// offset words and exposes the four 16-bit information words in its RDSA..RDSD
// registers, so the decoder consumes raw register quadruples. Block B carries
// a 4-bit group type and a version flag; the payload of blocks C and D depends
// on both. Stations repeat groups continuously and fragment the interesting
// fields across them:
//
//   - PS, the 8-character program service name, arrives 2 characters at a
//     time in group 0 (A and B).
//   - RT, the up to 64-character radiotext, arrives 4 characters at a time in
//     group 2A or 2 at a time in group 2B.
//   - CT, clock time and date, arrives whole in group 4A.
//
// The vast majority of observed groups are 0A/0B and 2A/2B. Everything else
// (ODA, paging, TMC, EON, ...) is intentionally not decoded here.
package rds

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// GroupID identifies an RDS group type and version, e.g. 0A or 2B.
type GroupID struct {
	Type    uint8
	Version Version
}

func (g GroupID) String() string {
	return fmt.Sprintf("%d%s", g.Type, g.Version)
}

// Name returns the standard's description of the group type.
func (g GroupID) Name() string {
	if g.Version == VersionB {
		return GroupNamesB[g.Type&0x0f]
	}
	return GroupNamesA[g.Type&0x0f]
}

// StationInfo is a snapshot of the metadata accumulated for the currently
// tuned station. Fields that have not been received yet are zero; StationName
// and RadioText stay empty until their completion rules are met.
type StationInfo struct {
	PI                  uint16
	ProgramType         uint8
	TrafficProgram      bool
	TrafficAnnouncement bool
	Music               bool

	// StationName is the 8-character PS name, trimmed, once all four
	// segments have been received since the last reset.
	StationName string

	// RadioText is the assembled radiotext, truncated at the first carriage
	// return, once at least half the active version's slots have arrived.
	RadioText string

	// Clock is nil until a group 4A has been decoded.
	Clock *ClockTime
}

// PICode formats the program identification code as four hex digits.
func (si StationInfo) PICode() string { return fmt.Sprintf("%04X", si.PI) }

// ProgramTypeName maps the PTY code through the name table.
func (si StationInfo) ProgramTypeName() string { return PTYNames[si.ProgramType&0x1f] }

// Basic carries the group 0 fields of a single decode call.
type Basic struct {
	ProgramType         uint8
	TrafficProgram      bool
	TrafficAnnouncement bool
	Music               bool

	// Segment is the PS segment address (0..3); Chars are the two
	// characters written at that segment.
	Segment int
	Chars   string

	// AltFrequencies lists the alternative frequencies in MHz announced by
	// this group (0A only; 0, 1 or 2 entries).
	AltFrequencies []float64
}

// ProgramItem carries the group 1A fields of a single decode call.
type ProgramItem struct {
	Number       uint16
	SlowLabeling string // four hex digits
}

// TextUpdate carries the group 2 fields of a single decode call.
type TextUpdate struct {
	Flag  bool // A/B toggle
	Slot  int
	Chars string
}

// Result describes what a single decode call extracted. At most one of the
// group payload pointers is set; all nil (with PI zero) means the group type
// is not one this decoder handles, which is normal and not an error.
type Result struct {
	Group GroupID
	PI    uint16

	Basic *Basic
	Item  *ProgramItem
	Text  *TextUpdate
	Clock *ClockTime

	// StationName is set when the PS name is complete as of this call.
	StationName string

	// RadioText is set when the radiotext completion rule is met as of
	// this call.
	RadioText string
}

// Empty reports whether the call decoded nothing.
func (r Result) Empty() bool {
	return r.Basic == nil && r.Item == nil && r.Text == nil && r.Clock == nil && r.PI == 0
}

// PICode formats the program identification code as four hex digits.
func (r Result) PICode() string { return fmt.Sprintf("%04X", r.PI) }

// Completion reports how much of the fragmented station metadata has arrived
// since the last reset.
type Completion struct {
	PSComplete     bool
	PSSegments     int
	RTComplete     bool
	RTSlots        int
	HasProgramType bool
}

// Decoder reassembles RDS groups into station metadata. It performs no I/O
// and has no internal locking; calls must be serialized by the owner of the
// tuning session, and the caller is expected to Reset on every retune since
// the accumulated fields pertain to a single station.
type Decoder struct {
	logger *log.Logger

	pi    uint16
	pty   uint8
	tp    bool
	ta    bool
	music bool

	ps     [8]byte
	psSeen [4]bool

	rt        [64]byte
	rtSeen    [16]bool
	rtFlag    bool
	rtStarted bool
	rtVer     Version

	clock    ClockTime
	clockSet bool
}

// NewDecoder returns a decoder with all fields in their empty state.
func NewDecoder() *Decoder {
	return &Decoder{logger: log.Default()}
}

// SetLogger replaces the decoder's logger.
func (d *Decoder) SetLogger(logger *log.Logger) {
	d.logger = logger
}

// Reset clears all accumulated fields and completion state. It is the only
// way the completion bitmaps return to all-false.
func (d *Decoder) Reset() {
	logger := d.logger
	*d = Decoder{logger: logger}
	d.logger.Debug("rds state reset")
}

// Decode consumes one register quadruple and updates the accumulated station
// info. Every 16-bit value is a legal block; the only failure mode is an
// empty Result for group types this decoder does not handle.
func (d *Decoder) Decode(rdsa, rdsb, rdsc, rdsd uint16) Result {
	group := GroupID{Type: groupType(rdsb), Version: groupVersion(rdsb)}
	d.logger.Debug("rds group",
		"group", group.String(),
		"a", fmt.Sprintf("%04X", rdsa),
		"b", fmt.Sprintf("%04X", rdsb),
		"c", fmt.Sprintf("%04X", rdsc),
		"d", fmt.Sprintf("%04X", rdsd))

	switch group.Type {
	case 0:
		return d.decodeBasic(rdsa, rdsb, rdsc, rdsd, group)
	case 1:
		return d.decodeProgramItem(rdsa, rdsc, rdsd, group)
	case 2:
		return d.decodeText(rdsa, rdsb, rdsc, rdsd, group)
	case 4:
		return d.decodeClock(rdsa, rdsb, rdsc, rdsd, group)
	default:
		return Result{}
	}
}

// Info returns a snapshot of the accumulated station metadata.
func (d *Decoder) Info() StationInfo {
	si := StationInfo{
		PI:                  d.pi,
		ProgramType:         d.pty,
		TrafficProgram:      d.tp,
		TrafficAnnouncement: d.ta,
		Music:               d.music,
	}
	if d.psComplete() {
		si.StationName = strings.TrimSpace(string(d.ps[:]))
	}
	if d.rtComplete() {
		si.RadioText = d.assembleText()
	}
	if d.clockSet {
		clock := d.clock
		si.Clock = &clock
	}
	return si
}

// Completion reports the current reassembly progress.
func (d *Decoder) Completion() Completion {
	c := Completion{
		PSComplete:     d.psComplete(),
		RTComplete:     d.rtComplete(),
		HasProgramType: d.pty > 0,
	}
	for _, seen := range d.psSeen {
		if seen {
			c.PSSegments++
		}
	}
	for _, seen := range d.rtSeen {
		if seen {
			c.RTSlots++
		}
	}
	return c
}

// decodeBasic handles group 0: PTY, TP/TA/MS flags, one PS name segment and,
// for 0A, up to two alternative frequency codes.
func (d *Decoder) decodeBasic(rdsa, rdsb, rdsc, rdsd uint16, group GroupID) Result {
	d.pi = rdsa
	d.pty = programType(rdsb)
	d.tp = trafficProgram(rdsb)
	d.ta = trafficAnnouncement(rdsb)
	d.music = musicSpeech(rdsb)

	seg := psSegment(rdsb)
	c1 := printable(highByte(rdsd))
	c2 := printable(lowByte(rdsd))
	d.ps[seg*2] = c1
	d.ps[seg*2+1] = c2
	d.psSeen[seg] = true

	basic := &Basic{
		ProgramType:         d.pty,
		TrafficProgram:      d.tp,
		TrafficAnnouncement: d.ta,
		Music:               d.music,
		Segment:             seg,
		Chars:               string([]byte{c1, c2}),
	}

	if group.Version == VersionA {
		// AF codes 1..204 map onto the FM band; 0 is "not to be used",
		// 205 is the filler code and everything above signals counts or
		// LF/MF follows, none of which are frequencies.
		for _, code := range []byte{highByte(rdsc), lowByte(rdsc)} {
			if code >= 1 && code <= 204 {
				basic.AltFrequencies = append(basic.AltFrequencies, 87.5+float64(code-1)*0.1)
			}
		}
	}

	res := Result{Group: group, PI: rdsa, Basic: basic}
	if d.psComplete() {
		if name := strings.TrimSpace(string(d.ps[:])); name != "" {
			res.StationName = name
			d.logger.Info("program service name", "pi", res.PICode(), "name", name)
		}
	}
	return res
}

// decodeProgramItem handles group 1. Only version A carries the program item
// number and slow labeling codes; 1B repeats the PI code and nothing else.
func (d *Decoder) decodeProgramItem(rdsa, rdsc, rdsd uint16, group GroupID) Result {
	d.pi = rdsa
	res := Result{Group: group, PI: rdsa}
	if group.Version == VersionA {
		res.Item = &ProgramItem{
			Number:       rdsc,
			SlowLabeling: fmt.Sprintf("%04X", rdsd),
		}
	}
	return res
}

// decodeText handles group 2, accumulating radiotext 4 characters (2A) or 2
// characters (2B) at a time. A flip of the A/B flag means the station started
// a new message: the buffer and slot bitmap are cleared before the segment is
// written.
func (d *Decoder) decodeText(rdsa, rdsb, rdsc, rdsd uint16, group GroupID) Result {
	d.pi = rdsa

	flag := textFlag(rdsb)
	if d.rtStarted && flag != d.rtFlag {
		d.logger.Debug("radiotext A/B flag flipped, clearing text")
		d.rt = [64]byte{}
		d.rtSeen = [16]bool{}
	}
	d.rtFlag = flag
	d.rtStarted = true
	d.rtVer = group.Version

	slot := textSlot(rdsb)
	var chars []byte
	if group.Version == VersionA {
		chars = []byte{
			textByte(highByte(rdsc)),
			textByte(lowByte(rdsc)),
			textByte(highByte(rdsd)),
			textByte(lowByte(rdsd)),
		}
		for i, ch := range chars {
			if pos := slot*4 + i; pos < len(d.rt) {
				d.rt[pos] = ch
			}
		}
	} else {
		// 2B messages use only the first 32 character positions.
		chars = []byte{
			textByte(highByte(rdsd)),
			textByte(lowByte(rdsd)),
		}
		for i, ch := range chars {
			if pos := slot*2 + i; pos < 32 {
				d.rt[pos] = ch
			}
		}
	}
	d.rtSeen[slot] = true

	res := Result{
		Group: group,
		PI:    rdsa,
		Text:  &TextUpdate{Flag: flag, Slot: slot, Chars: string(chars)},
	}
	if d.rtComplete() {
		if text := d.assembleText(); text != "" {
			res.RadioText = text
			d.logger.Info("radiotext", "pi", res.PICode(), "text", text)
		}
	}
	return res
}

// decodeClock handles group 4A clock time and date. 4B carries no usable
// payload, and an MJD of zero means the station is not sending a date.
func (d *Decoder) decodeClock(rdsa, rdsb, rdsc, rdsd uint16, group GroupID) Result {
	d.pi = rdsa
	res := Result{Group: group, PI: rdsa}
	if group.Version != VersionA {
		return res
	}

	mjd := modifiedJulianDay(rdsb, rdsc)
	if mjd <= 0 {
		return res
	}

	year, month, day := mjdToCivil(mjd)
	clock := ClockTime{
		Year:            year,
		Month:           month,
		Day:             day,
		Hour:            clockHour(rdsc, rdsd),
		Minute:          clockMinute(rdsd),
		OffsetHalfHours: offsetHalfHours(rdsd),
	}
	if offsetNegative(rdsd) {
		clock.OffsetHalfHours = -clock.OffsetHalfHours
	}

	d.clock = clock
	d.clockSet = true
	res.Clock = &clock
	d.logger.Info("clock time", "pi", res.PICode(),
		"date", clock.Date(), "time", clock.Time(), "utc_offset", clock.Offset())
	return res
}

func (d *Decoder) psComplete() bool {
	for _, seen := range d.psSeen {
		if !seen {
			return false
		}
	}
	return true
}

func (d *Decoder) rtComplete() bool {
	if !d.rtStarted {
		return false
	}
	expected := 16
	if d.rtVer == VersionB {
		expected = 8
	}
	received := 0
	for _, seen := range d.rtSeen[:expected] {
		if seen {
			received++
		}
	}
	return received >= expected/2
}

// assembleText renders the radiotext buffer, cutting the reported value at
// the first carriage return (end of message) without touching the buffer.
func (d *Decoder) assembleText() string {
	buf := make([]byte, 0, len(d.rt))
	for _, ch := range d.rt {
		if ch == '\r' {
			break
		}
		if ch == 0 {
			ch = ' '
		}
		buf = append(buf, ch)
	}
	return strings.TrimSpace(string(buf))
}

// textByte keeps carriage returns (the radiotext end-of-message marker) but
// substitutes a space for every other control code.
func textByte(c byte) byte {
	if c == '\r' {
		return c
	}
	return printable(c)
}
