package recorder

import (
	"encoding/binary"
	"io"
)

/*

Minimal Ogg encapsulation for Opus packets, per RFC 3533 (framing) and
RFC 7845 (Opus mapping): a BOS page with the OpusHead identification header,
a comment page with OpusTags, then audio pages whose granule position counts
48 kHz output samples.

*/

const (
	pageBOS byte = 0x02
	pageEOS byte = 0x04

	// encoder lookahead the decoder must discard, in 48 kHz samples
	preSkip = 312
)

// Ogg page CRC: polynomial 0x04c11db7, zero initial value, no reflection,
// no final xor.
var oggCRCTable = func() (table [256]uint32) {
	for i := range table {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

func oggCRCUpdate(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = crc<<8 ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

type oggWriter struct {
	w      io.Writer
	serial uint32
	seq    uint32
}

func newOggWriter(w io.Writer, serial uint32) *oggWriter {
	return &oggWriter{w: w, serial: serial}
}

// writePage emits one page carrying the given packets. A packet may not span
// pages here; recorder packets are far below the 255*255 page payload limit.
func (o *oggWriter) writePage(packets [][]byte, granule uint64, flags byte) error {
	var lacing []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
	}

	header := make([]byte, 27+len(lacing))
	copy(header, "OggS")
	header[4] = 0 // stream structure version
	header[5] = flags
	binary.LittleEndian.PutUint64(header[6:], granule)
	binary.LittleEndian.PutUint32(header[14:], o.serial)
	binary.LittleEndian.PutUint32(header[18:], o.seq)
	header[26] = byte(len(lacing))
	copy(header[27:], lacing)

	// CRC covers the whole page with the CRC field zeroed
	crc := oggCRCUpdate(0, header)
	for _, p := range packets {
		crc = oggCRCUpdate(crc, p)
	}
	binary.LittleEndian.PutUint32(header[22:], crc)

	if _, err := o.w.Write(header); err != nil {
		return err
	}
	for _, p := range packets {
		if _, err := o.w.Write(p); err != nil {
			return err
		}
	}
	o.seq++
	return nil
}

// writeOpusHeaders emits the identification and comment header pages that
// must precede any audio.
func (o *oggWriter) writeOpusHeaders(channels, sampleRate int) error {
	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1 // version
	head[9] = byte(channels)
	binary.LittleEndian.PutUint16(head[10:], preSkip)
	binary.LittleEndian.PutUint32(head[12:], uint32(sampleRate))
	// output gain 0, channel mapping family 0

	if err := o.writePage([][]byte{head}, 0, pageBOS); err != nil {
		return err
	}

	vendor := "pridesync radio"
	tags := make([]byte, 0, 8+4+len(vendor)+4)
	tags = append(tags, "OpusTags"...)
	tags = binary.LittleEndian.AppendUint32(tags, uint32(len(vendor)))
	tags = append(tags, vendor...)
	tags = binary.LittleEndian.AppendUint32(tags, 0) // no user comments
	return o.writePage([][]byte{tags}, 0, 0)
}
