package recorder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpusHeaderPages(t *testing.T) {
	var buf bytes.Buffer
	ogg := newOggWriter(&buf, 0xfeedface)
	require.NoError(t, ogg.writeOpusHeaders(1, 48000))

	data := buf.Bytes()
	require.Equal(t, "OggS", string(data[:4]))
	assert.Equal(t, byte(0), data[4], "stream structure version")
	assert.Equal(t, pageBOS, data[5], "first page must be beginning-of-stream")
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[6:14]), "header granule")
	assert.Equal(t, uint32(0xfeedface), binary.LittleEndian.Uint32(data[14:18]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(data[18:22]), "first sequence number")

	// one segment of 19 bytes: the OpusHead packet
	require.Equal(t, byte(1), data[26])
	require.Equal(t, byte(19), data[27])
	head := data[28:47]
	assert.Equal(t, "OpusHead", string(head[:8]))
	assert.Equal(t, byte(1), head[8], "opus encapsulation version")
	assert.Equal(t, byte(1), head[9], "channel count")
	assert.Equal(t, uint16(preSkip), binary.LittleEndian.Uint16(head[10:12]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(head[12:16]))

	// second page carries OpusTags
	tagsPage := data[47:]
	require.Equal(t, "OggS", string(tagsPage[:4]))
	assert.Equal(t, byte(0), tagsPage[5], "tags page has no flags")
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(tagsPage[18:22]), "second sequence number")
	assert.Equal(t, "OpusTags", string(tagsPage[28:36]))
}

func TestWritePageLacing(t *testing.T) {
	var buf bytes.Buffer
	ogg := newOggWriter(&buf, 7)

	// a 300-byte packet needs two lacing values (255 + 45), a 255-byte one
	// needs a terminating zero
	big := bytes.Repeat([]byte{0xaa}, 300)
	exact := bytes.Repeat([]byte{0xbb}, 255)
	small := []byte{1, 2, 3}
	require.NoError(t, ogg.writePage([][]byte{big, exact, small}, 960, 0))

	data := buf.Bytes()
	require.Equal(t, byte(5), data[26], "segment count")
	assert.Equal(t, []byte{255, 45, 255, 0, 3}, data[27:32])
	assert.Equal(t, uint64(960), binary.LittleEndian.Uint64(data[6:14]))
	assert.Equal(t, 27+5+300+255+3, len(data))
}

func TestWritePageEOS(t *testing.T) {
	var buf bytes.Buffer
	ogg := newOggWriter(&buf, 7)
	require.NoError(t, ogg.writePage(nil, 4800, pageEOS))

	data := buf.Bytes()
	assert.Equal(t, pageEOS, data[5])
	assert.Equal(t, byte(0), data[26], "empty page has no segments")
	assert.Len(t, data, 27)
}

func TestOggCRC(t *testing.T) {
	// the CRC field itself is zero during computation, so recomputing over
	// the page with the field zeroed must reproduce the stored value
	var buf bytes.Buffer
	ogg := newOggWriter(&buf, 42)
	require.NoError(t, ogg.writePage([][]byte{{0xde, 0xad}}, 1, 0))

	page := buf.Bytes()
	stored := binary.LittleEndian.Uint32(page[22:26])
	zeroed := append([]byte{}, page...)
	zeroed[22], zeroed[23], zeroed[24], zeroed[25] = 0, 0, 0, 0
	assert.Equal(t, stored, oggCRCUpdate(0, zeroed))

	// and any corruption must change it
	zeroed[0] ^= 0x01
	assert.NotEqual(t, stored, oggCRCUpdate(0, zeroed))
}
