package rds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBlockBExtraction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gt := rapid.Uint8Range(0, 15).Draw(t, "group_type")
		ver := rapid.Uint8Range(0, 1).Draw(t, "version")
		rest := rapid.Uint16Range(0, 0x07ff).Draw(t, "rest")

		b := uint16(gt)<<12 | uint16(ver)<<11 | rest

		assert.Equal(t, gt, groupType(b))
		assert.Equal(t, Version(ver), groupVersion(b))
		assert.Equal(t, uint8((b>>5)&0x1f), programType(b))
		assert.Equal(t, b&0x0400 != 0, trafficProgram(b))
		assert.Equal(t, b&0x0010 != 0, trafficAnnouncement(b))
		assert.Equal(t, b&0x0008 != 0, musicSpeech(b))

		// segment/slot addresses are fixed-width, so they can never
		// exceed their table sizes
		assert.Less(t, psSegment(b), 4)
		assert.GreaterOrEqual(t, psSegment(b), 0)
		assert.Less(t, textSlot(b), 16)
		assert.GreaterOrEqual(t, textSlot(b), 0)
	})
}

func TestPrintable(t *testing.T) {
	for c := 0; c < 32; c++ {
		assert.Equal(t, byte(' '), printable(byte(c)), "control code %#02x", c)
	}
	assert.Equal(t, byte('A'), printable('A'))
	assert.Equal(t, byte(0x7f), printable(0x7f))
}

func TestModifiedJulianDay(t *testing.T) {
	// 17 bits: the top two live in block B, the remaining 15 in C
	assert.Equal(t, 0, modifiedJulianDay(0, 0))
	assert.Equal(t, 1, modifiedJulianDay(0, 1<<1))
	assert.Equal(t, 1<<15, modifiedJulianDay(1, 0))
	assert.Equal(t, 0x1ffff, modifiedJulianDay(0xffff, 0xffff))
}
