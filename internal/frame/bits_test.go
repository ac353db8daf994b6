package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldExtraction(t *testing.T) {
	t.Parallel()

	t.Run("x uses byte 0 and low 5 bits of byte 1", func(t *testing.T) {
		t.Parallel()
		b := []byte{0xFF, 0xFF, 0x00, 0x00, 0x00}
		assert.Equal(t, uint16(0x1FFF), fieldX(b))

		b = []byte{0x34, 0xE2, 0x00, 0x00, 0x00}
		assert.Equal(t, uint16(0x0234), fieldX(b), "top 3 bits of byte 1 belong to y")
	})

	t.Run("y spans bytes 1 to 3", func(t *testing.T) {
		t.Parallel()
		// only the top 3 bits of byte 1
		assert.Equal(t, uint16(0x0007), fieldY([]byte{0x00, 0xE0, 0x00, 0x00, 0x00}))
		// byte 2 lands in bits 3..10
		assert.Equal(t, uint16(0x07F8), fieldY([]byte{0x00, 0x00, 0xFF, 0x00, 0x00}))
		// low 2 bits of byte 3 land in bits 11..12
		assert.Equal(t, uint16(0x1800), fieldY([]byte{0x00, 0x00, 0x00, 0xFF, 0x00}))
	})

	t.Run("z uses top 6 bits of byte 3 and low 7 bits of byte 4", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, uint16(0x003F), fieldZ([]byte{0x00, 0x00, 0x00, 0xFC, 0x00}))
		assert.Equal(t, uint16(0x1FC0), fieldZ([]byte{0x00, 0x00, 0x00, 0x00, 0x7F}))
		assert.Equal(t, uint16(0x0000), fieldZ([]byte{0x00, 0x00, 0x00, 0x03, 0x80}), "bit 7 of byte 4 is unused")
	})

	t.Run("putFields inverts extraction", func(t *testing.T) {
		t.Parallel()
		for _, tc := range [][3]uint16{
			{0, 0, 0},
			{0x1FFF, 0x1FFF, 0x1FFF},
			{0x1000, 0x0010, 0x0ABC},
			{0x0155, 0x0AAA, 0x1555},
		} {
			b := make([]byte, groupSize)
			putFields(b, tc[0], tc[1], tc[2])
			assert.Equal(t, tc[0], fieldX(b))
			assert.Equal(t, tc[1], fieldY(b))
			assert.Equal(t, tc[2], fieldZ(b))
			assert.Zero(t, b[4]&0x80)
		}
	})
}

func TestSignExtend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  uint16
		want int16
	}{
		{0x0000, 0},
		{0x0001, 1},
		{0x0FFF, 4095},
		{0x1000, -4096},
		{0x1FFF, -1},
		{0x1FF0, -16},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, signExtend(tc.raw, fieldWidth), "raw=%#04x", tc.raw)
	}

	assert.Equal(t, int16(-128), signExtend(0x80, 8))
	assert.Equal(t, int16(127), signExtend(0x7F, 8))
}

func TestFixedConversion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -256.0, fromFixed(0x1000))
	assert.Equal(t, 1.0, fromFixed(0x0010))
	assert.Equal(t, 255.9375, fromFixed(0x0FFF))
	assert.Equal(t, -0.0625, fromFixed(0x1FFF))

	assert.Equal(t, uint16(0x0010), toFixed(1.0))
	assert.Equal(t, uint16(0x1000), toFixed(-256.0))
	assert.Equal(t, uint16(0x1000), toFixed(-1000), "saturates low")
	assert.Equal(t, uint16(0x0FFF), toFixed(1000), "saturates high")
	assert.Equal(t, uint16(0x0001), toFixed(0.07), "rounds to nearest 1/16")
}
