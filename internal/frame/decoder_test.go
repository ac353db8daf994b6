package frame

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

func ptr(v float64) *float64 { return &v }

func TestDecodeBinary(t *testing.T) {
	t.Parallel()

	t.Run("all zero frame", func(t *testing.T) {
		t.Parallel()
		f := DecodeBinary([BinaryFrameSize]byte{})
		require.True(t, f.Complete())
		assert.Equal(t, FormatBinary, f.Format)
		assert.Equal(t, imu.Vector3{}, *f.Accel)
		assert.Equal(t, imu.Vector3{}, *f.Gyro)
		assert.Equal(t, 0.0, *f.Temp)
		assert.Nil(t, f.Timestamp)
	})

	t.Run("sign bit gives -256 and 0x0010 gives 1", func(t *testing.T) {
		t.Parallel()
		var b [BinaryFrameSize]byte
		putFields(b[0:], 0x1000, 0x0010, 0)
		putFields(b[5:], 0, 0x1000, 0x0010)
		f := DecodeBinary(b)
		assert.Equal(t, imu.Vector3{X: -256, Y: 1, Z: 0}, *f.Accel)
		assert.Equal(t, imu.Vector3{X: 0, Y: -256, Z: 1}, *f.Gyro)
	})

	t.Run("temperature integer and fraction", func(t *testing.T) {
		t.Parallel()
		var b [BinaryFrameSize]byte
		b[10] = 25
		b[11] = 128
		assert.Equal(t, 25.5, *DecodeBinary(b).Temp)

		b[10] = 0xFE // -2
		b[11] = 64
		assert.Equal(t, -1.75, *DecodeBinary(b).Temp)
	})

	t.Run("encode round trip", func(t *testing.T) {
		t.Parallel()
		accel := imu.Vector3{X: 0.0625, Y: -1.5, Z: 1}
		gyro := imu.Vector3{X: 255.9375, Y: -256, Z: -12.25}
		f := DecodeBinary(EncodeBinary(accel, gyro, 23.25))
		if diff := cmp.Diff(accel, *f.Accel); diff != "" {
			t.Errorf("accel mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(gyro, *f.Gyro); diff != "" {
			t.Errorf("gyro mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, 23.25, *f.Temp)
	})
}

func TestDecodeLine(t *testing.T) {
	t.Parallel()

	t.Run("full JSON object", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`{"accel":{"x":0.1,"y":-0.2,"z":0.98},"gyro":{"x":1.5,"y":0,"z":-3},"temp":24.5,"timestamp":1234}`)
		require.NoError(t, err)
		want := Frame{
			Format:    FormatJSONObject,
			Accel:     &imu.Vector3{X: 0.1, Y: -0.2, Z: 0.98},
			Gyro:      &imu.Vector3{X: 1.5, Y: 0, Z: -3},
			Temp:      ptr(24.5),
			Timestamp: ptr(1234),
		}
		if diff := cmp.Diff(want, f); diff != "" {
			t.Errorf("frame mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("short keys are not descaled", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`{"a":{"x":100,"y":0,"z":1},"g":{"x":10,"y":20,"z":30},"t":21}`)
		require.NoError(t, err)
		assert.Equal(t, FormatJSONShort, f.Format)
		assert.Equal(t, imu.Vector3{X: 100, Y: 0, Z: 1}, *f.Accel)
		assert.Equal(t, imu.Vector3{X: 10, Y: 20, Z: 30}, *f.Gyro)
		assert.Equal(t, 21.0, *f.Temp)
	})

	t.Run("long keys win over short keys", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`{"accel":{"x":1,"y":2,"z":3},"a":{"x":9,"y":9,"z":9},"gyro":{"x":0,"y":0,"z":0}}`)
		require.NoError(t, err)
		assert.Equal(t, FormatJSONObject, f.Format)
		assert.Equal(t, imu.Vector3{X: 1, Y: 2, Z: 3}, *f.Accel)
	})

	t.Run("JSON array is descaled", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`[100,200,-300,50,-20,0]`)
		require.NoError(t, err)
		assert.Equal(t, FormatJSONArray, f.Format)
		assert.Equal(t, imu.Vector3{X: 1, Y: 2, Z: -3}, *f.Accel)
		assert.Equal(t, imu.Vector3{X: 5, Y: -2, Z: 0}, *f.Gyro)
		assert.Equal(t, 0.0, *f.Temp)
	})

	t.Run("CSV is descaled and keeps temperature", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`100, 200,-300,50,-20,0,27.5`)
		require.NoError(t, err)
		assert.Equal(t, FormatCSV, f.Format)
		assert.Equal(t, imu.Vector3{X: 1, Y: 2, Z: -3}, *f.Accel)
		assert.Equal(t, imu.Vector3{X: 5, Y: -2, Z: 0}, *f.Gyro)
		assert.Equal(t, 27.5, *f.Temp)
	})

	t.Run("object without gyro parses but is incomplete", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`{"accel":{"x":1,"y":0,"z":0}}`)
		require.NoError(t, err)
		assert.False(t, f.Complete())
		_, err = f.Sample(0)
		assert.ErrorIs(t, err, ErrIncompleteSample)
	})

	t.Run("vector missing an axis is incomplete", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`{"accel":{"x":1,"y":0},"gyro":{"x":0,"y":0,"z":0}}`)
		require.NoError(t, err)
		assert.Nil(t, f.Accel)
	})

	t.Run("keys are matched exactly", func(t *testing.T) {
		t.Parallel()
		f, err := DecodeLine(`{"ACCEL":{"x":1,"y":0,"z":0},"Gyro":{"x":0,"y":0,"z":0}}`)
		require.NoError(t, err)
		assert.False(t, f.Complete())

		f, err = DecodeLine(`{"accel":{"X":1,"y":0,"z":0},"gyro":{"x":0,"y":0,"z":0}}`)
		require.NoError(t, err)
		assert.Nil(t, f.Accel)
		assert.NotNil(t, f.Gyro)
	})

	t.Run("quoted line is cut on a rune boundary", func(t *testing.T) {
		t.Parallel()
		prefix := strings.Repeat("a", maxQuotedLine-1)
		_, err := DecodeLine(prefix + "é,1,2")
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.True(t, utf8.ValidString(de.Line))
		assert.Equal(t, prefix+"...", de.Line)
	})

	malformed := []string{
		`{"accel":`,
		`{"accel":"up","gyro":{"x":0,"y":0,"z":0}}`,
		`[1,2,3]`,
		`[1,2,"x",4,5,6]`,
		`1,2,3,4,5`,
		`hello world`,
		`1,2,3,4,5,NaN`,
		`OK`,
	}
	for _, line := range malformed {
		t.Run("malformed "+line, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeLine(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedFrame)
			var de *DecodeError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestDecoderStreamFraming(t *testing.T) {
	t.Parallel()

	t.Run("partial line across chunks yields one frame", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(StreamFraming)
		assert.Empty(t, d.Feed([]byte(`{"accel"`)))
		assert.Equal(t, len(`{"accel"`), d.Pending())

		results := d.Feed([]byte(`:{"x":1,"y":0,"z":0},"gyro":{"x":0,"y":0,"z":0}}` + "\n"))
		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)
		assert.Equal(t, imu.Vector3{X: 1}, *results[0].Frame.Accel)
		assert.Zero(t, d.Pending())
	})

	t.Run("several lines in one chunk in order", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(StreamFraming)
		results := d.Feed([]byte("100,0,0,0,0,0\r\n\n200,0,0,0,0,0\ngarbage\n300,0"))
		require.Len(t, results, 3)
		assert.Equal(t, 1.0, results[0].Frame.Accel.X)
		assert.Equal(t, 2.0, results[1].Frame.Accel.X)
		assert.ErrorIs(t, results[2].Err, ErrMalformedFrame)
		assert.Equal(t, len("300,0"), d.Pending())

		results = d.Feed([]byte(",0,0,0,0\n"))
		require.Len(t, results, 1)
		assert.Equal(t, 3.0, results[0].Frame.Accel.X)
	})

	t.Run("12-byte text chunk is not binary on a stream", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(StreamFraming)
		chunk := []byte("1,2,3,4,5,6\n")
		require.Len(t, chunk, BinaryFrameSize)
		results := d.Feed(chunk)
		require.Len(t, results, 1)
		assert.Equal(t, FormatCSV, results[0].Frame.Format)
	})

	t.Run("overlong line is dropped and decoding resumes", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(StreamFraming)
		results := d.Feed([]byte(strings.Repeat("x", MaxLineLength+10)))
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Err, ErrMalformedFrame)

		results = d.Feed([]byte(strings.Repeat("y", 100) + "\n100,0,0,0,0,0\n"))
		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)
		assert.Equal(t, 1.0, results[0].Frame.Accel.X)
	})
}

func TestDecoderMessageFraming(t *testing.T) {
	t.Parallel()

	t.Run("12-byte message is binary", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(MessageFraming)
		b := EncodeBinary(imu.Vector3{Z: 1}, imu.Vector3{X: 2}, 20)
		results := d.Feed(b[:])
		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)
		assert.Equal(t, FormatBinary, results[0].Frame.Format)
		assert.Equal(t, 1.0, results[0].Frame.Accel.Z)
		assert.Equal(t, 2.0, results[0].Frame.Gyro.X)
	})

	t.Run("text fragments are buffered", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(MessageFraming)
		assert.Empty(t, d.Feed([]byte(`{"a":{"x":0,"y":0,"z":1},`)))
		results := d.Feed([]byte(`"g":{"x":0,"y":0,"z":0}}` + "\n"))
		require.Len(t, results, 1)
		assert.Equal(t, FormatJSONShort, results[0].Frame.Format)
	})

	t.Run("wrong-size binary message is malformed", func(t *testing.T) {
		t.Parallel()
		d := NewDecoder(MessageFraming)
		results := d.Feed([]byte{0xFF, 0xFE, 0x00})
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Err, ErrMalformedFrame)
		assert.Zero(t, d.Pending())
	})
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{FormatBinary, FormatJSONObject, FormatJSONShort, FormatJSONArray, FormatCSV} {
		got, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	got, err := ParseFormat(" Short ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONShort, got)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
