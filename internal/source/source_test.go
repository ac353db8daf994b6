package source

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
	"github.com/relabs-tech/imu_visualizer/internal/mqttfake"
)

// recorder is a Handler safe for use from the source goroutine.
type recorder struct {
	mu          sync.Mutex
	chunks      [][]byte
	disconnects []error
}

func (r *recorder) OnChunk(c []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, c)
}

func (r *recorder) OnDisconnect(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, err)
}

func (r *recorder) snapshot() ([][]byte, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.chunks...), append([]error(nil), r.disconnects...)
}

// fakePort replays reads until the channel is closed, then fails.
type fakePort struct {
	reads  chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakePort(buffered int) *fakePort {
	return &fakePort{reads: make(chan []byte, buffered), closed: make(chan struct{})}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case data, ok := <-p.reads:
		if !ok {
			return 0, io.ErrUnexpectedEOF
		}
		return copy(b, data), nil
	case <-p.closed:
		return 0, os.ErrClosed
	}
}

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func newTestSerial(port io.ReadWriteCloser, openErr error) (*Serial, *serial.OpenOptions) {
	s := NewSerial("/dev/ttyACM0", DefaultBaudRate)
	var got serial.OpenOptions
	s.open = func(o serial.OpenOptions) (io.ReadWriteCloser, error) {
		got = o
		if openErr != nil {
			return nil, openErr
		}
		return port, nil
	}
	return s, &got
}

func TestSerial(t *testing.T) {
	t.Parallel()

	t.Run("forwards reads then reports the failure", func(t *testing.T) {
		t.Parallel()
		port := newFakePort(2)
		port.reads <- []byte("0,0,1")
		port.reads <- []byte("00,0,0,0\n")
		close(port.reads)

		s, opts := newTestSerial(port, nil)
		rec := &recorder{}
		err := s.Run(context.Background(), rec)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)

		chunks, disconnects := rec.snapshot()
		assert.Equal(t, [][]byte{[]byte("0,0,1"), []byte("00,0,0,0\n")}, chunks)
		require.Len(t, disconnects, 1)
		assert.ErrorIs(t, disconnects[0], io.ErrUnexpectedEOF)

		assert.Equal(t, uint(115200), opts.BaudRate)
		assert.Equal(t, uint(8), opts.DataBits)
		assert.Equal(t, uint(1), opts.StopBits)
		assert.Equal(t, serial.PARITY_NONE, opts.ParityMode)
		assert.Equal(t, frame.StreamFraming, s.Framing())
	})

	t.Run("cancellation closes the port", func(t *testing.T) {
		t.Parallel()
		port := newFakePort(0)
		s, _ := newTestSerial(port, nil)
		rec := &recorder{}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx, rec) }()
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
		_, disconnects := rec.snapshot()
		assert.Equal(t, []error{nil}, disconnects)
	})

	t.Run("open failure", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestSerial(nil, errors.New("no such device"))
		rec := &recorder{}
		err := s.Run(context.Background(), rec)
		assert.ErrorContains(t, err, "/dev/ttyACM0")
		_, disconnects := rec.snapshot()
		assert.Empty(t, disconnects)
	})
}

func TestMQTT(t *testing.T) {
	t.Parallel()

	opts := mqtt.NewClientOptions().AddBroker("tcp://localhost:1883")
	src := NewMQTT(opts, "imu/raw")
	var client *mqttfake.Client
	ready := make(chan struct{})
	src.newClient = func(o *mqtt.ClientOptions) mqtt.Client {
		client = mqttfake.New(o)
		close(ready)
		return client
	}
	assert.Equal(t, frame.MessageFraming, src.Framing())

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, rec) }()

	<-ready
	require.Eventually(t, func() bool { return client.Subscribed("imu/raw") }, 2*time.Second, 5*time.Millisecond)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	require.True(t, client.Deliver("imu/raw", payload))
	payload[0] = 0xFF

	lost := errors.New("broker went away")
	client.LoseConnection(lost)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, client.Subscribed("imu/raw"))
	assert.True(t, client.Disconnected())

	chunks, disconnects := rec.snapshot()
	require.Len(t, chunks, 1)
	assert.Equal(t, byte(1), chunks[0][0], "payload is copied")
	assert.Equal(t, []error{lost, nil}, disconnects)
}

func TestMQTTConnectError(t *testing.T) {
	t.Parallel()

	src := NewMQTT(mqtt.NewClientOptions(), "imu/raw")
	src.newClient = func(o *mqtt.ClientOptions) mqtt.Client {
		c := mqttfake.New(o)
		c.ConnectErr = errors.New("refused")
		return c
	}
	err := src.Run(context.Background(), &recorder{})
	assert.ErrorContains(t, err, "refused")
}

func TestMockFormatsDecode(t *testing.T) {
	t.Parallel()

	start := time.Unix(1_700_000_000, 0)
	at := start.Add(1500 * time.Millisecond)

	for _, format := range []frame.Format{
		frame.FormatBinary, frame.FormatJSONObject, frame.FormatJSONShort,
		frame.FormatJSONArray, frame.FormatCSV,
	} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			m := NewMockAt(format, 10*time.Millisecond, start)
			chunk, err := m.Chunk(at)
			require.NoError(t, err)

			results := frame.NewDecoder(m.Framing()).Feed(chunk)
			require.Len(t, results, 1)
			require.NoError(t, results[0].Err)

			f := results[0].Frame
			assert.Equal(t, format, f.Format)
			require.True(t, f.Complete())

			_, accel, gyro := m.motion.At(at)
			// list formats quantize accel to 0.01 g and gyro to 0.1 deg/s,
			// the binary frame to 1/16
			assert.InDelta(t, accel.X, f.Accel.X, 0.07)
			assert.InDelta(t, accel.Z, f.Accel.Z, 0.07)
			assert.InDelta(t, gyro.X, f.Gyro.X, 0.07)
			assert.InDelta(t, gyro.Z, f.Gyro.Z, 0.07)
			require.NotNil(t, f.Temp)
			assert.InDelta(t, 25, *f.Temp, 1)
		})
	}
}

func TestMockRun(t *testing.T) {
	t.Parallel()

	m := NewMock(frame.FormatCSV, time.Millisecond)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, rec) }()

	require.Eventually(t, func() bool {
		chunks, _ := rec.snapshot()
		return len(chunks) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, disconnects := rec.snapshot()
	assert.Equal(t, []error{nil}, disconnects)
}

func TestMatchesDevice(t *testing.T) {
	t.Parallel()

	assert.True(t, matchesDevice("IMU-01", "IMU-01", false))
	assert.False(t, matchesDevice("IMU-01", "IMU-02", true))
	assert.True(t, matchesDevice("", "", true))
	assert.False(t, matchesDevice("", "IMU-01", false))
}

func TestWaitLink(t *testing.T) {
	t.Parallel()

	t.Run("peripheral disconnect is reported", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{}
		dropped := make(chan struct{}, 1)
		dropped <- struct{}{}

		err := waitLink(context.Background(), rec, dropped, nil, time.Minute)
		assert.ErrorIs(t, err, ErrLinkLost)
		_, disconnects := rec.snapshot()
		require.Len(t, disconnects, 1)
		assert.ErrorIs(t, disconnects[0], ErrLinkLost)
	})

	t.Run("silence past the idle timeout is a lost link", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{}

		err := waitLink(context.Background(), rec, nil, nil, 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrLinkLost)
		_, disconnects := rec.snapshot()
		require.Len(t, disconnects, 1)
		assert.ErrorIs(t, disconnects[0], ErrLinkLost)
	})

	t.Run("activity keeps the link alive until cancel", func(t *testing.T) {
		t.Parallel()
		rec := &recorder{}
		activity := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- waitLink(ctx, rec, nil, activity, 500*time.Millisecond) }()

		// 10 x 100 ms spans twice the idle timeout
		for i := 0; i < 10; i++ {
			time.Sleep(100 * time.Millisecond)
			select {
			case activity <- struct{}{}:
			case err := <-done:
				t.Fatalf("link dropped while active: %v", err)
			}
		}
		cancel()

		assert.ErrorIs(t, <-done, context.Canceled)
		_, disconnects := rec.snapshot()
		assert.Equal(t, []error{nil}, disconnects)
	})
}
