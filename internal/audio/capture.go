package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Capture records one Pulse source. The stream is delivered as FrameBytes
// frames on Frames and kept whole for RawPCM; the loudest frame's energy is
// tracked as it arrives.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	done   chan struct{}

	mu      sync.Mutex
	partial []byte
	pcm     []byte
	closed  bool

	writers sync.WaitGroup
	bytes   atomic.Int64
	peak    atomic.Uint64
}

// StartCapture opens a 16 kHz mono s16le record stream on selected. The
// capture stops by itself when ctx ends.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	c := newCapture(selected)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(FrameBytes),
		pulse.RecordMediaName(appName+" dictation"),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.done:
		}
	}()
	return c, nil
}

func newCapture(device Device) *Capture {
	return &Capture{
		device: device,
		frames: make(chan []byte, 128),
		done:   make(chan struct{}),
	}
}

// Device returns the source being recorded.
func (c *Capture) Device() Device {
	return c.device
}

// Frames delivers the stream in FrameBytes pieces; the last one may be short.
// It is closed by Stop and must be drained while recording.
func (c *Capture) Frames() <-chan []byte {
	return c.frames
}

// BytesCaptured reports the bytes accepted from Pulse so far.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// PeakEnergy is the highest FrameEnergy seen so far.
func (c *Capture) PeakEnergy() float64 {
	return math.Float64frombits(c.peak.Load())
}

// RawPCM returns a copy of everything captured.
func (c *Capture) RawPCM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.pcm...)
}

// Stop ends the stream, emits the short trailing frame if any and closes
// Frames. Later calls are no-ops.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.writers.Wait()

	c.mu.Lock()
	tail := c.partial
	c.partial = nil
	c.mu.Unlock()

	if len(tail) > 0 {
		c.notePeak(tail)
		select {
		case c.frames <- tail:
		default:
		}
	}
	close(c.frames)
	return nil
}

// Close is Stop without the error.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM is the Pulse writer callback.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop's Wait cannot race a late writer.
	c.writers.Add(1)
	defer c.writers.Done()

	c.pcm = append(c.pcm, buffer...)
	c.partial = append(c.partial, buffer...)
	var ready [][]byte
	for len(c.partial) >= FrameBytes {
		ready = append(ready, append([]byte(nil), c.partial[:FrameBytes]...))
		c.partial = c.partial[FrameBytes:]
	}
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))
	for _, frame := range ready {
		c.notePeak(frame)
		select {
		case <-c.done:
			return 0, io.EOF
		case c.frames <- frame:
		}
	}
	return len(buffer), nil
}

func (c *Capture) notePeak(frame []byte) {
	energy := FrameEnergy(frame)
	for {
		old := c.peak.Load()
		if energy <= math.Float64frombits(old) {
			return
		}
		if c.peak.CompareAndSwap(old, math.Float64bits(energy)) {
			return
		}
	}
}

// writerFunc adapts onPCM to the io.Writer pulse.NewWriter expects.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
