package audio

import (
	"sync"
	"sync/atomic"

	"github.com/voicenote/core/internal/resample"
	"github.com/voicenote/core/internal/ringbuffer"
	"github.com/voicenote/core/internal/wav"
)

// Graph fans out resampled capture frames to the rolling RingBuffer and
// to a WavWriter. Writes to the WavWriter are serialized through one
// dedicated goroutine reading a buffered channel, so file I/O runs off
// the capture goroutine; once the channel's 64 slots are full,
// PushFrame blocks until the writer catches up.
type Graph struct {
	resampler *resample.Resampler
	ring      *ringbuffer.Buffer
	writer    *wav.Writer

	writeCh  chan []int16
	writerWg sync.WaitGroup

	writeErrMu sync.Mutex
	writeErr   error

	totalFrames atomic.Int64
}

// NewGraph wires a capture source (at nativeRate) to ring and writer,
// and starts the serial writer goroutine.
func NewGraph(nativeRate uint32, ring *ringbuffer.Buffer, writer *wav.Writer) *Graph {
	g := &Graph{
		resampler: resample.New(int(nativeRate)),
		ring:      ring,
		writer:    writer,
		writeCh:   make(chan []int16, 64),
	}
	g.writerWg.Add(1)
	go g.runWriter()
	return g
}

func (g *Graph) runWriter() {
	defer g.writerWg.Done()
	for samples := range g.writeCh {
		if err := g.writer.Append(samples); err != nil {
			g.writeErrMu.Lock()
			if g.writeErr == nil {
				g.writeErr = err
			}
			g.writeErrMu.Unlock()
		}
	}
}

// PushFrame resamples one native-rate frame to 16kHz and fans it out
// to the ring buffer (synchronously) and the writer (via the serial
// queue). Called from the capture goroutine.
func (g *Graph) PushFrame(nativeFrame []int16) {
	resampled := g.resampler.Resample(nativeFrame)
	if len(resampled) == 0 {
		return
	}
	g.ring.Append(resampled)
	g.totalFrames.Add(int64(len(resampled)))
	g.writeCh <- resampled
}

// Drain reads frames until the channel closes, pushing each through
// PushFrame. Callers typically run this in its own goroutine fed by
// Capture.Frames().
func (g *Graph) Drain(frames <-chan []int16) {
	for f := range frames {
		g.PushFrame(f)
	}
}

// TotalFrames reports the number of 16kHz samples pushed so far, the
// authoritative duration source per §4.3 (frame-counter only, never
// wall-clock).
func (g *Graph) TotalFrames() int64 {
	return g.totalFrames.Load()
}

// Stop closes the write queue and blocks until the writer goroutine has
// drained it, the graph's synchronous stop barrier.
func (g *Graph) Stop() error {
	close(g.writeCh)
	g.writerWg.Wait()
	g.writeErrMu.Lock()
	defer g.writeErrMu.Unlock()
	return g.writeErr
}
