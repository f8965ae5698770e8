// Package resample converts native-device-rate mono int16 PCM into the
// 16 kHz mono int16 PCM the RingBuffer and WavWriter operate on (§4.3).
// The separate float32 conversion whisper.cpp needs happens later, in
// internal/recognizer, directly off the written WAV file.
//
// It is a streaming linear-interpolation resampler: each call to
// Resample continues from the fractional input position left by the
// previous call, so a caller can feed it arbitrarily-sized frames from
// a capture loop without introducing seams at frame boundaries.
package resample

// TargetSampleRate is the fixed output rate every Resampler converts to.
const TargetSampleRate = 16000

// Resampler converts mono int16 PCM at a fixed input rate to mono
// int16 PCM at TargetSampleRate. It is not safe for concurrent use;
// callers feed it from a single capture goroutine.
type Resampler struct {
	inRate int
	step   float64 // input samples consumed per output sample
	carry  []int16 // unconsumed tail of the previous call's input
	pos    float64 // fractional read position within carry+new samples
}

// New returns a Resampler converting from inRate to TargetSampleRate.
func New(inRate int) *Resampler {
	return &Resampler{
		inRate: inRate,
		step:   float64(inRate) / float64(TargetSampleRate),
	}
}

// Resample consumes samples (mono, at the Resampler's configured input
// rate) and returns as many TargetSampleRate output samples as the
// accumulated input supports. Leftover input is carried to the next call.
func (r *Resampler) Resample(samples []int16) []int16 {
	if r.inRate == TargetSampleRate {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	buf := make([]int16, 0, len(r.carry)+len(samples))
	buf = append(buf, r.carry...)
	buf = append(buf, samples...)

	var out []int16
	for {
		i0 := int(r.pos)
		if i0+1 >= len(buf) {
			break
		}
		frac := r.pos - float64(i0)
		s0 := float64(buf[i0])
		s1 := float64(buf[i0+1])
		out = append(out, clampInt16(s0+(s1-s0)*frac))
		r.pos += r.step
	}

	consumed := int(r.pos)
	if consumed > len(buf)-1 {
		consumed = len(buf) - 1
	}
	if consumed < 0 {
		consumed = 0
	}
	r.carry = append([]int16(nil), buf[consumed:]...)
	r.pos -= float64(consumed)
	return out
}

// Reset discards any carried state, as when starting a new recording.
func (r *Resampler) Reset() {
	r.carry = nil
	r.pos = 0
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
