package recognizer

import (
	"encoding/binary"
	"fmt"
	"os"
)

const wavHeaderSize = 44

// readPCM16 reads the raw little-endian int16 PCM payload out of a
// canonical 44-byte-header WAV file, skipping the header.
func readPCM16(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < wavHeaderSize {
		return nil, fmt.Errorf("recognizer: %q is shorter than a WAV header", path)
	}
	return data[wavHeaderSize:], nil
}

// pcmToFloat32Mono converts 16-bit signed little-endian mono PCM to
// float32 samples normalized to [-1.0, 1.0].
func pcmToFloat32Mono(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
