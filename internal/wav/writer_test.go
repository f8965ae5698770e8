package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinishPatchesHeaderAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.wav")

	w, err := New(path)
	require.NoError(t, err)

	samples := make([]int16, 16000) // 1s of a repeating 0..99 ramp
	for i := range samples {
		samples[i] = int16(i % 100)
	}
	require.NoError(t, w.Append(samples))

	finishedPath, err := w.Finish()
	require.NoError(t, err)
	require.Equal(t, path, finishedPath)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(headerSize)+int64(len(samples))*2, info.Size())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	dataSize := binary.LittleEndian.Uint32(raw[40:44])
	require.Equal(t, uint32(len(samples)*2), dataSize)
	require.Equal(t, info.Size()-44, int64(dataSize))

	chunkSize := binary.LittleEndian.Uint32(raw[4:8])
	require.Equal(t, info.Size()-8, int64(chunkSize))

	for i, s := range samples {
		got := int16(binary.LittleEndian.Uint16(raw[headerSize+i*2 : headerSize+i*2+2]))
		require.Equal(t, s, got)
	}
}

func TestDurationMs(t *testing.T) {
	require.Equal(t, int64(5000), DurationMs(5000*32))
	require.Equal(t, int64(1000), DurationMs(16000*2))
}

func TestAppendAfterFinishErrors(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "x.wav"))
	require.NoError(t, err)
	_, err = w.Finish()
	require.NoError(t, err)
	require.Error(t, w.Append([]int16{1}))
}
