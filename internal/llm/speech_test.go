package llm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_Header(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	wav, err := EncodeWAV(pcm, 24000, 1, 16)
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestEncodeWAV_InvalidFormat(t *testing.T) {
	_, err := EncodeWAV(nil, 0, 1, 16)
	assert.Error(t, err)
	_, err = EncodeWAV(nil, 24000, 1, 12)
	assert.Error(t, err)
}

func TestPCMRate(t *testing.T) {
	assert.Equal(t, 16000, pcmRate("audio/L16;codec=pcm;rate=16000"))
	assert.Equal(t, 24000, pcmRate("audio/L16; rate=24000"))
	assert.Equal(t, defaultPCMRate, pcmRate("audio/L16"))
	assert.Equal(t, defaultPCMRate, pcmRate("audio/L16;rate=abc"))
}
