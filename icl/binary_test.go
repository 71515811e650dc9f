package icl

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBinaryFrame(t *testing.T) {
	data := make([]byte, BinaryFrameHeaderSize+4)
	binary.LittleEndian.PutUint16(data[0:2], 0xABCD)
	binary.LittleEndian.PutUint16(data[2:4], 1)
	binary.LittleEndian.PutUint16(data[4:6], 2)
	binary.LittleEndian.PutUint32(data[6:10], 7)
	binary.LittleEndian.PutUint16(data[10:12], 10)
	binary.LittleEndian.PutUint16(data[12:14], 20)
	binary.LittleEndian.PutUint16(data[14:16], 30)
	binary.LittleEndian.PutUint16(data[16:18], 40)
	copy(data[18:], []byte{1, 2, 3, 4})

	frame, err := ParseBinaryFrame(data)
	require.NoError(t, err)

	assert.Equal(t, uint16(0xABCD), frame.Magic)
	assert.Equal(t, uint16(1), frame.MessageType)
	assert.Equal(t, uint16(2), frame.ElementType)
	assert.Equal(t, uint32(7), frame.ElementCount)
	assert.Equal(t, [4]uint16{10, 20, 30, 40}, frame.Tags)
	assert.Equal(t, []byte{1, 2, 3, 4}, frame.Payload)
}

func TestParseBinaryFrame_TooShort(t *testing.T) {
	_, err := ParseBinaryFrame(make([]byte, BinaryFrameHeaderSize-1))
	assert.ErrorIs(t, err, ErrMalformedBinaryFrame)
}
