package icl

import (
	"encoding/binary"
	"fmt"
)

// BinaryFrameHeaderSize is the fixed size, in bytes, of a binary telemetry
// frame header. Frames shorter than this are malformed per the wire
// protocol and must never be handed to a registered callback.
const BinaryFrameHeaderSize = 18

// BinaryFrame is a single frame received on the telemetry plane: an 18-byte
// little-endian header followed by an opaque payload. The header's magic
// number is not validated against any known constant — it is logged only,
// per the protocol's open question about its meaning.
type BinaryFrame struct {
	Magic        uint16
	MessageType  uint16
	ElementType  uint16
	ElementCount uint32
	Tags         [4]uint16
	Payload      []byte

	// Raw holds the complete, unparsed frame, including the header. Kept
	// around for diagnostic logging of malformed frames.
	Raw []byte
}

// ErrMalformedBinaryFrame indicates a frame shorter than
// BinaryFrameHeaderSize was received. Per the spec, such frames are logged
// and dropped, never propagated as typed telemetry.
var ErrMalformedBinaryFrame = fmt.Errorf("icl: binary frame shorter than %d bytes", BinaryFrameHeaderSize)

// ParseBinaryFrame decodes a raw WebSocket binary message into a
// BinaryFrame. It returns ErrMalformedBinaryFrame if data is too short to
// contain a header; callers must not treat the returned frame as valid in
// that case.
func ParseBinaryFrame(data []byte) (BinaryFrame, error) {
	if len(data) < BinaryFrameHeaderSize {
		return BinaryFrame{Raw: data}, ErrMalformedBinaryFrame
	}

	f := BinaryFrame{Raw: data}
	f.Magic = binary.LittleEndian.Uint16(data[0:2])
	f.MessageType = binary.LittleEndian.Uint16(data[2:4])
	f.ElementType = binary.LittleEndian.Uint16(data[4:6])
	f.ElementCount = binary.LittleEndian.Uint32(data[6:10])
	f.Tags[0] = binary.LittleEndian.Uint16(data[10:12])
	f.Tags[1] = binary.LittleEndian.Uint16(data[12:14])
	f.Tags[2] = binary.LittleEndian.Uint16(data[14:16])
	f.Tags[3] = binary.LittleEndian.Uint16(data[16:18])
	f.Payload = data[BinaryFrameHeaderSize:]

	return f, nil
}
