package protocol

import "errors"

var (
	ErrTruncated = errors.New("protocol: truncated field")
	ErrTooLong   = errors.New("protocol: length prefix exceeds payload")
)

// EncodeVLQInt writes a signed integer in the 7-bit variable-length
// encoding, most significant group first. Small magnitudes cost one byte,
// which is what the telemetry stream is mostly made of.
func EncodeVLQInt(out OutputBuffer, v int32) {
	if !(-(1<<26) <= v && v < (3<<26)) {
		out.Output([]byte{byte((v>>28)&0x7F) | 0x80})
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		out.Output([]byte{byte((v>>21)&0x7F) | 0x80})
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		out.Output([]byte{byte((v>>14)&0x7F) | 0x80})
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		out.Output([]byte{byte((v>>7)&0x7F) | 0x80})
	}
	out.Output([]byte{byte(v & 0x7F)})
}

// EncodeVLQUint writes an unsigned integer in the same encoding.
func EncodeVLQUint(out OutputBuffer, v uint32) {
	EncodeVLQInt(out, int32(v))
}

// DecodeVLQInt reads one signed integer, advancing data past the consumed
// bytes.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrTruncated
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if (c & 0x60) == 0x60 {
		v |= ^uint32(0x1F) // sign extend
	}

	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrTruncated
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint reads one unsigned integer.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes writes a length-prefixed byte string.
func EncodeVLQBytes(out OutputBuffer, b []byte) {
	EncodeVLQUint(out, uint32(len(b)))
	out.Output(b)
}

// DecodeVLQBytes reads a length-prefixed byte string. The returned slice
// aliases the input.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrTooLong
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}

// EncodeVLQString writes a length-prefixed string.
func EncodeVLQString(out OutputBuffer, s string) {
	EncodeVLQBytes(out, []byte(s))
}

// DecodeVLQString reads a length-prefixed string.
func DecodeVLQString(data *[]byte) (string, error) {
	b, err := DecodeVLQBytes(data)
	return string(b), err
}
