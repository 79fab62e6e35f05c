// Package protocol implements the framed debug link between the ESC firmware
// and a host: length-prefixed frames with a sequence byte, CRC16 trailer and
// a sync marker, carrying VLQ-encoded command and telemetry messages.
package protocol

// Version is reported in response to CmdVersion.
const Version = "goesc 0.1.0"

const (
	FrameHeaderSize  = 2 // length + sequence
	FrameTrailerSize = 3 // crc16 + sync
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64

	posLen = 0
	posSeq = 1

	// SyncByte terminates every frame and is the resynchronization marker
	// after corruption.
	SyncByte = 0x7E

	// Sequence bytes carry a fixed destination marker in the high nibble.
	SeqMask = 0x0F
	SeqDest = 0x10
)

// Host-to-ESC command messages.
const (
	CmdPing uint8 = iota + 1
	CmdVersion
	CmdSetSpeed // int32 RPM, sign is direction
	CmdStop
	CmdSetSlope // uint32 RPM per regulator tick
	CmdStatus
	CmdStats
	CmdEvents
	CmdDebugEnable // uint32 bool
	CmdClearFault
	CmdPower
)

// ESC-to-host response messages.
const (
	RspPong uint8 = iota + 64
	RspVersion
	RspStatus
	RspStats
	RspEvent
	RspLog
	RspPower
)
