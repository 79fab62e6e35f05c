package protocol

// MessageHandler is called for each decoded message in a frame. args points
// into the frame payload; the handler must decode its arguments and leave
// args at the next message boundary.
type MessageHandler func(msgID uint8, args *[]byte) error

// Framer encodes and decodes the debug link framing. One instance per link
// direction owner: the firmware runs one against its serial FIFOs, the host
// runs one against the serial port. Not safe for concurrent use; both sides
// drive it from a single context.
type Framer struct {
	out     OutputBuffer
	handler MessageHandler

	synced  bool
	nextSeq uint8

	// Promiscuous accepts every well-formed frame regardless of sequence
	// and suppresses acks. The host side runs in this mode: it consumes
	// responses and acks produced against its own command sequence.
	Promiscuous bool

	onReset func()
}

// NewFramer builds a framer writing responses and acks to out and
// dispatching decoded messages to handler.
func NewFramer(out OutputBuffer, handler MessageHandler) *Framer {
	return &Framer{
		out:     out,
		handler: handler,
		synced:  true,
		nextSeq: SeqDest,
	}
}

// SetResetHandler registers a callback invoked when the peer restarts its
// sequence, which signals a fresh session.
func (f *Framer) SetResetHandler(cb func()) {
	f.onReset = cb
}

// Receive consumes buffered link bytes: validates framing, checksums and
// sequence, dispatches payloads, and emits an ack (or, on sequence mismatch,
// a nak carrying the expected sequence) per frame. Corrupt input drops the
// decoder out of sync until the next sync byte.
func (f *Framer) Receive(in InputBuffer) {
	data := in.Data()

	for len(data) > 0 {
		if !f.synced {
			idx := -1
			for i, b := range data {
				if b == SyncByte {
					idx = i
					break
				}
			}
			if idx < 0 {
				data = nil
				break
			}
			data = data[idx+1:]
			f.synced = true
			if !f.Promiscuous {
				f.sendAck()
			}
			continue
		}

		if data[0] == SyncByte {
			data = data[1:]
			continue
		}
		if len(data) < FrameLengthMin {
			break
		}

		frameLen := int(data[posLen])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			f.synced = false
			continue
		}
		seq := data[posSeq]
		if seq&^SeqMask != SeqDest {
			f.synced = false
			continue
		}
		if len(data) < frameLen {
			break
		}
		if data[frameLen-1] != SyncByte {
			f.synced = false
			continue
		}

		wantCRC := uint16(data[frameLen-3])<<8 | uint16(data[frameLen-2])
		if CRC16(data[:frameLen-FrameTrailerSize]) != wantCRC {
			f.synced = false
			continue
		}

		payload := data[FrameHeaderSize : frameLen-FrameTrailerSize]
		data = data[frameLen:]

		if f.Promiscuous {
			f.dispatch(payload)
			continue
		}

		if seq == SeqDest && f.nextSeq != SeqDest {
			// Peer restarted its sequence.
			f.nextSeq = SeqDest
			if f.onReset != nil {
				f.onReset()
			}
		}

		if seq == f.nextSeq {
			f.nextSeq = ((seq + 1) & SeqMask) | SeqDest
			f.dispatch(payload)
		}
		// Acked either way; a mismatch ack tells the peer which sequence
		// is expected.
		f.sendAck()
	}

	if consumed := in.Available() - len(data); consumed > 0 {
		in.Pop(consumed)
	}
}

func (f *Framer) dispatch(payload []byte) {
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			f.synced = false
			return
		}
		if f.handler == nil {
			return
		}
		if err := f.handler(uint8(id), &payload); err != nil {
			// A handler that rejects its arguments cannot know where the
			// next message starts; drop the rest of the frame.
			return
		}
	}
}

// sendAck emits an empty frame carrying the expected sequence.
func (f *Framer) sendAck() {
	crc := CRC16([]byte{FrameLengthMin, f.nextSeq})
	f.out.Output([]byte{
		FrameLengthMin,
		f.nextSeq,
		byte(crc >> 8),
		byte(crc & 0xFF),
		SyncByte,
	})
}

// Send encodes one message into a frame: VLQ message ID followed by whatever
// args writes.
func (f *Framer) Send(msgID uint8, args func(out OutputBuffer)) {
	start := f.out.CurPosition()

	f.out.Output([]byte{0, f.nextSeq})
	EncodeVLQUint(f.out, uint32(msgID))
	if args != nil {
		args(f.out)
	}

	f.out.Update(start, uint8(len(f.out.DataSince(start))+FrameTrailerSize))

	crc := CRC16(f.out.DataSince(start))
	f.out.Output([]byte{byte(crc >> 8), byte(crc & 0xFF), SyncByte})
}

// Reset returns the framer to its initial synchronized state.
func (f *Framer) Reset() {
	f.synced = true
	f.nextSeq = SeqDest
	if f.onReset != nil {
		f.onReset()
	}
}

// ExpectedSeq returns the sequence the framer will accept next.
func (f *Framer) ExpectedSeq() uint8 { return f.nextSeq }

// AdvanceSeq moves to the next sequence. The command-sending side calls this
// after each command so its next frame matches what the peer now expects;
// the responding side never does, since responses share the ack sequence.
func (f *Framer) AdvanceSeq() {
	f.nextSeq = ((f.nextSeq + 1) & SeqMask) | SeqDest
}
