package protocol

// InputBuffer is the read side the frame decoder consumes from.
type InputBuffer interface {
	// Data returns the bytes available for parsing.
	Data() []byte
	// Available returns the byte count Data would return.
	Available() int
	// Pop discards n bytes from the front.
	Pop(n int)
}

// OutputBuffer is the write side frames are encoded into. CurPosition,
// Update and DataSince exist so the encoder can back-patch the length field
// and checksum a frame after writing its payload.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInput adapts a byte slice to InputBuffer. Used in tests and for
// one-shot parses.
type SliceInput struct {
	data []byte
}

func NewSliceInput(data []byte) *SliceInput {
	return &SliceInput{data: data}
}

func (s *SliceInput) Data() []byte   { return s.data }
func (s *SliceInput) Available() int { return len(s.data) }

func (s *SliceInput) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// scratchSize bounds one encode burst: a few frames of telemetry.
const scratchSize = 512

// ScratchOutput is a fixed-size OutputBuffer. No allocation after
// construction, safe for the firmware side.
type ScratchOutput struct {
	buf [scratchSize]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written so far.
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

// Reset discards the buffered output.
func (s *ScratchOutput) Reset() { s.pos = 0 }

// Fifo is a ring buffer between the serial ISR and the frame decoder. One
// writer, one reader; capacity is fixed at construction.
type Fifo struct {
	buf   []byte
	read  int
	write int
	size  int
}

func NewFifo(capacity int) *Fifo {
	return &Fifo{buf: make([]byte, capacity), size: capacity}
}

// Write appends as much of data as fits and returns the count written.
func (f *Fifo) Write(data []byte) int {
	written := 0
	for _, b := range data {
		next := (f.write + 1) % f.size
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		written++
	}
	return written
}

// Read fills data from the front and returns the count read.
func (f *Fifo) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

func (f *Fifo) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

func (f *Fifo) Free() int { return f.size - f.Available() - 1 }

// Data returns the buffered bytes as one slice. A wrapped buffer is copied
// out so the frame parser always sees contiguous data.
func (f *Fifo) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	result := make([]byte, f.Available())
	n := copy(result, f.buf[f.read:])
	copy(result[n:], f.buf[:f.write])
	return result
}

func (f *Fifo) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

func (f *Fifo) IsEmpty() bool { return f.read == f.write }

func (f *Fifo) Reset() {
	f.read = 0
	f.write = 0
}
