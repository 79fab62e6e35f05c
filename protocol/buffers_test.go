package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFifoWriteRead(t *testing.T) {
	f := NewFifo(8)
	require.True(t, f.IsEmpty())
	require.Equal(t, 7, f.Free(), "one slot is reserved to tell full from empty")

	n := f.Write([]byte{1, 2, 3})
	require.Equal(t, 3, n)
	require.Equal(t, 3, f.Available())

	buf := make([]byte, 2)
	require.Equal(t, 2, f.Read(buf))
	require.Equal(t, []byte{1, 2}, buf)
	require.Equal(t, 1, f.Available())
}

func TestFifoWriteStopsWhenFull(t *testing.T) {
	f := NewFifo(4)
	n := f.Write([]byte{1, 2, 3, 4, 5})
	require.Equal(t, 3, n)
	require.Equal(t, 0, f.Free())

	buf := make([]byte, 8)
	require.Equal(t, 3, f.Read(buf))
	require.Equal(t, []byte{1, 2, 3}, buf[:3])
}

func TestFifoDataContiguousAcrossWrap(t *testing.T) {
	f := NewFifo(8)
	f.Write([]byte{1, 2, 3, 4, 5, 6})
	f.Pop(5) // read pointer near the end of the ring
	f.Write([]byte{7, 8, 9, 10})

	require.Equal(t, []byte{6, 7, 8, 9, 10}, f.Data())
	require.Equal(t, 5, f.Available())

	f.Pop(5)
	require.True(t, f.IsEmpty())
}

func TestFifoPopPastEndStopsAtEmpty(t *testing.T) {
	f := NewFifo(8)
	f.Write([]byte{1, 2})
	f.Pop(10)
	require.True(t, f.IsEmpty())
	require.Equal(t, 7, f.Free())
}

func TestFifoReset(t *testing.T) {
	f := NewFifo(8)
	f.Write([]byte{1, 2, 3})
	f.Reset()
	require.True(t, f.IsEmpty())
	require.Empty(t, f.Data())
}

func TestScratchOutputBackPatch(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{0, 0xAA})
	pos := out.CurPosition()
	out.Output([]byte{1, 2, 3})

	out.Update(0, byte(len(out.DataSince(0))))
	require.Equal(t, []byte{5, 0xAA, 1, 2, 3}, out.Result())
	require.Equal(t, []byte{1, 2, 3}, out.DataSince(pos))

	out.Reset()
	require.Empty(t, out.Result())
}
