package sink

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	headerProbeSize = 512
	idxEntrySize    = 16
)

// Info is what Probe reads back from an AVI file
type Info struct {
	Width     int
	Height    int
	FrameRate int
	Frames    uint32
	// Finalized is true when the RIFF size and trailing idx1 index were written
	Finalized bool
}

// Probe reads the main AVI header of path and checks that the file was finalized
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := st.Size()

	head := make([]byte, headerProbeSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Info{}, fmt.Errorf("failed to read header: %w", err)
	}
	head = head[:n]

	if len(head) < 12 || string(head[0:4]) != "RIFF" || string(head[8:12]) != "AVI " {
		return Info{}, fmt.Errorf("%s is not an AVI file", path)
	}

	p := bytes.Index(head, []byte("avih"))
	if p < 0 || p+48 > len(head) {
		return Info{}, fmt.Errorf("%s has no main AVI header", path)
	}

	le := binary.LittleEndian
	info := Info{
		Frames: le.Uint32(head[p+24:]),
		Width:  int(le.Uint32(head[p+40:])),
		Height: int(le.Uint32(head[p+44:])),
	}
	if usec := le.Uint32(head[p+8:]); usec > 0 {
		info.FrameRate = int(math.Round(1e6 / float64(usec)))
	}

	riffSize := int64(le.Uint32(head[4:8]))
	idxPos := size - 8 - int64(info.Frames)*idxEntrySize
	if riffSize == size-8 && idxPos >= 12 {
		tag := make([]byte, 4)
		if _, err := f.ReadAt(tag, idxPos); err == nil && string(tag) == "idx1" {
			info.Finalized = true
		}
	}

	return info, nil
}
