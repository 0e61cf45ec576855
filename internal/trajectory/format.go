package trajectory

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

const Version = 1

// maxHeaderOnlyIons bounds the ion count accepted from a file too short to
// hold a record.
const maxHeaderOnlyIons = 1 << 20

var (
	Magic = [4]byte{'I', 'O', 'N', 'T'}

	ErrFormat = errors.New("trajectory: malformed file")
)

type Header struct {
	Magic   [4]byte
	Version int32
	NumIons int64
	Dt      float64
	TMax    float64
}

func NewHeader(numIons int, dt, tMax float64) Header {
	return Header{Magic: Magic, Version: Version, NumIons: int64(numIons), Dt: dt, TMax: tMax}
}

// Steps is the record count a complete run of this header produces.
func (h Header) Steps() int {
	if h.Dt <= 0 {
		return 0
	}
	return int(h.TMax/h.Dt + 0.5)
}

// FileWriter appends frames to a trajectory file. It is not safe for
// concurrent use.
type FileWriter struct {
	f     *os.File
	w     *bufio.Writer
	h     Header
	count int
	rec   []float64
}

// Create truncates path and writes the preamble and header.
func Create(path string, h Header) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trajectory: %w", err)
	}

	w := bufio.NewWriter(f)
	order := endianness(0)
	preamble := []any{int32(0), int32(binary.Size(h)), h}
	for _, v := range preamble {
		if err := binary.Write(w, order, v); err != nil {
			f.Close()
			return nil, fmt.Errorf("write trajectory header: %w", err)
		}
	}

	return &FileWriter{
		f:   f,
		w:   w,
		h:   h,
		rec: make([]float64, 1+3*h.NumIons),
	}, nil
}

func (fw *FileWriter) WriteFrames(frames []Frame) error {
	for _, frame := range frames {
		if int64(len(frame)) != fw.h.NumIons {
			return fmt.Errorf("%w: frame has %d ions, header has %d", ErrFormat, len(frame), fw.h.NumIons)
		}

		fw.rec[0] = float64(fw.count+1) * fw.h.Dt
		for i, x := range frame {
			fw.rec[1+3*i] = x.X
			fw.rec[2+3*i] = x.Y
			fw.rec[3+3*i] = x.Z
		}
		if err := binary.Write(fw.w, binary.LittleEndian, fw.rec); err != nil {
			return fmt.Errorf("write frame %d: %w", fw.count, err)
		}
		fw.count++
	}
	return nil
}

// Count is the number of records written so far.
func (fw *FileWriter) Count() int { return fw.count }

func (fw *FileWriter) Header() Header { return fw.h }

func (fw *FileWriter) Close() error {
	if err := fw.w.Flush(); err != nil {
		fw.f.Close()
		return fmt.Errorf("flush trajectory: %w", err)
	}
	return fw.f.Close()
}

type Reader struct {
	f     *os.File
	r     *bufio.Reader
	order binary.ByteOrder
	h     Header
	rec   []float64
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory: %w", err)
	}

	r := bufio.NewReader(f)
	rd, err := newReader(f, r)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rd, nil
}

func newReader(f *os.File, r *bufio.Reader) (*Reader, error) {
	// The flag values are byte-symmetric, so any order reads them.
	var flag int32
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if flag != 0 && flag != -1 {
		return nil, fmt.Errorf("%w: unrecognized endianness flag %d", ErrFormat, flag)
	}
	order := endianness(flag)

	var size int32
	if err := binary.Read(r, order, &size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var h Header
	if int(size) != binary.Size(h) {
		return nil, fmt.Errorf("%w: header size %d, expected %d", ErrFormat, size, binary.Size(h))
	}
	if err := binary.Read(r, order, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, h.Magic[:])
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}
	if h.NumIons < 0 {
		return nil, fmt.Errorf("%w: negative ion count", ErrFormat)
	}

	// A record holds 3*NumIons+1 float64s. The ion count may not exceed what
	// the file body could hold, with headroom for header-only files.
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat trajectory: %w", err)
	}
	body := max(st.Size()-int64(8+size), 0)
	if h.NumIons > max(body/24, maxHeaderOnlyIons) {
		return nil, fmt.Errorf("%w: ion count %d does not fit a %d byte file", ErrFormat, h.NumIons, st.Size())
	}

	return &Reader{f: f, r: r, order: order, h: h, rec: make([]float64, 1+3*h.NumIons)}, nil
}

func (rd *Reader) Header() Header { return rd.h }

// Next returns the next record, or io.EOF after the last one. A record
// cut short by the end of the file is io.ErrUnexpectedEOF.
func (rd *Reader) Next() (float64, Frame, error) {
	if err := binary.Read(rd.r, rd.order, rd.rec); err != nil {
		return 0, nil, err
	}

	frame := make(Frame, rd.h.NumIons)
	for i := range frame {
		frame[i] = r3.Vec{X: rd.rec[1+3*i], Y: rd.rec[2+3*i], Z: rd.rec[3+3*i]}
	}
	return rd.rec[0], frame, nil
}

// ReadAll reads every remaining record.
func (rd *Reader) ReadAll() ([]float64, []Frame, error) {
	var (
		times  []float64
		frames []Frame
	)
	for {
		t, f, err := rd.Next()
		if err == io.EOF {
			return times, frames, nil
		}
		if err != nil {
			return times, frames, err
		}
		times = append(times, t)
		frames = append(frames, f)
	}
}

func (rd *Reader) Close() error { return rd.f.Close() }

func endianness(flag int32) binary.ByteOrder {
	if flag == -1 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
