// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package refseq stores reference sequences in a 2bit-packed file,
// for fast extracting of subsequences by the index of a sequence.
//
// A store of a prefix consists of three files:
//
//	<prefix>            2bit-packed sequences
//	<prefix>.idx        offsets, lengths and N blocks of sequences
//	<prefix>.toml       names and lengths of sequences, readable by human
//
// Degenerate bases are saved as N, other bases are stored in 2 bits.
package refseq

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

var be = binary.BigEndian

// Magic number for checking file format
var Magic = [8]byte{'a', 'l', 'n', 'r', 'e', 'f', 's', 'q'}

// IndexFileExt is the file extension of the index file.
const IndexFileExt = ".idx"

// InfoFileExt is the file extension of the info file.
const InfoFileExt = ".toml"

// MainVersion is use for checking compatibility
var MainVersion uint8 = 1

// MinorVersion is less important
var MinorVersion uint8 = 0

// BufferSize is size of reading and writing buffer
var BufferSize = 65536

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.New("refseq: invalid binary format")

// ErrEmptySeq means the sequence is empty
var ErrEmptySeq = errors.New("refseq: empty seq")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("refseq: broken file")

// ErrVersionMismatch means version mismatch between files and program
var ErrVersionMismatch = errors.New("refseq: version mismatch")

// ErrDuplicateName means two sequences share the same name.
var ErrDuplicateName = errors.New("refseq: duplicate sequence name")

// Info is saved in the .toml file.
type Info struct {
	MainVersion  uint8    `toml:"main-version" comment:"Store format"`
	MinorVersion uint8    `toml:"minor-version"`
	Seqs         int      `toml:"seqs" comment:"Sequences"`
	Bases        int64    `toml:"bases"`
	Names        []string `toml:"names"`
	Lengths      []int    `toml:"lengths"`
}

// block is a run of Ns.
type block struct {
	start, size int
}

// record is the index entry of a sequence.
type record struct {
	offset int // offset of 2bit data in the main file
	bytes  int
	bases  int
	ns     []block
}

// Writer saves a list of DNA sequences into 2bit-encoded format.
type Writer struct {
	file string
	fh   *os.File
	w    *bufio.Writer

	buf    []byte
	offset int

	index []record
	info  Info
	names map[string]struct{}
}

// NewWriter creates a new Writer.
func NewWriter(file string) (*Writer, error) {
	w := &Writer{file: file, names: make(map[string]struct{}, 1024)}
	var err error
	w.fh, err = os.Create(file)
	if err != nil {
		return nil, err
	}
	w.w = bufio.NewWriterSize(w.fh, BufferSize)
	w.buf = make([]byte, 16)

	// 8-byte magic number
	if _, err = w.w.Write(Magic[:]); err != nil {
		return nil, err
	}
	// 8-byte meta info, only 2 bytes are used.
	if _, err = w.w.Write([]byte{MainVersion, MinorVersion, 0, 0, 0, 0, 0, 0}); err != nil {
		return nil, err
	}
	w.offset = 16

	w.info.MainVersion = MainVersion
	w.info.MinorVersion = MinorVersion
	return w, nil
}

// WriteSeq writes one sequence with its name.
func (w *Writer) WriteSeq(name string, s []byte) error {
	if len(s) == 0 {
		return ErrEmptySeq
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	w.names[name] = struct{}{}

	b2 := Seq2TwoBit(s)
	defer RecycleTwoBit(b2)

	be.PutUint64(w.buf[:8], uint64(len(*b2)))
	be.PutUint64(w.buf[8:16], uint64(len(s)))
	if _, err := w.w.Write(w.buf[:16]); err != nil {
		return err
	}
	if _, err := w.w.Write(*b2); err != nil {
		return err
	}

	w.index = append(w.index, record{
		offset: w.offset + 16,
		bytes:  len(*b2),
		bases:  len(s),
		ns:     nBlocks(s),
	})
	w.offset += 16 + len(*b2)

	w.info.Names = append(w.info.Names, name)
	w.info.Lengths = append(w.info.Lengths, len(s))
	w.info.Seqs++
	w.info.Bases += int64(len(s))
	return nil
}

// nBlocks finds runs of bases other than ACGT.
func nBlocks(s []byte) []block {
	var bs []block
	start := -1
	for i, b := range s {
		if isACGT[b] {
			if start >= 0 {
				bs = append(bs, block{start, i - start})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		bs = append(bs, block{start, len(s) - start})
	}
	return bs
}

// Close writes the index file and the info file, and finish writing.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if err != nil {
		return err
	}
	err = w.fh.Close()
	if err != nil {
		return err
	}

	// the index
	fh, err := os.Create(filepath.Clean(w.file) + IndexFileExt)
	if err != nil {
		return err
	}
	wtr := bufio.NewWriterSize(fh, BufferSize)
	buf := make([]byte, 32)

	be.PutUint64(buf[:8], uint64(len(w.index)))
	if _, err = wtr.Write(buf[:8]); err != nil {
		return err
	}
	for _, r := range w.index {
		be.PutUint64(buf[:8], uint64(r.offset))
		be.PutUint64(buf[8:16], uint64(r.bytes))
		be.PutUint64(buf[16:24], uint64(r.bases))
		be.PutUint64(buf[24:32], uint64(len(r.ns)))
		if _, err = wtr.Write(buf); err != nil {
			return err
		}
		for _, b := range r.ns {
			be.PutUint64(buf[:8], uint64(b.start))
			be.PutUint64(buf[8:16], uint64(b.size))
			if _, err = wtr.Write(buf[:16]); err != nil {
				return err
			}
		}
	}
	if err = wtr.Flush(); err != nil {
		return err
	}
	if err = fh.Close(); err != nil {
		return err
	}

	return WriteInfo(filepath.Clean(w.file)+InfoFileExt, &w.info)
}

// WriteInfo writes the info file.
func WriteInfo(file string, info *Info) error {
	data, err := toml.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

// ReadInfo reads the info file.
func ReadInfo(file string) (*Info, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	info := &Info{}
	if err = toml.Unmarshal(data, info); err != nil {
		return nil, err
	}
	if info.MainVersion != MainVersion {
		return nil, ErrVersionMismatch
	}
	if len(info.Names) != info.Seqs || len(info.Lengths) != info.Seqs {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileFormat, file)
	}
	return info, nil
}

// Reader is for fast extracting of subsequence of any sequence.
// It's safe for concurrent use.
type Reader struct {
	mu sync.Mutex
	fh *os.File

	buf []byte

	index []record
	info  *Info
	ids   map[string]int
}

// NewReader returns a reader from a file.
func NewReader(file string) (*Reader, error) {
	var err error
	r := &Reader{buf: make([]byte, 32)}

	r.fh, err = os.Open(file)
	if err != nil {
		return nil, err
	}

	buf := r.buf[:16]
	if _, err = io.ReadFull(r.fh, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ErrBrokenFile
		}
		return nil, err
	}
	if [8]byte(buf[:8]) != Magic {
		return nil, ErrInvalidFileFormat
	}
	if MainVersion != buf[8] {
		return nil, ErrVersionMismatch
	}

	// ------------ index file ----------------

	fh, err := os.Open(filepath.Clean(file) + IndexFileExt)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	rdr := bufio.NewReaderSize(fh, BufferSize)

	buf = r.buf[:32]
	if _, err = io.ReadFull(rdr, buf[:8]); err != nil {
		return nil, ErrBrokenFile
	}
	r.index = make([]record, int(be.Uint64(buf[:8])))
	var nb int
	for i := range r.index {
		if _, err = io.ReadFull(rdr, buf); err != nil {
			return nil, ErrBrokenFile
		}
		r.index[i] = record{
			offset: int(be.Uint64(buf[:8])),
			bytes:  int(be.Uint64(buf[8:16])),
			bases:  int(be.Uint64(buf[16:24])),
		}
		nb = int(be.Uint64(buf[24:32]))
		if nb > 0 {
			r.index[i].ns = make([]block, nb)
		}
		for j := 0; j < nb; j++ {
			if _, err = io.ReadFull(rdr, buf[:16]); err != nil {
				return nil, ErrBrokenFile
			}
			r.index[i].ns[j] = block{int(be.Uint64(buf[:8])), int(be.Uint64(buf[8:16]))}
		}
	}

	// ------------ info file ----------------

	r.info, err = ReadInfo(filepath.Clean(file) + InfoFileExt)
	if err != nil {
		return nil, err
	}
	if r.info.Seqs != len(r.index) {
		return nil, fmt.Errorf("%w: %d sequences in the info file, %d in the index",
			ErrInvalidFileFormat, r.info.Seqs, len(r.index))
	}
	r.ids = make(map[string]int, len(r.info.Names))
	for i, name := range r.info.Names {
		r.ids[name] = i
	}

	return r, nil
}

// Close the file handler.
func (r *Reader) Close() error {
	return r.fh.Close()
}

// NumSeqs returns the number of sequences.
func (r *Reader) NumSeqs() int { return len(r.index) }

// Info returns the info of the store.
func (r *Reader) Info() *Info { return r.info }

// Name returns the name of a sequence.
func (r *Reader) Name(idx int) string { return r.info.Names[idx] }

// Len returns the length of a sequence.
func (r *Reader) Len(idx int) int { return r.index[idx].bases }

// ID returns the index of a sequence by its name.
func (r *Reader) ID(name string) (int, bool) {
	idx, ok := r.ids[name]
	return idx, ok
}

// Seq returns the sequence with index of idx (0-based).
func (r *Reader) Seq(idx int) (*[]byte, error) {
	if idx < 0 || idx >= len(r.index) {
		return nil, fmt.Errorf("sequence index (%d) out of range: [0, %d]", idx, len(r.index)-1)
	}
	return r.SubSeq(idx, 0, r.index[idx].bases-1)
}

// SubSeq returns the subsequence of sequence (idx is 0-based),
// from start to end (both are 0-based and included).
// Out-of-range positions are trimmed.
// Please call RecycleSeq() after using the result.
func (r *Reader) SubSeq(idx int, start int, end int) (*[]byte, error) {
	if idx < 0 || idx >= len(r.index) {
		return nil, fmt.Errorf("sequence index (%d) out of range: [0, %d]", idx, len(r.index)-1)
	}
	info := r.index[idx]
	if start < 0 {
		start = 0
	}
	if end > info.bases-1 {
		end = info.bases - 1
	}
	s := poolSubSeq.Get().(*[]byte)
	*s = (*s)[:0]
	if end < start {
		return s, nil
	}

	nBytes := end>>2 - start>>2 + 1

	r.mu.Lock()
	if nBytes > len(r.buf) {
		r.buf = make([]byte, nBytes)
	}
	buf := r.buf[:nBytes]
	_, err := r.fh.Seek(int64(info.offset+start>>2), io.SeekStart)
	if err == nil {
		_, err = io.ReadFull(r.fh, buf)
	}
	if err != nil {
		r.mu.Unlock()
		RecycleSeq(s)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ErrBrokenFile
		}
		return nil, err
	}

	first := start >> 2
	for i := start; i <= end; i++ {
		*s = append(*s, bit2base[buf[i>>2-first]>>(6-(i&3)<<1)&3])
	}
	r.mu.Unlock()

	// mask Ns
	ns := info.ns
	k := sort.Search(len(ns), func(i int) bool { return ns[i].start+ns[i].size > start })
	var b block
	for ; k < len(ns) && ns[k].start <= end; k++ {
		b = ns[k]
		for i := max(b.start, start); i < min(b.start+b.size, end+1); i++ {
			(*s)[i-start] = 'N'
		}
	}

	return s, nil
}

// Stretch returns length bases of a sequence starting from off (0-based),
// positions before the start or after the end of the sequence are 'N'.
func (r *Reader) Stretch(idx int, off int64, length int) ([]byte, error) {
	if idx < 0 || idx >= len(r.index) {
		return nil, fmt.Errorf("sequence index (%d) out of range: [0, %d]", idx, len(r.index)-1)
	}
	if length <= 0 {
		return []byte{}, nil
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = 'N'
	}
	end := off + int64(length) - 1
	if end < 0 || off >= int64(r.index[idx].bases) {
		return out, nil
	}

	s, err := r.SubSeq(idx, int(max(off, 0)), int(end))
	if err != nil {
		return nil, err
	}
	copy(out[max(-off, 0):], *s)
	RecycleSeq(s)
	return out, nil
}

// RecycleSeq recycles the sequence
func RecycleSeq(s *[]byte) {
	poolSubSeq.Put(s)
}

var poolSubSeq = &sync.Pool{New: func() interface{} {
	tmp := make([]byte, 0, 10<<10)
	return &tmp
}}

var bit2base = [4]byte{'A', 'C', 'G', 'T'}

var base2bit [256]uint8
var isACGT [256]bool

func init() {
	for i, b := range []byte("ACGT") {
		base2bit[b] = uint8(i)
		base2bit[b+32] = uint8(i)
		isACGT[b] = true
		isACGT[b+32] = true
	}
}

// RecycleTwoBit recycles the 2bit-packed sequence
func RecycleTwoBit(b2 *[]byte) {
	poolTwoBit.Put(b2)
}

var poolTwoBit = &sync.Pool{New: func() interface{} {
	tmp := make([]byte, 0, 1<<20)
	return &tmp
}}

// Seq2TwoBit converts a DNA sequence to 2bit-packed sequence.
// Bases other than ACGT are packed as A and should be masked with N blocks.
func Seq2TwoBit(s []byte) *[]byte {
	codes := poolTwoBit.Get().(*[]byte)
	*codes = (*codes)[:0]

	var b byte
	for i, c := range s {
		b = b<<2 | base2bit[c]
		if i&3 == 3 {
			*codes = append(*codes, b)
			b = 0
		}
	}
	if m := len(s) & 3; m > 0 {
		*codes = append(*codes, b<<((4-m)<<1))
	}
	return codes
}
