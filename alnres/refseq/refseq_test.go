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

package refseq

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestSeq2TwoBit(t *testing.T) {
	_seq := []byte("ACTAGACGACGTACGCGTACGTAGTACGATGCTCGA")
	var b2 *[]byte
	var b byte
	for n := 1; n < len(_seq); n++ {
		b2 = Seq2TwoBit(_seq[:n])
		if len(*b2) != (n+3)/4 {
			t.Errorf("expected %d bytes, result: %d", (n+3)/4, len(*b2))
			return
		}
		for i := 0; i < n; i++ {
			b = (*b2)[i>>2] >> (6 - (i&3)<<1) & 3
			if bit2base[b] != _seq[i] {
				t.Errorf("len %d, base %d: expected: %c, results: %c", n, i, _seq[i], bit2base[b])
				return
			}
		}
		RecycleTwoBit(b2)
	}
}

var _seqs = [][]byte{
	[]byte("A"),
	[]byte("C"),
	[]byte("CA"),
	[]byte("CAT"),
	[]byte("CATG"),
	[]byte("CATGC"),
	[]byte("CATGCCACG"),
	[]byte("NNNNCATGCC"),
	[]byte("ACCCTCGAGCGACTAGNN"),
	[]byte("ACTAGACGACGTACGCGTNNRYACGTAGTACGATGCTCGA"),
	[]byte("acgcagtcgtcatCATGCGTGTCGCATGAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAATGCTG"),
}

// expected returns the sequence in the store.
func expected(s []byte) []byte {
	s2 := make([]byte, len(s))
	for i, b := range s {
		switch b {
		case 'A', 'C', 'G', 'T':
			s2[i] = b
		case 'a', 'c', 'g', 't':
			s2[i] = b - 32
		default:
			s2[i] = 'N'
		}
	}
	return s2
}

func writeStore(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "ref.2bit")
	w, err := NewWriter(file)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range _seqs {
		if err = w.WriteSeq(fmt.Sprintf("seq_%d", i+1), s); err != nil {
			t.Fatal(err)
		}
	}
	if err = w.WriteSeq("seq_1", []byte("ACGT")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate name should be rejected, result: %v", err)
	}
	if err = w.WriteSeq("empty", nil); !errors.Is(err, ErrEmptySeq) {
		t.Fatalf("empty sequence should be rejected, result: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestReadAndWrite(t *testing.T) {
	file := writeStore(t)

	r, err := NewReader(file)
	if err != nil {
		t.Error(err)
		return
	}
	defer r.Close()

	if r.NumSeqs() != len(_seqs) {
		t.Errorf("expected %d seqs, result: %d", len(_seqs), r.NumSeqs())
	}

	var start, end int
	var s1 []byte
	var s2 *[]byte
	for i, s := range _seqs {
		s = expected(s)
		if r.Len(i) != len(s) {
			t.Errorf("idx: %d, expected length: %d, result: %d", i, len(s), r.Len(i))
		}
		idx, ok := r.ID(fmt.Sprintf("seq_%d", i+1))
		if !ok || idx != i {
			t.Errorf("idx of seq_%d: %d", i+1, idx)
		}

		for start = 0; start < len(s); start++ {
			for end = start; end < len(s); end++ {
				s2, err = r.SubSeq(i, start, end)
				if err != nil {
					t.Error(err)
					return
				}
				s1 = s[start : end+1]
				if !bytes.Equal(s1, *s2) {
					t.Errorf("idx: %d:%d-%d, expected: %s, results: %s", i, start, end, s1, *s2)
					return
				}
				RecycleSeq(s2)
			}
		}

		s2, err = r.Seq(i)
		if err != nil {
			t.Error(err)
			return
		}
		if !bytes.Equal(s, *s2) {
			t.Errorf("idx: %d not matched", i)
		}
		RecycleSeq(s2)
	}

	if _, err = r.Seq(len(_seqs)); err == nil {
		t.Errorf("out-of-range index should be rejected")
	}
}

func TestStretch(t *testing.T) {
	file := writeStore(t)
	r, err := NewReader(file)
	if err != nil {
		t.Error(err)
		return
	}
	defer r.Close()

	// CATGCCACG
	type test struct {
		off    int64
		length int
		s      string
	}
	tests := []test{
		{0, 4, "CATG"},
		{-2, 5, "NNCAT"},
		{6, 5, "ACGNN"},
		{-3, 2, "NN"},
		{20, 3, "NNN"},
		{-1, 11, "NCATGCCACGN"},
		{3, 0, ""},
	}
	for _, test := range tests {
		s, err := r.Stretch(6, test.off, test.length)
		if err != nil {
			t.Error(err)
			return
		}
		if string(s) != test.s {
			t.Errorf("off: %d, len: %d, expected: %s, result: %s", test.off, test.length, test.s, s)
		}
	}
}

func TestInfo(t *testing.T) {
	file := writeStore(t)

	info, err := ReadInfo(file + InfoFileExt)
	if err != nil {
		t.Error(err)
		return
	}
	if info.Seqs != len(_seqs) || info.Names[0] != "seq_1" || info.Lengths[6] != 9 {
		t.Errorf("unexpected info: %+v", info)
	}
	var bases int64
	for _, s := range _seqs {
		bases += int64(len(s))
	}
	if info.Bases != bases {
		t.Errorf("expected bases: %d, result: %d", bases, info.Bases)
	}

	// a broken store
	if err = os.Truncate(file+IndexFileExt, 20); err != nil {
		t.Error(err)
		return
	}
	if _, err = NewReader(file); !errors.Is(err, ErrBrokenFile) {
		t.Errorf("broken file expected, result: %v", err)
	}
}
