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

package colorspace

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/edit"
)

func randNucs(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = byte(r.Intn(4))
	}
	return s
}

func randQuals(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = byte(33 + r.Intn(94))
	}
	return s
}

func TestDecodeExample(t *testing.T) {
	calls := CallsFromASCII([]byte("0123"))
	quals := []byte("+5?I") // 10, 20, 30, 40

	d, err := Decode(calls, quals, nil, NucCode('A'), NucCode('A'), true)
	if err != nil {
		t.Error(err)
		return
	}
	if s := d.Seq(); !bytes.Equal(s, []byte("AACTA")) {
		t.Errorf("expected: AACTA, result: %s", s)
	}
	if !bytes.Equal(d.Quals, []byte{10, 30, 50, 70, 40}) {
		t.Errorf("expected: %v, result: %v", []byte{10, 30, 50, 70, 40}, d.Quals)
	}

	// the second color was miscalled, 1 -> 2
	ced := edit.List{edit.NewMismatch(1, '2', '1')}
	d, err = Decode(calls, quals, ced, NucCode('A'), NucCode('T'), true)
	if err != nil {
		t.Error(err)
		return
	}
	if s := d.Seq(); !bytes.Equal(s, []byte("AAGAT")) {
		t.Errorf("expected: AAGAT, result: %s", s)
	}
	if !bytes.Equal(d.Quals, []byte{10, 0, 10, 70, 40}) {
		t.Errorf("expected: %v, result: %v", []byte{10, 0, 10, 70, 40}, d.Quals)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for L := 1; L < 60; L++ {
		watson := randNucs(r, L+1)
		colors := Encode(watson)
		quals := randQuals(r, L)

		// forward strand
		d, err := Decode(colors, quals, nil, watson[0], watson[L], true)
		if err != nil {
			t.Errorf("L=%d: %s", L, err)
			return
		}
		if !bytes.Equal(d.Nucs, watson) {
			t.Errorf("L=%d: expected: %s, result: %s", L, NucsToASCII(watson), d.Seq())
		}
		if !bytes.Equal(Encode(d.Nucs), colors) {
			t.Errorf("L=%d: re-encoded colors differ", L)
		}
		if d.Nucs[0] != watson[0] || d.Nucs[L] != watson[L] {
			t.Errorf("L=%d: anchors not kept", L)
		}
		for i, q := range d.Quals {
			if q > MaxQual {
				t.Errorf("L=%d: quality %d out of range at %d", L, q, i)
			}
		}

		// reverse strand: the read is 5' to 3' on the Crick strand
		_colors := reverse(colors)
		_quals := reverse(quals)
		backup := append([]byte{}, _colors...)
		d, err = Decode(_colors, _quals, nil, watson[L], watson[0], false)
		if err != nil {
			t.Errorf("L=%d, reverse strand: %s", L, err)
			return
		}
		if !bytes.Equal(d.Nucs, watson) {
			t.Errorf("L=%d, reverse strand: expected: %s, result: %s", L, NucsToASCII(watson), d.Seq())
		}
		if !bytes.Equal(_colors, backup) {
			t.Errorf("L=%d, reverse strand: input modified", L)
		}
	}
}

func TestDecodeCorrections(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	L := 30
	for k := 0; k < L; k++ {
		watson := randNucs(r, L+1)
		colors := Encode(watson)
		quals := randQuals(r, L)

		called := append([]byte{}, colors...)
		called[k] = (colors[k] + 1 + byte(r.Intn(3))) & 3
		ced := edit.List{edit.NewMismatch(k, "0123"[colors[k]], "0123"[called[k]])}

		d, err := Decode(called, quals, ced, watson[0], watson[L], true)
		if err != nil {
			t.Errorf("k=%d: %s", k, err)
			return
		}
		if !bytes.Equal(d.Nucs, watson) {
			t.Errorf("k=%d: expected: %s, result: %s", k, NucsToASCII(watson), d.Seq())
		}
		var prev int
		if k > 0 {
			prev = int(quals[k-1]) - 33
		}
		if d.Quals[k] != clampQual(prev-(int(quals[k])-33)) {
			t.Errorf("k=%d: unexpected quality %d", k, d.Quals[k])
		}

		// reverse strand, the edit is 5' to 3' on the read
		_ced := edit.List{edit.NewMismatch(L-1-k, ced[0].Chr, ced[0].QChr)}
		d, err = Decode(reverse(called), reverse(quals), _ced, watson[L], watson[0], false)
		if err != nil {
			t.Errorf("k=%d, reverse strand: %s", k, err)
			return
		}
		if !bytes.Equal(d.Nucs, watson) {
			t.Errorf("k=%d, reverse strand: expected: %s, result: %s", k, NucsToASCII(watson), d.Seq())
		}
		if _ced[0].Pos != L-1-k {
			t.Errorf("k=%d, reverse strand: color edits modified", k)
		}

		// without the correction, the last base disagrees with the anchor
		_, err = Decode(called, quals, nil, watson[0], watson[L], true)
		if !errors.Is(err, ErrAnchorMismatch) {
			t.Errorf("k=%d: anchor mismatch expected, result: %v", k, err)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	calls := CallsFromASCII([]byte("0123"))
	quals := []byte("+5?I")

	_, err := Decode(calls, quals[:3], nil, 0, 0, true)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("length mismatch expected, result: %v", err)
	}

	_, err = Decode(calls, quals, edit.List{edit.NewMismatch(6, '2', '1')}, 0, 0, true)
	if !errors.Is(err, ErrUnconsumedEdits) {
		t.Errorf("unconsumed edits expected, result: %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Pos != 6 {
		t.Errorf("decode error at position 6 expected, result: %v", err)
	}

	_, err = Decode(calls, quals, edit.List{edit.NewMismatch(1, '2', '3')}, 0, 3, true)
	if !errors.Is(err, ErrBadColorEdit) {
		t.Errorf("bad color edit expected, result: %v", err)
	}

	_, err = Decode(calls, quals, edit.List{edit.NewMismatch(1, '1', '1')}, 0, 0, true)
	if !errors.Is(err, ErrBadColorEdit) {
		t.Errorf("bad color edit expected, result: %v", err)
	}

	_, err = DecodeResult(&aln.Read{Seq: []byte("ACGT")}, &aln.Result{})
	if !errors.Is(err, ErrNotColorspace) {
		t.Errorf("not colorspace expected, result: %v", err)
	}
}

func TestQualityCap(t *testing.T) {
	calls := CallsFromASCII([]byte("000"))
	quals := []byte("~~~")
	d, err := Decode(calls, quals, nil, 2, 2, true)
	if err != nil {
		t.Error(err)
		return
	}
	if !bytes.Equal(d.Quals, []byte{93, 127, 127, 93}) {
		t.Errorf("unexpected qualities: %v", d.Quals)
	}
	if !bytes.Equal(d.QualString(), []byte("~~~~")) {
		t.Errorf("unexpected quality string: %s", d.QualString())
	}
}

func TestDecodeResult(t *testing.T) {
	rd := &aln.Read{Seq: CallsFromASCII([]byte("0123")), Qual: []byte("+5?I"), Color: true}
	res := &aln.Result{
		Coord:   aln.Coord{RefID: 0, Off: 10, Fw: false},
		Ced:     edit.List{edit.NewMismatch(2, '1', '2')},
		Nuc5p:   NucCode('A'),
		Nuc3p:   NucCode('T'),
		Color:   true,
		ReadLen: 4,
		Extent:  4,
	}
	// reversed calls: 3 2 1 0, with the corrected color (5' position 2,
	// upstream position 1): 3 1 1 0, seeded with the 3' nucleotide T
	d, err := DecodeResult(rd, res)
	if err != nil {
		t.Error(err)
		return
	}
	if s := d.Seq(); !bytes.Equal(s, []byte("TACAA")) {
		t.Errorf("expected: TACAA, result: %s", s)
	}
	if res.Ced[0].Pos != 2 {
		t.Errorf("color edits modified: %s", res.Ced)
	}
}
