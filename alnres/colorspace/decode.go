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
	"errors"
	"fmt"

	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/edit"
)

// MaxQual is the maximum decoded quality.
const MaxQual = 127

// ErrUnconsumedEdits means not all color edits were applied,
// the edit list does not agree with the read.
var ErrUnconsumedEdits = errors.New("colorspace: color edits not fully consumed")

// ErrAnchorMismatch means the last decoded nucleotide differs from the
// downstream anchor.
var ErrAnchorMismatch = errors.New("colorspace: decoded nucleotide does not match the anchor")

// ErrBadColorEdit means a color edit does not agree with the called color.
var ErrBadColorEdit = errors.New("colorspace: color edit does not match the called color")

// ErrLengthMismatch means the numbers of colors and qualities differ.
var ErrLengthMismatch = errors.New("colorspace: numbers of colors and qualities differ")

// ErrNotColorspace means the read or the alignment is not in colorspace.
var ErrNotColorspace = errors.New("colorspace: not a colorspace read")

// DecodeError is returned when the inputs can not be a valid alignment.
type DecodeError struct {
	Err error // one of the Err* variables
	Pos int   // position on the upstream-to-downstream colors, -1 for none
	Msg string
}

func (e *DecodeError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("%s: %s", e.Err, e.Msg)
	}
	return fmt.Sprintf("%s: position %d: %s", e.Err, e.Pos, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoded is the decoded nucleotide sequence of a colorspace read,
// from upstream to downstream on the Watson strand.
type Decoded struct {
	Nucs  []byte // nucleotide codes, L+1 elements
	Quals []byte // Phred quality values in [0, 127], L+1 elements
}

// Seq returns the decoded nucleotides in ASCII.
func (d *Decoded) Seq() []byte { return NucsToASCII(d.Nucs) }

// QualString returns the decoded qualities in ASCII with an offset of 33,
// values above 93 are capped to '~'.
func (d *Decoded) QualString() []byte {
	s := make([]byte, len(d.Quals))
	for i, q := range d.Quals {
		if q > 93 {
			q = 93
		}
		s[i] = q + 33
	}
	return s
}

func clampQual(q int) byte {
	if q < 0 {
		return 0
	}
	if q > MaxQual {
		return MaxQual
	}
	return byte(q)
}

// Decode decodes L color calls (codes) and their qualities (ASCII, offset 33)
// with the corrected colors in ced and the known nucleotides at the 5' and
// 3' ends. ced is 5' to 3' on the read, and its Chr/QChr are colors in ASCII.
//
// For a reverse-strand alignment, the calls and qualities are reversed
// (colors are strand-symmetric, so no complement) to make them run from
// upstream to downstream. None of the inputs are modified.
//
// The quality of a decoded nucleotide is the sum of the two adjacent color
// qualities, where a corrected color contributes a negative value.
func Decode(calls, quals []byte, ced edit.List, nuc5p, nuc3p byte, fw bool) (*Decoded, error) {
	L := len(calls)
	if len(quals) != L {
		return nil, &DecodeError{Err: ErrLengthMismatch, Pos: -1,
			Msg: fmt.Sprintf("%d colors, %d qualities", L, len(quals))}
	}

	cs, qs := calls, quals
	nup, ndn := nuc5p, nuc3p
	if !fw {
		cs, qs = reverse(calls), reverse(quals)
		ced = edit.Invert(ced, L)
		nup, ndn = nuc3p, nuc5p
	}

	d := &Decoded{
		Nucs:  make([]byte, L+1),
		Quals: make([]byte, L+1),
	}

	var c, n, nc byte
	var q, lastq int
	var j int
	lastn := nup
	for i := 0; i < L; i++ {
		c = cs[i]
		if c > N {
			c = N
		}
		q = int(qs[i]) - 33

		// a miscalled color
		if j < len(ced) && ced[j].Pos == i {
			e := ced[j]
			if e.QChr != 0 && e.QChr != edit.Gap && ColorCode(e.QChr) != c {
				return nil, &DecodeError{Err: ErrBadColorEdit, Pos: i,
					Msg: fmt.Sprintf("called %c, edit expects %c", "0123."[c], e.QChr)}
			}
			nc = ColorCode(e.Chr)
			if nc == c {
				return nil, &DecodeError{Err: ErrBadColorEdit, Pos: i,
					Msg: fmt.Sprintf("corrected color %c equals the called one", e.Chr)}
			}
			c = nc
			q = -q
			j++
		}

		n = NextNuc(lastn, c)
		d.Nucs[i+1] = n

		d.Quals[i] = clampQual(q + lastq)
		lastq = q
		lastn = n
	}
	d.Nucs[0] = nup
	d.Quals[L] = clampQual(lastq)

	if j != len(ced) {
		return nil, &DecodeError{Err: ErrUnconsumedEdits, Pos: ced[j].Pos,
			Msg: fmt.Sprintf("%d of %d color edits applied", j, len(ced))}
	}
	if d.Nucs[L] != ndn {
		return nil, &DecodeError{Err: ErrAnchorMismatch, Pos: L,
			Msg: fmt.Sprintf("decoded %c, anchor %c", "ACGTN"[min(d.Nucs[L], N)], "ACGTN"[min(ndn, N)])}
	}

	return d, nil
}

// DecodeResult decodes a colorspace read with the color edits and end
// nucleotides of an alignment.
func DecodeResult(rd *aln.Read, res *aln.Result) (*Decoded, error) {
	if !rd.Color || !res.Color {
		return nil, ErrNotColorspace
	}
	return Decode(rd.Seq, rd.Qual, res.Ced, res.Nuc5p, res.Nuc3p, res.Fw())
}

func reverse(s []byte) []byte {
	r := make([]byte, len(s))
	for i, b := range s {
		r[len(s)-1-i] = b
	}
	return r
}
