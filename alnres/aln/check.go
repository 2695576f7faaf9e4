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

package aln

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shenwei356/alnres/alnres/edit"
	"github.com/shenwei356/bio/seq"
)

// Stretcher returns a stretch of a reference sequence.
type Stretcher interface {
	// Stretch returns length bases (ACGTN) of reference refID starting
	// from off (0-based). Positions outside of the sequence are 'N'.
	Stretch(refID int, off int64, length int) ([]byte, error)
}

// ErrExtentMismatch means the edits and the extent of an alignment disagree.
var ErrExtentMismatch = fmt.Errorf("aln: reference length implied by edits differs from the extent")

// WatsonSeq returns the read sequence from upstream to downstream on the
// Watson strand. decoded is used for colorspace reads, see colorspace.Decode.
func WatsonSeq(res *Result, rd *Read, decoded []byte) ([]byte, error) {
	if rd.Color {
		if len(decoded) != rd.Len()+1 {
			return nil, fmt.Errorf("aln: %d decoded bases for %d colors", len(decoded), rd.Len())
		}
		return decoded, nil
	}
	if res.Coord.Fw {
		return rd.Seq, nil
	}
	rc, err := RevComp(rd.Seq)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", rd.Name)
	}
	return rc, nil
}

// RevComp returns the reverse complement of a DNA sequence in a new slice.
func RevComp(s []byte) ([]byte, error) {
	if len(s) == 0 {
		return []byte{}, nil
	}
	_s, err := seq.NewSeq(seq.DNAredundant, append([]byte{}, s...))
	if err != nil {
		return nil, err
	}
	return _s.RevComInplace().Seq, nil
}

// RebuildRef returns the reference stretch implied by the read and the
// nucleotide edits, on the Watson strand. For colorspace reads, it has
// one more base than the extent.
func RebuildRef(res *Result, rd *Read, decoded []byte) ([]byte, error) {
	rdseq, err := WatsonSeq(res, rd, decoded)
	if err != nil {
		return nil, err
	}

	rf := edit.ToRef(rdseq, res.WatsonNed())
	n := res.Extent
	if res.Color {
		n++
	}
	if len(rf) != n {
		return nil, fmt.Errorf("%w: %d vs %d", ErrExtentMismatch, len(rf), n)
	}
	return rf, nil
}

// MatchesRef checks that an alignment agrees with the reference.
// The reference implied by the read and the edits is compared with
// the real one, and the returned slice marks each of the Extent columns.
// Columns before the start of the reference should be 'N'.
func MatchesRef(res *Result, rd *Read, decoded []byte, ref Stretcher) (bool, []bool, error) {
	rf, err := RebuildRef(res, rd, decoded)
	if err != nil {
		return false, nil, err
	}

	real, err := ref.Stretch(res.Coord.RefID, res.Coord.Off, res.Extent)
	if err != nil {
		return false, nil, errors.Wrapf(err, "reference %d", res.Coord.RefID)
	}
	if len(real) != res.Extent {
		return false, nil, fmt.Errorf("aln: %d reference bases returned, %d expected", len(real), res.Extent)
	}

	matches := make([]bool, res.Extent)
	all := true
	for i := range matches {
		matches[i] = upper(rf[i]) == upper(real[i])
		if !matches[i] {
			all = false
		}
	}
	return all, matches, nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}
