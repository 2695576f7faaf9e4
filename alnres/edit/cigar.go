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

package edit

import (
	"errors"
	"fmt"

	"github.com/biogo/hts/sam"
)

// ErrClipped means soft-clipped alignments are not supported.
var ErrClipped = errors.New("edit: soft-clipped alignment not supported")

// ErrUnsupportedOp means the CIGAR contains operations other than M/I/D/=/X/H/P.
var ErrUnsupportedOp = errors.New("edit: unsupported CIGAR operation")

// ErrMDMismatch means the MD tag does not agree with the CIGAR.
var ErrMDMismatch = errors.New("edit: MD tag does not match CIGAR")

// FromCigar converts a CIGAR and an optional MD tag into edits from upstream
// to downstream on the Watson strand, and returns the reference extent.
// seq is the read sequence as stored in SAM, i.e., on the Watson strand.
// Without MD, mismatches are only known from "X" operations, and
// reference bases of mismatches and deleted bases are written as 'N'.
func FromCigar(cigar sam.Cigar, md string, seq []byte) (List, int, error) {
	var extent, qlen int
	for _, op := range cigar {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			extent += op.Len()
			qlen += op.Len()
		case sam.CigarDeletion:
			extent += op.Len()
		case sam.CigarInsertion:
			qlen += op.Len()
		case sam.CigarSoftClipped:
			if op.Len() > 0 {
				return nil, 0, ErrClipped
			}
		case sam.CigarHardClipped, sam.CigarPadded:
		default:
			return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedOp, op)
		}
	}
	if len(seq) > 0 && len(seq) != qlen {
		return nil, 0, fmt.Errorf("edit: CIGAR consumes %d bases, while the read has %d", qlen, len(seq))
	}

	var refChars []byte
	if md != "" {
		var err error
		refChars, err = expandMD(md)
		if err != nil {
			return nil, 0, err
		}
		if len(refChars) != extent {
			return nil, 0, fmt.Errorf("%w: %d vs %d reference bases", ErrMDMismatch, len(refChars), extent)
		}
	}

	l := make(List, 0, 8)
	var rp, qp, n int
	var q byte
	for _, op := range cigar {
		n = op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for k := 0; k < n; k++ {
				q = 'N'
				if len(seq) > 0 {
					q = seq[qp+k]
				}
				if refChars != nil {
					if refChars[rp+k] != 0 {
						l = append(l, NewMismatch(qp+k, refChars[rp+k], q))
					}
				} else if op.Type() == sam.CigarMismatch {
					l = append(l, NewMismatch(qp+k, 'N', q))
				}
			}
			rp += n
			qp += n
		case sam.CigarDeletion:
			for k := 0; k < n; k++ {
				if refChars != nil {
					l = append(l, NewInsert(qp, refChars[rp+k]))
				} else {
					l = append(l, NewInsert(qp, 'N'))
				}
			}
			rp += n
		case sam.CigarInsertion:
			for k := 0; k < n; k++ {
				q = 'N'
				if len(seq) > 0 {
					q = seq[qp+k]
				}
				l = append(l, NewDelete(qp+k, q))
			}
			qp += n
		}
	}
	return l, extent, nil
}

// expandMD returns one byte per reference base covered by the alignment,
// 0 for matches, the reference base for mismatches and deleted bases.
func expandMD(md string) ([]byte, error) {
	chars := make([]byte, 0, len(md)<<2)
	var n int
	for i := 0; i < len(md); i++ {
		c := md[i]
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int(c-'0')
			continue
		case c == '^':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		default:
			return nil, fmt.Errorf("%w: invalid character %q in %s", ErrMDMismatch, c, md)
		}
		for ; n > 0; n-- {
			chars = append(chars, 0)
		}
		if c != '^' {
			chars = append(chars, c)
		}
	}
	for ; n > 0; n-- {
		chars = append(chars, 0)
	}
	return chars, nil
}
