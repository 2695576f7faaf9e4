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
	"errors"
	"fmt"

	"github.com/shenwei356/alnres/alnres/edit"
)

// Coord is a position on a strand of a reference sequence.
type Coord struct {
	RefID int   // index of the reference sequence
	Off   int64 // 0-based offset, negative values mean overhanging the start
	Fw    bool  // on the forward (Watson) strand or not
}

func (c Coord) String() string {
	if c.Fw {
		return fmt.Sprintf("%d:%d:+", c.RefID, c.Off)
	}
	return fmt.Sprintf("%d:%d:-", c.RefID, c.Off)
}

// Read is a sequenced read.
//
// For nucleotide reads, Seq is in ASCII (ACGTN).
// For colorspace reads, Seq contains color codes 0-3, 4 for unknown calls,
// without the primer base.
// Qual is ASCII-encoded Phred scores with an offset of 33.
type Read struct {
	Name  []byte
	Seq   []byte
	Qual  []byte
	Color bool
}

// Len returns the length of the read.
func (r *Read) Len() int { return len(r.Seq) }

// Result is an alignment of a read to a reference.
//
// Edits are stored from 5' to 3' on the original read strand.
// For a reverse-strand alignment, positions need to be inverted to
// reason about the geometry on the Watson strand, see WatsonNed.
type Result struct {
	Coord  Coord
	Extent int // number of reference columns spanned
	Score  Score

	Ned edit.List // nucleotide edits
	Ced edit.List // color edits, only for colorspace reads

	// decoded nucleotides at the 5' and 3' ends, only for colorspace reads.
	// They are codes (0-3) on the Watson strand.
	Nuc5p, Nuc3p byte

	Color   bool // colorspace alignment
	ReadLen int  // length of the read
}

// Fw tells if it's aligned to the forward strand.
func (r *Result) Fw() bool { return r.Coord.Fw }

// RefID returns the reference index.
func (r *Result) RefID() int { return r.Coord.RefID }

// RefOff returns the reference offset.
func (r *Result) RefOff() int64 { return r.Coord.Off }

// Rows returns the number of rows of the alignment in the dynamic
// programming matrix. A colorspace alignment has one more row
// as the decoded sequence has one more base than the colors.
func (r *Result) Rows() int {
	if r.Color {
		return r.ReadLen + 1
	}
	return r.ReadLen
}

// WatsonNed returns the nucleotide edits from upstream to downstream on the
// Watson strand. A new list is returned for reverse-strand alignments,
// the Result itself is never modified.
func (r *Result) WatsonNed() edit.List {
	if r.Coord.Fw {
		return r.Ned
	}
	return edit.Invert(r.Ned, r.Rows())
}

// WatsonCed returns the color edits from upstream to downstream on the
// Watson strand.
func (r *Result) WatsonCed() edit.List {
	if r.Coord.Fw {
		return r.Ced
	}
	return edit.Invert(r.Ced, r.ReadLen)
}

// ErrInvalidResult means the alignment result is malformed.
var ErrInvalidResult = errors.New("aln: invalid alignment result")

// Validate checks the consistency of an alignment result.
func (r *Result) Validate() error {
	if r.ReadLen <= 0 {
		return fmt.Errorf("%w: read length %d", ErrInvalidResult, r.ReadLen)
	}
	if r.Extent <= 0 {
		return fmt.Errorf("%w: extent %d", ErrInvalidResult, r.Extent)
	}
	if err := r.Ned.Validate(r.Rows()); err != nil {
		return fmt.Errorf("%w: nucleotide edits: %w", ErrInvalidResult, err)
	}
	if !r.Color && len(r.Ced) > 0 {
		return fmt.Errorf("%w: color edits for a nucleotide read", ErrInvalidResult)
	}
	if err := r.Ced.Validate(r.ReadLen); err != nil {
		return fmt.Errorf("%w: color edits: %w", ErrInvalidResult, err)
	}
	return nil
}

func (r *Result) String() string {
	return fmt.Sprintf("%s len:%d extent:%d score:%s ned:%s ced:%s",
		r.Coord, r.ReadLen, r.Extent, r.Score, r.Ned, r.Ced)
}
