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
	"slices"
	"strconv"
	"strings"
)

// Gap is the symbol of a gap on either sequence.
const Gap = '-'

// Type is the kind of an edit.
type Type uint8

const (
	// Mismatch is a substitution, both Chr and QChr are bases.
	Mismatch Type = iota
	// Insert is a reference base with no counterpart in the read,
	// i.e., "D" in CIGAR. QChr is a gap.
	// It sits between read positions Pos-1 and Pos, and occupies one more
	// column in the row before Pos in the alignment matrix.
	Insert
	// Delete is a read base with no counterpart in the reference,
	// i.e., "I" in CIGAR. Chr is a gap.
	// The row of Pos does not advance the column.
	Delete
)

func (t Type) String() string {
	switch t {
	case Mismatch:
		return "mismatch"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Edit is a positional discrepancy between a read and the reference.
type Edit struct {
	Pos  int  // 0-based position in the read
	Type Type // edit type
	Chr  byte // reference character, a gap for Delete
	QChr byte // read character, a gap for Insert
}

// NewMismatch returns a substitution of the reference base ref by the read base q.
func NewMismatch(pos int, ref, q byte) Edit {
	return Edit{Pos: pos, Type: Mismatch, Chr: ref, QChr: q}
}

// NewInsert returns an edit of a reference base absent from the read.
func NewInsert(pos int, ref byte) Edit {
	return Edit{Pos: pos, Type: Insert, Chr: ref, QChr: Gap}
}

// NewDelete returns an edit of a read base absent from the reference.
func NewDelete(pos int, q byte) Edit {
	return Edit{Pos: pos, Type: Delete, Chr: Gap, QChr: q}
}

// IsInsert tells if it's an Insert.
func (e Edit) IsInsert() bool { return e.Type == Insert }

// IsDelete tells if it's a Delete.
func (e Edit) IsDelete() bool { return e.Type == Delete }

// IsMismatch tells if it's a Mismatch.
func (e Edit) IsMismatch() bool { return e.Type == Mismatch }

// String returns the compact form: pos:REF>READ.
func (e Edit) String() string {
	return fmt.Sprintf("%d:%c>%c", e.Pos, e.Chr, e.QChr)
}

// List is a list of edits sorted by positions in ascending order.
type List []Edit

// ErrUnsorted means the positions of edits are not in ascending order.
var ErrUnsorted = errors.New("edit: positions not in ascending order")

// ErrOutOfRange means a position is out of the read.
var ErrOutOfRange = errors.New("edit: position out of range")

// ErrInvalidEdit means the characters do not match the edit type.
var ErrInvalidEdit = errors.New("edit: invalid edit")

// ErrInvalidFormat means the text could not be parsed.
var ErrInvalidFormat = errors.New("edit: invalid format")

// Sort sorts edits by positions, keeping the order of edits at the same position.
func (l List) Sort() {
	slices.SortStableFunc(l, func(a, b Edit) int { return a.Pos - b.Pos })
}

// Clone returns a copy of the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	return slices.Clone(l)
}

// Count returns the number of edits of a given type.
func (l List) Count(t Type) int {
	var n int
	for _, e := range l {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Validate checks the order, ranges and characters of edits
// for a read of n positions.
func (l List) Validate(n int) error {
	prev := -1
	for i, e := range l {
		if e.Pos < prev {
			return fmt.Errorf("%w: #%d at %d after %d", ErrUnsorted, i, e.Pos, prev)
		}
		prev = e.Pos

		if e.Pos < 0 || e.Pos > n || (e.Pos == n && e.Type != Insert) {
			return fmt.Errorf("%w: #%d at %d, read length: %d", ErrOutOfRange, i, e.Pos, n)
		}

		switch e.Type {
		case Mismatch:
			if e.Chr == Gap || e.QChr == Gap || e.Chr == e.QChr {
				return fmt.Errorf("%w: %s", ErrInvalidEdit, e)
			}
		case Insert:
			if e.Chr == Gap || e.QChr != Gap {
				return fmt.Errorf("%w: %s", ErrInvalidEdit, e)
			}
		case Delete:
			if e.Chr != Gap || e.QChr == Gap {
				return fmt.Errorf("%w: %s", ErrInvalidEdit, e)
			}
		default:
			return fmt.Errorf("%w: unknown type %d", ErrInvalidEdit, e.Type)
		}
	}
	return nil
}

// Invert returns a new list with positions mirrored to the other strand
// of a read of n positions, sorted again. The input is not modified.
//
// A base at position p moves to n-p-1, while an Insert before position p
// moves to n-p, so inverting twice returns the original list.
func Invert(l List, n int) List {
	if len(l) == 0 {
		return nil
	}
	r := make(List, len(l))
	for i, e := range l {
		if e.Type == Insert {
			e.Pos = n - e.Pos
		} else {
			e.Pos = n - e.Pos - 1
		}
		r[len(l)-1-i] = e
	}
	r.Sort()
	return r
}

// String returns the compact form of all edits, joined by commas.
func (l List) String() string {
	if len(l) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range l {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.String())
	}
	return b.String()
}

// Parse parses the compact text, e.g., "5:A>-,7:->C,9:A>G".
// An empty string or "*" means no edits.
func Parse(s string) (List, error) {
	if s == "" || s == "*" {
		return nil, nil
	}
	items := strings.Split(s, ",")
	l := make(List, 0, len(items))
	for _, item := range items {
		i := strings.IndexByte(item, ':')
		if i <= 0 || len(item) != i+4 || item[i+2] != '>' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, item)
		}
		pos, err := strconv.Atoi(item[:i])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, item)
		}
		ref, q := item[i+1], item[i+3]
		switch {
		case ref == Gap && q == Gap:
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, item)
		case q == Gap:
			l = append(l, NewInsert(pos, ref))
		case ref == Gap:
			l = append(l, NewDelete(pos, q))
		default:
			l = append(l, NewMismatch(pos, ref, q))
		}
	}
	return l, nil
}
