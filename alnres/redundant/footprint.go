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

package redundant

import "github.com/shenwei356/alnres/alnres/aln"

// Footprint calls fn for each cell visited by an alignment, row by row,
// and stops when fn returns false.
//
// In each row, the alignment occupies one column, plus one more column for
// each Insert before the next read position. A Delete at a row keeps the
// next row in the same column.
func Footprint(res *aln.Result, fn func(Cell) bool) {
	ned := res.WatsonNed()
	nrow := res.Rows()
	refID, fw := res.Coord.RefID, res.Coord.Fw

	left := res.Coord.Off
	var right, diff, j int64
	var e, k int
	for i := 0; i < nrow; i++ {
		diff = 1 // shift to the right for the next row
		right = left + 1

		for e < len(ned) && ned[e].Pos == i {
			if ned[e].IsDelete() {
				diff = 0
			}
			e++
		}

		// inserts before the next read position
		if i < nrow-1 {
			for k = e; k < len(ned) && ned[k].Pos == i+1; k++ {
				if ned[k].IsInsert() {
					right++
				}
			}
		}

		for j = left; j < right; j++ {
			if !fn(Cell{RefID: refID, Fw: fw, RefOff: j, Row: i}) {
				return
			}
		}

		left = right + diff - 1
	}
}

// Cells returns all cells visited by an alignment.
func Cells(res *aln.Result) []Cell {
	cells := make([]Cell, 0, res.Rows()+len(res.Ned))
	Footprint(res, func(c Cell) bool {
		cells = append(cells, c)
		return true
	})
	return cells
}

// Span returns the leftmost and rightmost columns visited by an alignment.
func Span(res *aln.Result) (int64, int64) {
	lo, hi := res.Coord.Off, res.Coord.Off
	Footprint(res, func(c Cell) bool {
		if c.RefOff < lo {
			lo = c.RefOff
		} else if c.RefOff > hi {
			hi = c.RefOff
		}
		return true
	})
	return lo, hi
}

// Window returns columns bounding all cells of an alignment, computed from
// its coordinates only. Columns never move left from row to row, and the
// last one is at most Off+Extent, one more for colorspace alignments.
func Window(res *aln.Result) (int64, int64) {
	hi := res.Coord.Off + int64(res.Extent)
	if res.Color {
		hi++
	}
	return res.Coord.Off, hi
}

// Overlaps tells if two alignments share any cell, without a DB.
func Overlaps(a, b *aln.Result) bool {
	if a.Coord.RefID != b.Coord.RefID || a.Coord.Fw != b.Coord.Fw {
		return false
	}
	cells := make(map[Cell]struct{}, a.Rows()+len(a.Ned))
	Footprint(a, func(c Cell) bool {
		cells[c] = struct{}{}
		return true
	})
	var olap bool
	Footprint(b, func(c Cell) bool {
		if _, ok := cells[c]; ok {
			olap = true
			return false
		}
		return true
	})
	return olap
}
