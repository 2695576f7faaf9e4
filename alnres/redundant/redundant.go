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

// Package redundant keeps track of the cells of the dynamic programming
// matrix that are already occupied by reported alignments, so that
// alignments taking the same path (or a part of it) with different
// backtracking choices could be suppressed.
//
// Rows of the matrix are read positions and columns are reference offsets.
// All cells are computed on the Watson strand.
package redundant

import (
	"fmt"

	"github.com/rdleal/intervalst/interval"
	"github.com/shenwei356/alnres/alnres/aln"
)

// Cell is an occupied cell in the dynamic programming matrix.
type Cell struct {
	RefID  int   // reference index
	Fw     bool  // strand
	RefOff int64 // column
	Row    int   // row, i.e., position on the read
}

func (c Cell) String() string {
	if c.Fw {
		return fmt.Sprintf("%d:+:%d:%d", c.RefID, c.RefOff, c.Row)
	}
	return fmt.Sprintf("%d:-:%d:%d", c.RefID, c.RefOff, c.Row)
}

// ConflictError is returned when adding an alignment sharing cells with
// previously added ones.
type ConflictError struct {
	Cell   Cell
	Result *aln.Result
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("redundant: cell %s of alignment %s already occupied", e.Cell, e.Result.Coord)
}

type strandKey struct {
	refID int
	fw    bool
}

// DB is a database of occupied cells, for the candidate alignments of
// one read (or read pair). It's not safe for concurrent use,
// each worker should own one DB.
type DB struct {
	cells map[Cell]struct{}

	// column ranges of added alignments, for quickly excluding
	// alignments far away from all added ones.
	spans map[strandKey]*interval.SearchTree[int, int64]

	added []Cell // reusable buffer for rolling back a failed Add
	n     int    // number of added alignments
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		cells: make(map[Cell]struct{}, 256),
		spans: make(map[strandKey]*interval.SearchTree[int, int64], 4),
		added: make([]Cell, 0, 256),
	}
}

var cmpInt64 = func(x, y int64) int {
	if x < y {
		return -1
	}
	if x > y {
		return 1
	}
	return 0
}

// Alignments returns the number of added alignments.
func (db *DB) Alignments() int { return db.n }

// Len returns the number of occupied cells.
func (db *DB) Len() int { return len(db.cells) }

// Contains tells if a cell is occupied.
func (db *DB) Contains(c Cell) bool {
	_, ok := db.cells[c]
	return ok
}

// Reset empties the DB for reuse.
func (db *DB) Reset() {
	clear(db.cells)
	clear(db.spans)
	db.added = db.added[:0]
	db.n = 0
}

// Add adds all cells visited by an alignment.
// Adding a cell that is already occupied means the caller adds
// overlapping alignments, a *ConflictError is returned
// and the DB is left unchanged.
func (db *DB) Add(res *aln.Result) error {
	db.added = db.added[:0]
	var conflict *Cell
	lo, hi := int64(0), int64(-1)
	Footprint(res, func(c Cell) bool {
		if _, ok := db.cells[c]; ok {
			conflict = &c
			return false
		}
		db.cells[c] = struct{}{}
		db.added = append(db.added, c)
		if hi < lo {
			lo, hi = c.RefOff, c.RefOff
		} else if c.RefOff > hi {
			hi = c.RefOff
		} else if c.RefOff < lo {
			lo = c.RefOff
		}
		return true
	})

	if conflict != nil {
		for _, c := range db.added {
			delete(db.cells, c)
		}
		db.added = db.added[:0]
		return &ConflictError{Cell: *conflict, Result: res}
	}

	if hi >= lo {
		key := strandKey{refID: res.Coord.RefID, fw: res.Coord.Fw}
		t, ok := db.spans[key]
		if !ok {
			t = interval.NewSearchTree[int, int64](cmpInt64)
			db.spans[key] = t
		}
		// one more column to the right, so a single-column span is never empty
		if err := t.Insert(lo, hi+1, db.n); err != nil {
			return err
		}
	}
	db.n++
	return nil
}

// Overlap tells if any cell visited by the alignment is occupied.
// It returns as soon as an occupied cell is found.
func (db *DB) Overlap(res *aln.Result) bool {
	if len(db.cells) == 0 {
		return false
	}

	t, ok := db.spans[strandKey{refID: res.Coord.RefID, fw: res.Coord.Fw}]
	if !ok {
		return false
	}
	lo, hi := Window(res)
	if _, ok = t.AnyIntersection(lo-1, hi+1); !ok {
		return false
	}

	var olap bool
	Footprint(res, func(c Cell) bool {
		if _, ok := db.cells[c]; ok {
			olap = true
			return false
		}
		return true
	})
	return olap
}
