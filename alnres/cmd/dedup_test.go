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

package cmd

import (
	"strconv"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/redundant"
	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nCands int

// newCand returns a candidate with a distinct record.
func newCand(mate int, off int64, score int64) *samio.Candidate {
	nCands++
	return &samio.Candidate{
		Record: &sam.Record{Name: "r" + strconv.Itoa(nCands), Pos: int(off)},
		Result: &aln.Result{
			Coord:   aln.Coord{Off: off, Fw: true},
			Extent:  5,
			ReadLen: 5,
			Score:   aln.NewScore(score),
		},
		Mate: mate,
	}
}

func TestDedupGroup(t *testing.T) {
	worse := newCand(0, 10, -2)
	best := newCand(0, 10, 0)
	shifted := newCand(0, 11, -1) // different diagonal, no shared cell
	far := newCand(0, 100, -5)
	g := &samio.Group{Name: "r", Cands: []*samio.Candidate{worse, best, shifted, far}}

	db := redundant.New()
	r := dedupGroup(g, db, 0)
	assert.Equal(t, 1, r.removed)
	assert.Len(t, r.kept, 3)
	assert.NotContains(t, r.kept, worse.Record)
	assert.Contains(t, r.kept, best.Record)
	assert.Contains(t, r.kept, shifted.Record)
	assert.Contains(t, r.kept, far.Record)
	require.Equal(t, 0, db.Len(), "the DB should be reset after use")

	// limited number of kept alignments
	r = dedupGroup(g, db, 2)
	assert.Equal(t, 2, r.removed)
	assert.Contains(t, r.kept, best.Record)
	assert.Contains(t, r.kept, shifted.Record)
}

func TestDedupGroupMates(t *testing.T) {
	m1 := newCand(1, 10, -1)
	m2 := newCand(2, 10, -1) // same cells as mate 1
	m2b := newCand(2, 10, -3)
	g := &samio.Group{Name: "p", Cands: []*samio.Candidate{m1, m2, m2b}}

	r := dedupGroup(g, redundant.New(), 0)
	assert.Equal(t, 1, r.removed)
	assert.Contains(t, r.kept, m1.Record)
	assert.Contains(t, r.kept, m2.Record)
	assert.NotContains(t, r.kept, m2b.Record)
}

func TestDedupGroupTies(t *testing.T) {
	// equal scores: the first one in the input wins
	a := newCand(0, 10, -1)
	b := newCand(0, 10, -1)
	g := &samio.Group{Name: "r", Cands: []*samio.Candidate{a, b}}

	r := dedupGroup(g, redundant.New(), 0)
	assert.Contains(t, r.kept, a.Record)
	assert.NotContains(t, r.kept, b.Record)
}
