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
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/refseq"
	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRef(t *testing.T, names []string, seqs []string) *refseq.Reader {
	file := filepath.Join(t.TempDir(), "ref")
	w, err := refseq.NewWriter(file)
	require.NoError(t, err)
	for i, name := range names {
		require.NoError(t, w.WriteSeq(name, []byte(seqs[i])))
	}
	require.NoError(t, w.Close())

	r, err := refseq.NewReader(file)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func nucCand(t *testing.T, ref string, pos int, s string) *samio.Candidate {
	sref, err := sam.NewReference(ref, "", "", 1000, nil, nil)
	require.NoError(t, err)
	return &samio.Candidate{
		Record: &sam.Record{Name: "r", Ref: sref, Pos: pos},
		Read:   &aln.Read{Name: []byte("r"), Seq: []byte(s)},
		Result: &aln.Result{
			Coord:   aln.Coord{RefID: 0, Off: int64(pos), Fw: true},
			Extent:  len(s),
			ReadLen: len(s),
			Score:   aln.NewScore(0),
		},
	}
}

func TestCheckGroup(t *testing.T) {
	// the index of chr1 in the store differs from the one in SAM
	ref := buildTestRef(t, []string{"chrX", "chr1"}, []string{"TTTTTTTT", "ACGTACGTAC"})

	g := &samio.Group{Name: "r", Cands: []*samio.Candidate{
		nucCand(t, "chr1", 2, "GTACG"),
		nucCand(t, "chr1", 2, "GTTCG"),
		nucCand(t, "chr9", 2, "GTACG"),
	}}

	rs := checkGroup(g, ref, false, true)
	require.Len(t, rs, 3)

	assert.Equal(t, statusOK, rs[0].status)
	assert.Equal(t, "r\tchr1\t3\t+\tok\t*\t\n", string(rs[0].line))

	assert.Equal(t, statusMismatch, rs[1].status)
	assert.Equal(t, "r\tchr1\t3\t+\tmismatch\t3\tGTTCG;GTACG;  ^  \n", string(rs[1].line))

	assert.Equal(t, statusError, rs[2].status)
	assert.Contains(t, string(rs[2].line), "chr9")

	// the alignment itself is never modified
	assert.Equal(t, 0, g.Cands[0].Result.RefID())

	// only bad ones
	rs = checkGroup(g, ref, true, false)
	require.Len(t, rs, 3)
	assert.Nil(t, rs[0].line)
	assert.Equal(t, "r\tchr1\t3\t+\tmismatch\t3\n", string(rs[1].line))
}

func TestMismatchColumns(t *testing.T) {
	assert.Equal(t, "2,4", mismatchColumns([]bool{true, false, true, false}))
	assert.Equal(t, "*", mismatchColumns([]bool{true, true}))
	assert.Equal(t, "*", mismatchColumns(nil))
}

func TestMarkerLine(t *testing.T) {
	line := markerLine([]byte("ACGT"), []byte("ACCT"), []bool{true, true, false, true})
	assert.Equal(t, "ACGT;ACCT;  ^ ", string(line))
}
