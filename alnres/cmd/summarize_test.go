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

	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/shenwei356/util/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeGroup(t *testing.T) {
	// unmapped
	r := summarizeGroup(&samio.Group{Name: "u"})
	require.NoError(t, r.err)
	assert.Equal(t, "unmapped", r.kind)
	assert.True(t, r.s.Empty())

	// unpaired
	g := &samio.Group{Name: "r", Cands: []*samio.Candidate{
		newCand(0, 10, -3), newCand(0, 50, -1), newCand(0, 90, -6),
	}}
	r = summarizeGroup(g)
	require.NoError(t, r.err)
	assert.Equal(t, "unpaired", r.kind)
	assert.Equal(t, 3, r.alns)
	assert.Equal(t, int64(-1), r.s.Best.Score)
	assert.Equal(t, int64(-3), r.s.SecondBest.Score)
	assert.Equal(t, 2, r.s.Others)
	assert.Equal(t, int64(2), r.s.Diff())

	// paired, scores of mates are added
	g = &samio.Group{Name: "p", Cands: []*samio.Candidate{
		newCand(1, 10, -1), newCand(2, 200, -2),
		newCand(1, 500, -4), newCand(2, 700, 0),
	}}
	r = summarizeGroup(g)
	require.NoError(t, r.err)
	assert.Equal(t, "paired", r.kind)
	assert.Equal(t, 2, r.alns)
	assert.Equal(t, int64(-3), r.s.Best.Score)
	assert.Equal(t, int64(-4), r.s.SecondBest.Score)
	assert.Equal(t, 1, r.s.Others)

	// only one mate aligned
	g = &samio.Group{Name: "p2", Cands: []*samio.Candidate{newCand(2, 10, -2)}}
	r = summarizeGroup(g)
	require.NoError(t, r.err)
	assert.Equal(t, "unpaired", r.kind)
	assert.True(t, r.s.Unique())

	// unequal numbers of alignments of mates
	g = &samio.Group{Name: "p3", Cands: []*samio.Candidate{
		newCand(1, 10, -1), newCand(2, 200, -2), newCand(2, 300, -2),
	}}
	r = summarizeGroup(g)
	assert.Error(t, r.err)
}

func TestSummaryStats(t *testing.T) {
	st := &summaryStats{}
	st.add(summarizeGroup(&samio.Group{Name: "u"}))
	st.add(summarizeGroup(&samio.Group{Name: "a", Cands: []*samio.Candidate{newCand(0, 1, -1)}}))
	st.add(summarizeGroup(&samio.Group{Name: "b", Cands: []*samio.Candidate{newCand(0, 1, -1), newCand(0, 30, -4)}}))
	assert.Equal(t, uint64(1), st.unmapped)
	assert.Equal(t, uint64(1), st.unique)
	assert.Equal(t, uint64(1), st.multi)
	assert.Equal(t, []float64{3}, st.diffs)
}

func TestDescribe(t *testing.T) {
	mean, sd, median := describe([]float64{3, 1, 2})
	assert.InDelta(t, 2.0, mean, 1e-9)
	assert.InDelta(t, 1.0, sd, 1e-9)
	assert.InDelta(t, 2.0, median, 1e-9)

	mean, sd, median = describe([]float64{5})
	assert.Equal(t, []float64{5, 0, 5}, []float64{mean, sd, median})

	mean, sd, median = describe(nil)
	assert.Equal(t, []float64{0, 0, 0}, []float64{mean, sd, median})
}

func TestPlotDiffs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "diffs.png")
	require.NoError(t, plotDiffs([]float64{1, 2, 2, 3, 5, 8}, 5, file))
	existed, err := pathutil.Exists(file)
	require.NoError(t, err)
	assert.True(t, existed)

	assert.Error(t, plotDiffs(nil, 5, file))
}
