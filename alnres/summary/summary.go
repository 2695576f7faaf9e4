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

// Package summary summarizes the candidate alignments of a read or a read
// pair into the best and second-best scores, which are used for estimating
// mapping qualities.
package summary

import (
	"errors"
	"fmt"

	"github.com/shenwei356/alnres/alnres/aln"
)

// ErrPairLengthMismatch means the numbers of alignments of two mates differ.
var ErrPairLengthMismatch = errors.New("summary: numbers of alignments of two mates differ")

// ErrEmptyCollection means a collection of alignments is given but empty.
var ErrEmptyCollection = errors.New("summary: empty collection of alignments")

// ErrNilResult means a collection of alignments contains a nil one.
var ErrNilResult = errors.New("summary: nil alignment in a collection")

// Summary is the summary of a set of alignments.
type Summary struct {
	Best       aln.Score // score of the best alignment
	SecondBest aln.Score // score of the second-best alignment
	Others     int       // number of alignments other than the best one
}

// New summarizes alignments of a read pair (rs1 and rs2 are alignments of
// mate 1 and mate 2, the i-th alignments of both forms a paired alignment),
// or an unpaired read (only one of rs1 and rs2 is not nil).
// When both are nil, the summary is empty. A nil alignment in either
// collection is reported with ErrNilResult.
func New(rs1, rs2 []*aln.Result) (Summary, error) {
	var s Summary
	s.Best.Invalidate()
	s.SecondBest.Invalidate()

	paired := rs1 != nil && rs2 != nil
	switch {
	case paired:
		if len(rs1) != len(rs2) {
			return Summary{}, fmt.Errorf("%w: %d vs %d", ErrPairLengthMismatch, len(rs1), len(rs2))
		}
		if len(rs1) == 0 {
			return Summary{}, ErrEmptyCollection
		}
		for i, r := range rs1 {
			if r == nil || rs2[i] == nil {
				return Summary{}, fmt.Errorf("%w: pair #%d", ErrNilResult, i)
			}
			s.update(r.Score.Add(rs2[i].Score))
		}
		s.Others = len(rs1) - 1
	case rs1 != nil || rs2 != nil:
		rs := rs1
		if rs == nil {
			rs = rs2
		}
		if len(rs) == 0 {
			return Summary{}, ErrEmptyCollection
		}
		for i, r := range rs {
			if r == nil {
				return Summary{}, fmt.Errorf("%w: #%d", ErrNilResult, i)
			}
			s.update(r.Score)
		}
		s.Others = len(rs) - 1
	}
	return s, nil
}

// FromScores summarizes a list of alignment scores.
func FromScores(scores []aln.Score) Summary {
	var s Summary
	for _, sc := range scores {
		s.update(sc)
	}
	if len(scores) > 0 {
		s.Others = len(scores) - 1
	}
	return s
}

// update folds a score in. A tie with the best is kept as the second best
// only when it's better than the current second best.
func (s *Summary) update(sc aln.Score) {
	if sc.Greater(s.Best) {
		s.SecondBest = s.Best
		s.Best = sc
	} else if sc.Greater(s.SecondBest) {
		s.SecondBest = sc
	}
}

// Empty tells if no alignment was found.
func (s Summary) Empty() bool {
	return !s.Best.Valid
}

// Unique tells if there's only one valid alignment.
func (s Summary) Unique() bool {
	return s.Best.Valid && !s.SecondBest.Valid
}

// Diff returns the difference between the best and second-best scores.
// The best score is returned if there's no second-best alignment,
// and 0 for an empty summary.
func (s Summary) Diff() int64 {
	if !s.Best.Valid {
		return 0
	}
	if !s.SecondBest.Valid {
		return s.Best.Score
	}
	return s.Best.Score - s.SecondBest.Score
}

func (s Summary) String() string {
	return fmt.Sprintf("best:%s secbest:%s others:%d", s.Best, s.SecondBest, s.Others)
}
