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

import "strconv"

// Score is the score of an alignment.
// An invalid score means there is no alignment, it's lower than any valid score.
type Score struct {
	Score int64 // alignment score
	Gaps  int   // number of gap positions
	Ns    int   // number of ambiguous positions

	Valid bool
}

// NewScore returns a valid score.
func NewScore(score int64) Score {
	return Score{Score: score, Valid: true}
}

// InvalidScore returns an invalid score.
func InvalidScore() Score {
	return Score{}
}

// Invalidate marks the score invalid.
func (s *Score) Invalidate() {
	*s = Score{}
}

// Greater tells if s is better than o.
func (s Score) Greater(o Score) bool {
	if !s.Valid {
		return false
	}
	if !o.Valid {
		return true
	}
	return s.Score > o.Score
}

// Equal tells if two scores are equal in order.
func (s Score) Equal(o Score) bool {
	if !s.Valid || !o.Valid {
		return s.Valid == o.Valid
	}
	return s.Score == o.Score
}

// Add returns the sum of two scores, e.g., the score of a pair of mates.
// The sum is invalid if any of them is invalid.
func (s Score) Add(o Score) Score {
	if !s.Valid || !o.Valid {
		return Score{}
	}
	return Score{
		Score: s.Score + o.Score,
		Gaps:  s.Gaps + o.Gaps,
		Ns:    s.Ns + o.Ns,
		Valid: true,
	}
}

func (s Score) String() string {
	if !s.Valid {
		return "*"
	}
	return strconv.FormatInt(s.Score, 10)
}
