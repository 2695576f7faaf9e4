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

// Package format writes sequences and qualities of aligned reads,
// from upstream to downstream on the Watson strand.
package format

import (
	"errors"
	"io"

	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/colorspace"
)

// ErrNoDecoded means a colorspace read is not decoded yet.
var ErrNoDecoded = errors.New("format: decoded sequence needed for colorspace read")

// ErrColorsOfNucleotideRead means colors are requested for a nucleotide read.
var ErrColorsOfNucleotideRead = errors.New("format: no colors for nucleotide read")

// Options controls the output.
type Options struct {
	// print colors instead of decoded nucleotides for colorspace reads
	PrintColors bool
	// exclude the two end nucleotides when printing decoded sequences
	ExcludeEnds bool
}

func (o *Options) check(rd *aln.Read, dec *colorspace.Decoded) error {
	if o.PrintColors && !rd.Color {
		return ErrColorsOfNucleotideRead
	}
	if rd.Color && !o.PrintColors && dec == nil {
		return ErrNoDecoded
	}
	return nil
}

// Seq returns the sequence of an aligned read.
//
// Nucleotide reads are reverse-complemented for reverse-strand alignments,
// while colors are only reversed. For colorspace reads, the decoded
// nucleotides are returned unless PrintColors is set.
func Seq(rd *aln.Read, dec *colorspace.Decoded, fw bool, opt *Options) ([]byte, error) {
	if err := opt.check(rd, dec); err != nil {
		return nil, err
	}

	if !rd.Color {
		if fw {
			return append([]byte{}, rd.Seq...), nil
		}
		return aln.RevComp(rd.Seq)
	}

	if opt.PrintColors {
		s := colorspace.CallsToASCII(rd.Seq)
		if !fw {
			reverse(s)
		}
		return s, nil
	}

	s := dec.Seq()
	if opt.ExcludeEnds {
		if len(s) < 2 {
			return []byte{}, nil
		}
		s = s[1 : len(s)-1]
	}
	return s, nil
}

// Quals returns the qualities of an aligned read, ASCII-encoded with
// an offset of 33.
func Quals(rd *aln.Read, dec *colorspace.Decoded, fw bool, opt *Options) ([]byte, error) {
	if err := opt.check(rd, dec); err != nil {
		return nil, err
	}

	if !rd.Color || opt.PrintColors {
		q := append([]byte{}, rd.Qual...)
		if !fw {
			reverse(q)
		}
		return q, nil
	}

	q := dec.QualString()
	if opt.ExcludeEnds {
		if len(q) < 2 {
			return []byte{}, nil
		}
		q = q[1 : len(q)-1]
	}
	return q, nil
}

// WriteSeq writes the sequence of an aligned read.
func WriteSeq(w io.Writer, rd *aln.Read, dec *colorspace.Decoded, fw bool, opt *Options) error {
	s, err := Seq(rd, dec, fw, opt)
	if err != nil {
		return err
	}
	_, err = w.Write(s)
	return err
}

// WriteQuals writes the qualities of an aligned read.
func WriteQuals(w io.Writer, rd *aln.Read, dec *colorspace.Decoded, fw bool, opt *Options) error {
	q, err := Quals(rd, dec, fw, opt)
	if err != nil {
		return err
	}
	_, err = w.Write(q)
	return err
}

// WriteFastq writes an aligned read in FASTQ format.
// The comment is appended to the read name after a space if given.
func WriteFastq(w io.Writer, rd *aln.Read, dec *colorspace.Decoded, fw bool, comment []byte, opt *Options) error {
	s, err := Seq(rd, dec, fw, opt)
	if err != nil {
		return err
	}
	q, err := Quals(rd, dec, fw, opt)
	if err != nil {
		return err
	}

	buf := make([]byte, 0, len(rd.Name)+len(comment)+len(s)+len(q)+6)
	buf = append(buf, '@')
	buf = append(buf, rd.Name...)
	if len(comment) > 0 {
		buf = append(buf, ' ')
		buf = append(buf, comment...)
	}
	buf = append(buf, '\n')
	buf = append(buf, s...)
	buf = append(buf, "\n+\n"...)
	buf = append(buf, q...)
	buf = append(buf, '\n')
	_, err = w.Write(buf)
	return err
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
