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

// Package samio reads candidate alignments from SAM files.
//
// Records of a read (or a read pair) should be consecutive, as output by
// most aligners. Each group of records is converted into alignment results
// with edits on the original read strand.
//
// Besides the standard fields and the MD tag, these tags are recognized:
//
//	AS:i  alignment score
//	CS:Z  color calls of colorspace reads, with the primer base
//	CQ:Z  color qualities of colorspace reads
//	YC:Z  color edits, e.g., 3:2>1, positions on the read strand
//	YA:Z  decoded 5' and 3' end nucleotides, e.g., AT
package samio

import (
	"errors"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/colorspace"
	"github.com/shenwei356/alnres/alnres/edit"
	"github.com/shenwei356/xopen"
	"github.com/zeebo/wyhash"
)

// ErrNotGrouped means records of a read are not consecutive.
var ErrNotGrouped = errors.New("samio: records of a read are not consecutive")

// ErrColorSeqLength means the decoded sequence of a colorspace record
// does not have one more base than the colors.
var ErrColorSeqLength = errors.New("samio: decoded sequence should have one more base than colors")

// ErrInvalidTag means a tag has a value of unexpected type or format.
var ErrInvalidTag = errors.New("samio: invalid tag")

var (
	tagAS = sam.NewTag("AS")
	tagMD = sam.NewTag("MD")
	tagCS = sam.NewTag("CS")
	tagCQ = sam.NewTag("CQ")
	tagYC = sam.NewTag("YC")
	tagYA = sam.NewTag("YA")
)

// Candidate is an alignment converted from a SAM record.
type Candidate struct {
	Record *sam.Record
	Read   *aln.Read
	Result *aln.Result
	Mate   int // 0 for unpaired reads, 1 or 2 for mates
}

// Group is all records of a read or a read pair.
type Group struct {
	Name     string
	Records  []*sam.Record // all records, including unmapped ones
	Cands    []*Candidate  // mapped records
	Warnings []error       // records failed to convert
}

// Paired tells if any candidate is from a mate.
func (g *Group) Paired() bool {
	for _, c := range g.Cands {
		if c.Mate > 0 {
			return true
		}
	}
	return false
}

// Mates returns the alignments of two mates, for summarizing.
// For paired reads, the i-th alignments of both mates are from
// the same paired alignment. For unpaired reads, or pairs with only one
// mate aligned, the alignments are in rs1 and rs2 is nil.
// Both are nil when no record is mapped.
func (g *Group) Mates() (rs1, rs2 []*aln.Result) {
	if len(g.Cands) == 0 {
		return nil, nil
	}
	if !g.Paired() {
		rs1 = make([]*aln.Result, len(g.Cands))
		for i, c := range g.Cands {
			rs1[i] = c.Result
		}
		return rs1, nil
	}
	rs1 = make([]*aln.Result, 0, len(g.Cands)>>1)
	rs2 = make([]*aln.Result, 0, len(g.Cands)>>1)
	for _, c := range g.Cands {
		if c.Mate == 2 {
			rs2 = append(rs2, c.Result)
		} else {
			rs1 = append(rs1, c.Result)
		}
	}
	if len(rs2) == 0 {
		return rs1, nil
	}
	if len(rs1) == 0 {
		return rs2, nil
	}
	return rs1, rs2
}

// Reader reads SAM records and groups them by read names.
type Reader struct {
	fh *xopen.Reader
	r  *sam.Reader

	next *sam.Record
	seen map[uint64]struct{}
	done bool
}

// NewReader opens a SAM file, "-" for stdin.
func NewReader(file string) (*Reader, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	r, err := sam.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	return &Reader{fh: fh, r: r, seen: make(map[uint64]struct{}, 1<<20)}, nil
}

// Header returns the SAM header.
func (r *Reader) Header() *sam.Header { return r.r.Header() }

// Close closes the file.
func (r *Reader) Close() error { return r.fh.Close() }

// Next returns the next group of records, and io.EOF at the end.
func (r *Reader) Next() (*Group, error) {
	if r.done {
		return nil, io.EOF
	}

	var rec *sam.Record
	var err error
	if r.next == nil {
		r.next, err = r.r.Read()
		if err != nil {
			r.done = true
			return nil, err
		}
	}

	g := &Group{Name: r.next.Name, Records: []*sam.Record{r.next}}
	h := wyhash.Hash([]byte(g.Name), 1)
	if _, ok := r.seen[h]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGrouped, g.Name)
	}
	r.seen[h] = struct{}{}

	for {
		rec, err = r.r.Read()
		if err != nil {
			r.next = nil
			r.done = true
			if err != io.EOF {
				return nil, err
			}
			break
		}
		if rec.Name != g.Name {
			r.next = rec
			break
		}
		g.Records = append(g.Records, rec)
	}

	var c *Candidate
	for _, rec = range g.Records {
		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			continue
		}
		c, err = Convert(rec)
		if err != nil {
			g.Warnings = append(g.Warnings, fmt.Errorf("%s at %s:%d: %w", rec.Name, rec.Ref.Name(), rec.Pos+1, err))
			continue
		}
		g.Cands = append(g.Cands, c)
	}

	return g, nil
}

// Convert converts a mapped SAM record into an alignment.
func Convert(rec *sam.Record) (*Candidate, error) {
	fw := rec.Flags&sam.Reverse == 0
	seq := rec.Seq.Expand() // on the Watson strand

	var md string
	if aux := rec.AuxFields.Get(tagMD); aux != nil {
		v, ok := aux.Value().(string)
		if !ok {
			return nil, fmt.Errorf("%w: MD", ErrInvalidTag)
		}
		md = v
	}

	ned, extent, err := edit.FromCigar(rec.Cigar, md, seq)
	if err != nil {
		return nil, err
	}

	rd := &aln.Read{Name: []byte(rec.Name)}
	res := &aln.Result{
		Coord:  aln.Coord{RefID: rec.Ref.ID(), Off: int64(rec.Pos), Fw: fw},
		Extent: extent,
	}

	if cs := rec.AuxFields.Get(tagCS); cs != nil {
		err = convertColor(rec, seq, cs, rd, res)
		if err != nil {
			return nil, err
		}
	} else {
		res.ReadLen = len(seq)
		if fw {
			rd.Seq = seq
		} else {
			rd.Seq, err = aln.RevComp(seq)
			if err != nil {
				return nil, err
			}
		}
		rd.Qual = phred2ascii(rec.Qual, !fw)
	}

	// edits on the read strand
	if fw {
		res.Ned = ned
	} else {
		res.Ned = edit.Invert(ned, res.Rows())
	}

	res.Score, err = score(rec, res)
	if err != nil {
		return nil, err
	}

	if err = res.Validate(); err != nil {
		return nil, err
	}

	c := &Candidate{Record: rec, Read: rd, Result: res}
	switch {
	case rec.Flags&sam.Read1 != 0:
		c.Mate = 1
	case rec.Flags&sam.Read2 != 0:
		c.Mate = 2
	}
	return c, nil
}

func convertColor(rec *sam.Record, seq []byte, cs sam.Aux, rd *aln.Read, res *aln.Result) error {
	v, ok := cs.Value().(string)
	if !ok || len(v) < 2 {
		return fmt.Errorf("%w: CS", ErrInvalidTag)
	}
	_, calls := colorspace.ParseCSTag([]byte(v))
	L := len(calls)
	if len(seq) != L+1 {
		return fmt.Errorf("%w: %d bases, %d colors", ErrColorSeqLength, len(seq), L)
	}
	fw := res.Coord.Fw

	rd.Color = true
	rd.Seq = calls
	if cq := rec.AuxFields.Get(tagCQ); cq != nil {
		q, ok := cq.Value().(string)
		if !ok || len(q) != L {
			return fmt.Errorf("%w: CQ", ErrInvalidTag)
		}
		rd.Qual = []byte(q)
	} else {
		rd.Qual = make([]byte, L)
		for i := range rd.Qual {
			rd.Qual[i] = 'I'
		}
	}

	res.Color = true
	res.ReadLen = L
	res.Extent-- // columns are counted by colors

	if yc := rec.AuxFields.Get(tagYC); yc != nil {
		s, ok := yc.Value().(string)
		if !ok {
			return fmt.Errorf("%w: YC", ErrInvalidTag)
		}
		ced, err := edit.Parse(s)
		if err != nil {
			return fmt.Errorf("%w: YC: %w", ErrInvalidTag, err)
		}
		res.Ced = ced
	}

	// the end nucleotides on the read strand
	if ya := rec.AuxFields.Get(tagYA); ya != nil {
		s, ok := ya.Value().(string)
		if !ok || len(s) != 2 {
			return fmt.Errorf("%w: YA", ErrInvalidTag)
		}
		res.Nuc5p, res.Nuc3p = colorspace.NucCode(s[0]), colorspace.NucCode(s[1])
	} else if fw {
		res.Nuc5p, res.Nuc3p = colorspace.NucCode(seq[0]), colorspace.NucCode(seq[L])
	} else {
		res.Nuc5p, res.Nuc3p = colorspace.NucCode(seq[L]), colorspace.NucCode(seq[0])
	}
	return nil
}

// score reads AS:i, or uses the negative number of edits if it's absent.
func score(rec *sam.Record, res *aln.Result) (aln.Score, error) {
	var sc aln.Score
	aux := rec.AuxFields.Get(tagAS)
	if aux == nil {
		sc = aln.NewScore(-int64(len(res.Ned) + len(res.Ced)))
	} else {
		v, ok := auxInt(aux)
		if !ok {
			return sc, fmt.Errorf("%w: AS", ErrInvalidTag)
		}
		sc = aln.NewScore(v)
	}
	sc.Gaps = res.Ned.Count(edit.Insert) + res.Ned.Count(edit.Delete)
	for _, e := range res.Ned {
		if e.Chr == 'N' || e.QChr == 'N' {
			sc.Ns++
		}
	}
	return sc, nil
}

func auxInt(aux sam.Aux) (int64, bool) {
	switch v := aux.Value().(type) {
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case int16:
		return int64(v), true
	case uint16:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint32:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// phred2ascii converts qualities stored in biogo records to ASCII.
func phred2ascii(qual []byte, rev bool) []byte {
	q := make([]byte, len(qual))
	for i, v := range qual {
		if v == 0xff { // missing
			v = 40
		}
		if v > 93 {
			v = 93
		}
		if rev {
			q[len(qual)-1-i] = v + 33
		} else {
			q[i] = v + 33
		}
	}
	return q
}
