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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/alnres/alnres/aln"
	"github.com/shenwei356/alnres/alnres/colorspace"
	"github.com/shenwei356/alnres/alnres/refseq"
	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check if alignments are consistent with the reference sequences",
	Long: `Check if alignments are consistent with the reference sequences

How:
  1. The reference stretch implied by an alignment is rebuilt from the read
     sequence (decoded nucleotides for colorspace reads) and the edits,
     and is compared with the real one in the reference store.
  2. Positions out of the reference sequence are treated as N.

Input:
  1. A reference store created by "alnres build-ref".
  2. SAM files, where records of a read should be consecutive.

Output (TSV):
  1. read,      read name
  2. ref,       reference name
  3. pos,       1-based start position
  4. strand,    "+" or "-"
  5. status,    "ok", "mismatch", or "error"
  6. columns,   1-based mismatching columns, or the error message
  7. marker,    with the flag -m/--marker, the rebuilt and real reference,
                with "^" under mismatching columns.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------

		refFile := getFlagString(cmd, "ref")
		if refFile == "" {
			checkError(fmt.Errorf("flag -r/--ref needed"))
		}
		refFile = expandPath(refFile)
		outFile := expandPath(getFlagString(cmd, "out-file"))
		onlyBad := getFlagBool(cmd, "only-mismatches")
		marker := getFlagBool(cmd, "marker")
		noHeader := getFlagBool(cmd, "no-header-row")

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		for i, file := range files {
			files[i] = expandPath(file)
		}

		// ---------------------------------------------------------------

		ref, err := refseq.NewReader(refFile)
		checkError(errors.Wrap(err, refFile))
		defer func() {
			checkError(ref.Close())
		}()
		if outputLog {
			info := ref.Info()
			log.Infof("reference store: %s, %d sequences, %s bases",
				filepath.Base(refFile), info.Seqs, humanize.Comma(info.Bases))
		}

		makeOutDir(outFile)
		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		if !noHeader {
			if marker {
				fmt.Fprintln(outfh, "read\tref\tpos\tstrand\tstatus\tcolumns\tmarker")
			} else {
				fmt.Fprintln(outfh, "read\tref\tpos\tstrand\tstatus\tcolumns")
			}
		}

		var nOK, nBad, nErr uint64

		sopt := &SAMProcessingOptions{Threads: opt.NumCPUs, Verbose: opt.Verbose}
		processSAMFiles(files, sopt,
			func(g *samio.Group) []*checkResult {
				return checkGroup(g, ref, onlyBad, marker)
			},
			func(g *samio.Group, rs []*checkResult) {
				for _, r := range rs {
					switch r.status {
					case statusOK:
						nOK++
					case statusMismatch:
						nBad++
					default:
						nErr++
					}
					if r.line != nil {
						outfh.Write(r.line)
					}
				}
			},
		)

		if outputLog {
			log.Infof("alignments checked: %s, consistent: %s, inconsistent: %s, failed: %s",
				humanize.Comma(int64(nOK+nBad+nErr)), humanize.Comma(int64(nOK)),
				humanize.Comma(int64(nBad)), humanize.Comma(int64(nErr)))
			if outFile != "-" {
				log.Infof("results saved to: %s", outFile)
			}
		}
	},
}

const (
	statusOK       = "ok"
	statusMismatch = "mismatch"
	statusError    = "error"
)

type checkResult struct {
	status string
	line   []byte // nil for skipped ones
}

// checkGroup checks every candidate of a group against the reference.
func checkGroup(g *samio.Group, ref *refseq.Reader, onlyBad bool, marker bool) []*checkResult {
	rs := make([]*checkResult, 0, len(g.Cands))
	for _, c := range g.Cands {
		r := &checkResult{}
		rs = append(rs, r)

		var cols string
		var rf, real []byte
		ok, matches, err := checkCandidate(c, ref)
		switch {
		case err != nil:
			r.status = statusError
			cols = err.Error()
		case ok:
			r.status = statusOK
			cols = "*"
			if onlyBad {
				continue
			}
		default:
			r.status = statusMismatch
			cols = mismatchColumns(matches)
			if marker {
				rf, real, _ = rebuilt(c, ref)
			}
		}

		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%s\t%s\t%d\t%c\t%s\t%s", g.Name, c.Record.Ref.Name(),
			c.Record.Pos+1, strand(c.Result.Fw()), r.status, cols)
		if marker {
			buf.WriteByte('\t')
			if rf != nil {
				buf.Write(markerLine(rf, real, matches))
			}
		}
		buf.WriteByte('\n')
		r.line = buf.Bytes()
	}
	return rs
}

// refResult returns a copy of the result with the reference index in the store.
func refResult(c *samio.Candidate, ref *refseq.Reader) (*aln.Result, error) {
	name := c.Record.Ref.Name()
	idx, ok := ref.ID(name)
	if !ok {
		return nil, fmt.Errorf("reference sequence not found in the store: %s", name)
	}
	res := *c.Result
	res.Coord.RefID = idx
	return &res, nil
}

func decodedSeq(c *samio.Candidate) ([]byte, error) {
	if !c.Read.Color {
		return nil, nil
	}
	dec, err := colorspace.DecodeResult(c.Read, c.Result)
	if err != nil {
		return nil, err
	}
	return dec.Seq(), nil
}

func checkCandidate(c *samio.Candidate, ref *refseq.Reader) (bool, []bool, error) {
	res, err := refResult(c, ref)
	if err != nil {
		return false, nil, err
	}
	decoded, err := decodedSeq(c)
	if err != nil {
		return false, nil, err
	}
	return aln.MatchesRef(res, c.Read, decoded, ref)
}

// rebuilt returns the reference rebuilt from the read, and the real one.
func rebuilt(c *samio.Candidate, ref *refseq.Reader) ([]byte, []byte, error) {
	res, err := refResult(c, ref)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := decodedSeq(c)
	if err != nil {
		return nil, nil, err
	}
	rf, err := aln.RebuildRef(res, c.Read, decoded)
	if err != nil {
		return nil, nil, err
	}
	real, err := ref.Stretch(res.RefID(), res.RefOff(), len(rf))
	if err != nil {
		return nil, nil, err
	}
	return rf, real, nil
}

// mismatchColumns returns 1-based positions of false values, joined by commas.
func mismatchColumns(matches []bool) string {
	var b strings.Builder
	for i, ok := range matches {
		if ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(i + 1))
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

// markerLine joins the rebuilt and real references and a line of markers
// with ";", e.g., ACGTA;ACTTA;  ^  .
func markerLine(rf, real []byte, matches []bool) []byte {
	buf := make([]byte, 0, len(rf)*3+2)
	buf = append(buf, rf...)
	buf = append(buf, ';')
	buf = append(buf, real...)
	buf = append(buf, ';')
	for i := range rf {
		if i < len(matches) && !matches[i] {
			buf = append(buf, '^')
		} else {
			buf = append(buf, ' ')
		}
	}
	return buf
}

func init() {
	RootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("ref", "r", "",
		formatFlagUsage(`Reference store created by "alnres build-ref".`))

	checkCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	checkCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	checkCmd.Flags().BoolP("only-mismatches", "b", false,
		formatFlagUsage(`Only output inconsistent or failed alignments.`))

	checkCmd.Flags().BoolP("marker", "m", false,
		formatFlagUsage(`Output the rebuilt and real reference with markers of mismatching columns.`))

	checkCmd.Flags().BoolP("no-header-row", "H", false,
		formatFlagUsage(`Do not output header row.`))

	checkCmd.SetUsageTemplate(usageTemplate("-r <ref store> [SAM files...]"))
}
