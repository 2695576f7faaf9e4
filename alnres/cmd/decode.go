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
	"strings"
	"time"

	"github.com/shenwei356/alnres/alnres/colorspace"
	"github.com/shenwei356/alnres/alnres/format"
	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode colorspace alignments into nucleotides and qualities",
	Long: `Decode colorspace alignments into nucleotides and qualities

How:
  1. Color calls (CS:Z) are decoded into nucleotides, starting from the
     upstream end nucleotide on the Watson strand (YA:Z, or the SEQ field).
  2. Miscalled colors recorded in YC:Z are corrected first.
  3. The quality of a decoded nucleotide is the sum of the qualities of its
     two adjacent colors, where a corrected color contributes a negative
     quality. The qualities of the two end nucleotides come from the only
     adjacent color.

Output (FASTQ):
  1. Sequences are from upstream to downstream on the Watson strand.
  2. Read names are followed by the alignment position: ref:pos(1-based):strand.
  3. Nucleotide reads are output as they are in the alignment.

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

		outFile := expandPath(getFlagString(cmd, "out-file"))
		fopt := &format.Options{
			PrintColors: getFlagBool(cmd, "print-colors"),
			ExcludeEnds: getFlagBool(cmd, "exclude-ends"),
		}
		colorOnly := getFlagBool(cmd, "color-only")

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		for i, file := range files {
			files[i] = expandPath(file)
		}

		// ---------------------------------------------------------------

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

		var decoded, failed uint64

		sopt := &SAMProcessingOptions{Threads: opt.NumCPUs, Verbose: opt.Verbose}
		processSAMFiles(files, sopt,
			func(g *samio.Group) *decodeResult {
				return decodeGroup(g, fopt, colorOnly)
			},
			func(g *samio.Group, r *decodeResult) {
				for _, err := range r.errs {
					log.Warningf("%s", err)
				}
				decoded += uint64(r.n)
				failed += uint64(len(r.errs))
				outfh.Write(r.buf.Bytes())
			},
		)

		if outputLog {
			log.Infof("%d alignments output, %d failed", decoded, failed)
			if outFile != "-" {
				log.Infof("results saved to: %s", outFile)
			}
		}
	},
}

type decodeResult struct {
	buf  bytes.Buffer
	n    int
	errs []error
}

// decodeGroup decodes all colorspace alignments of a group into FASTQ records.
func decodeGroup(g *samio.Group, fopt *format.Options, colorOnly bool) *decodeResult {
	r := &decodeResult{}
	var dec *colorspace.Decoded
	var err error
	for _, c := range g.Cands {
		if !c.Read.Color {
			if colorOnly {
				continue
			}
			dec = nil
		} else {
			dec, err = colorspace.DecodeResult(c.Read, c.Result)
			if err != nil {
				r.errs = append(r.errs, fmt.Errorf("%s at %s:%d: %w",
					g.Name, c.Record.Ref.Name(), c.Record.Pos+1, err))
				continue
			}
		}

		comment := fmt.Sprintf("%s:%d:%c", c.Record.Ref.Name(), c.Record.Pos+1, strand(c.Result.Fw()))
		_fopt := fopt
		if !c.Read.Color && fopt.PrintColors {
			_fopt = &format.Options{ExcludeEnds: fopt.ExcludeEnds}
		}
		err = format.WriteFastq(&r.buf, c.Read, dec, c.Result.Fw(), []byte(comment), _fopt)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", g.Name, err))
			continue
		}
		r.n++
	}
	return r
}

func strand(fw bool) byte {
	if fw {
		return '+'
	}
	return '-'
}

func init() {
	RootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	decodeCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	decodeCmd.Flags().BoolP("print-colors", "c", false,
		formatFlagUsage(`Output colors and color qualities instead of decoded nucleotides.`))

	decodeCmd.Flags().BoolP("exclude-ends", "e", false,
		formatFlagUsage(`Exclude the two end nucleotides of decoded sequences.`))

	decodeCmd.Flags().BoolP("color-only", "C", false,
		formatFlagUsage(`Only output colorspace alignments.`))

	decodeCmd.SetUsageTemplate(usageTemplate("[SAM files...]"))
}
