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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/shenwei356/alnres/alnres/summary"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts/sortutil"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Report best and second-best alignment scores of reads or read pairs",
	Long: `Report best and second-best alignment scores of reads or read pairs

The difference between the best and second-best scores is commonly used
for estimating mapping qualities.

Output (TSV):
  1. read,      read name
  2. type,      "paired", "unpaired", or "unmapped"
  3. alns,      number of (paired) alignments
  4. best,      best score, "*" for none
  5. secbest,   second-best score, "*" for none
  6. others,    number of alignments other than the best one
  7. diff,      best - secbest, or best when there's only one alignment

Attention:
  1. Scores are read from the tag AS:i. For paired reads, the score of a
     paired alignment is the sum of scores of the two mates, where the i-th
     records of mate 1 and mate 2 are treated as a paired alignment.

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
		plotFile := getFlagString(cmd, "plot")
		if plotFile != "" {
			plotFile = expandPath(plotFile)
		}
		bins := getFlagPositiveInt(cmd, "bins")
		noHeader := getFlagBool(cmd, "no-header-row")

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

		if !noHeader {
			fmt.Fprintln(outfh, "read\ttype\talns\tbest\tsecbest\tothers\tdiff")
		}

		stats := &summaryStats{diffs: make([]float64, 0, mapInitSize)}

		sopt := &SAMProcessingOptions{Threads: opt.NumCPUs, Verbose: opt.Verbose}
		processSAMFiles(files, sopt,
			summarizeGroup,
			func(g *samio.Group, r *groupSummary) {
				if r.err != nil {
					log.Warningf("%s: %s", g.Name, r.err)
					stats.failed++
					return
				}
				stats.add(r)

				s := r.s
				fmt.Fprintf(outfh, "%s\t%s\t%d\t%s\t%s\t%d\t", g.Name, r.kind, r.alns, s.Best, s.SecondBest, s.Others)
				if s.Empty() {
					fmt.Fprintln(outfh, "*")
				} else {
					fmt.Fprintln(outfh, s.Diff())
				}
			},
		)

		if outputLog {
			stats.log()
		}

		if plotFile != "" {
			checkError(errors.Wrap(plotDiffs(stats.diffs, bins, plotFile), plotFile))
			if outputLog {
				log.Infof("histogram saved to: %s", plotFile)
			}
		}
	},
}

type groupSummary struct {
	s    summary.Summary
	kind string
	alns int
	err  error
}

func summarizeGroup(g *samio.Group) *groupSummary {
	r := &groupSummary{}
	rs1, rs2 := g.Mates()
	switch {
	case rs1 == nil && rs2 == nil:
		r.kind = "unmapped"
	case rs1 != nil && rs2 != nil:
		r.kind = "paired"
		r.alns = len(rs1)
	default:
		r.kind = "unpaired"
		r.alns = len(rs1) + len(rs2)
	}
	r.s, r.err = summary.New(rs1, rs2)
	return r
}

type summaryStats struct {
	unmapped, unique, multi, failed uint64

	diffs []float64 // score differences of multi-mapped reads
}

func (st *summaryStats) add(r *groupSummary) {
	switch {
	case r.s.Empty():
		st.unmapped++
	case r.s.Unique():
		st.unique++
	default:
		st.multi++
		st.diffs = append(st.diffs, float64(r.s.Diff()))
	}
}

func (st *summaryStats) log() {
	total := st.unmapped + st.unique + st.multi + st.failed
	if total == 0 {
		log.Info("no reads found")
		return
	}
	pct := func(n uint64) float64 { return float64(n) / float64(total) * 100 }

	log.Infof("reads/pairs: %s", humanize.Comma(int64(total)))
	log.Infof("  unmapped:          %s (%.2f%%)", humanize.Comma(int64(st.unmapped)), pct(st.unmapped))
	log.Infof("  with 1 alignment:  %s (%.2f%%)", humanize.Comma(int64(st.unique)), pct(st.unique))
	log.Infof("  with >1 alignment: %s (%.2f%%)", humanize.Comma(int64(st.multi)), pct(st.multi))
	if st.failed > 0 {
		log.Warningf("  failed:            %s (%.2f%%)", humanize.Comma(int64(st.failed)), pct(st.failed))
	}

	if len(st.diffs) > 0 {
		mean, sd, median := describe(st.diffs)
		log.Infof("difference between best and second-best scores: mean %.2f, sd %.2f, median %.1f", mean, sd, median)
	}
}

// describe returns the mean, standard deviation and median of values,
// values are sorted in place.
func describe(values []float64) (float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sortutil.Float64s(values)
	mean, sd := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		sd = 0
	}
	median := stat.Quantile(0.5, stat.Empirical, values, nil)
	return mean, sd, median
}

func plotDiffs(values []float64, bins int, file string) error {
	if len(values) == 0 {
		return fmt.Errorf("no reads with more than one alignment")
	}
	p := plot.New()
	p.Title.Text = "Best - second-best alignment score"
	p.X.Label.Text = "Score difference"
	p.Y.Label.Text = "Reads"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}

func init() {
	RootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	summarizeCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	summarizeCmd.Flags().BoolP("no-header-row", "H", false,
		formatFlagUsage(`Do not output header row.`))

	summarizeCmd.Flags().StringP("plot", "p", "",
		formatFlagUsage(`Plot the histogram of score differences of multi-mapped reads to a file (.png, .pdf, .svg).`))

	summarizeCmd.Flags().IntP("bins", "b", 30,
		formatFlagUsage(`Number of bins of the histogram.`))

	summarizeCmd.SetUsageTemplate(usageTemplate("[SAM files...]"))
}
