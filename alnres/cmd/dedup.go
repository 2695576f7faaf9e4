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
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/biogo/hts/sam"
	"github.com/shenwei356/alnres/alnres/redundant"
	"github.com/shenwei356/alnres/alnres/samio"
	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove candidate alignments redundant with better ones",
	Long: `Remove candidate alignments redundant with better ones

How:
  1. Candidate alignments of a read are sorted by alignment scores (AS:i)
     in descending order.
  2. An alignment is redundant if it visits any cell in the dynamic
     programming matrix that is visited by a better alignment, i.e.,
     the same reference position, strand, and read position.
  3. Mates of paired-end reads are checked independently.

Input:
  1. SAM files, where records of a read should be consecutive.
  2. Soft-clipped alignments are not supported.

Output:
  1. SAM records in the input order, with the header of the first file.

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
		maxKeep := getFlagNonNegativeInt(cmd, "max-keep")
		dropUnmapped := getFlagBool(cmd, "drop-unmapped")

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		for i, file := range files {
			files[i] = expandPath(file)
		}
		if outputLog {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
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

		var samWriter *sam.Writer

		poolDB := &sync.Pool{New: func() interface{} {
			return redundant.New()
		}}

		var kept, removed uint64

		sopt := &SAMProcessingOptions{
			Threads: opt.NumCPUs,
			Verbose: opt.Verbose,
			OnHeader: func(file string, h *sam.Header) {
				if samWriter != nil {
					return
				}
				samWriter, err = sam.NewWriter(outfh, h, sam.FlagDecimal)
				checkError(err)
			},
		}

		processSAMFiles(files, sopt,
			func(g *samio.Group) *dedupResult {
				db := poolDB.Get().(*redundant.DB)
				r := dedupGroup(g, db, maxKeep)
				poolDB.Put(db)
				return r
			},
			func(g *samio.Group, r *dedupResult) {
				kept += uint64(len(r.kept))
				removed += uint64(r.removed)
				for _, rec := range g.Records {
					if rec.Flags&sam.Unmapped != 0 {
						if dropUnmapped {
							continue
						}
					} else if _, ok := r.kept[rec]; !ok {
						continue
					}
					checkError(samWriter.Write(rec))
				}
			},
		)

		if outputLog {
			log.Infof("%d alignments kept, %d redundant ones removed", kept, removed)
			if outFile != "-" {
				log.Infof("results saved to: %s", outFile)
			}
		}
	},
}

type dedupResult struct {
	kept    map[*sam.Record]struct{}
	removed int
}

// dedupGroup checks the candidates of each mate from the best to the worst,
// and keeps these not overlapping with kept ones.
// maxKeep limits the number of kept alignments per mate, 0 for no limit.
func dedupGroup(g *samio.Group, db *redundant.DB, maxKeep int) *dedupResult {
	r := &dedupResult{kept: make(map[*sam.Record]struct{}, len(g.Cands))}

	cands := make([]*samio.Candidate, 0, len(g.Cands))
	var n int
	for mate := 0; mate <= 2; mate++ {
		cands = cands[:0]
		for _, c := range g.Cands {
			if c.Mate == mate {
				cands = append(cands, c)
			}
		}
		if len(cands) == 0 {
			continue
		}
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Result.Score.Greater(cands[j].Result.Score)
		})

		db.Reset()
		n = 0
		for _, c := range cands {
			if maxKeep > 0 && n >= maxKeep {
				r.removed++
				continue
			}
			if db.Overlap(c.Result) {
				r.removed++
				continue
			}
			if err := db.Add(c.Result); err != nil {
				log.Warningf("%s: %s", g.Name, err)
				r.removed++
				continue
			}
			r.kept[c.Record] = struct{}{}
			n++
		}
	}
	db.Reset()
	return r
}

func init() {
	RootCmd.AddCommand(dedupCmd)

	dedupCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	dedupCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	dedupCmd.Flags().IntP("max-keep", "k", 0,
		formatFlagUsage(`Maximum number of kept alignments for each read or mate, 0 for no limit.`))

	dedupCmd.Flags().BoolP("drop-unmapped", "u", false,
		formatFlagUsage(`Do not output unmapped records.`))

	dedupCmd.SetUsageTemplate(usageTemplate("[SAM files...]"))
}
