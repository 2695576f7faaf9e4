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
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/alnres/alnres/refseq"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var buildRefCmd = &cobra.Command{
	Use:   "build-ref",
	Short: "Pack reference sequences for fast extracting of subsequences",
	Long: `Pack reference sequences for fast extracting of subsequences

Input:
  1. Sequences in FASTA/Q files can be given via positional arguments,
     or a file list via the flag -X/--infile-list.
  2. Or a directory containing sequence files via the flag -I/--in-dir,
     with a regular expression for matching file names via -r/--file-regexp.

Output (with the prefix given by -o/--out-prefix):
  <prefix>        2bit-packed sequences, degenerate bases are saved as N
  <prefix>.idx    offsets, lengths, and runs of Ns of sequences
  <prefix>.toml   names and lengths of sequences

Attention:
  1. Sequence names (the first word of headers) should be unique, which
     should be the same as the reference names in SAM files.
     Names can be prefixed with file names via -p/--prefix-file-name,
     or renamed with a tab-delimited file via -R/--rename-file.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

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

		outPrefix := getFlagString(cmd, "out-prefix")
		if outPrefix == "" {
			checkError(fmt.Errorf("flag -o/--out-prefix needed"))
		}
		outPrefix = expandPath(outPrefix)
		force := getFlagBool(cmd, "force")
		prefixFileName := getFlagBool(cmd, "prefix-file-name")
		refseq.BufferSize = getFlagByteSize(cmd, "buffer-size")

		var err error

		inDir := getFlagString(cmd, "in-dir")
		readFromDir := inDir != ""
		if readFromDir {
			inDir = expandPath(inDir)
			var isDir bool
			isDir, err = pathutil.IsDir(inDir)
			checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		var reFile *regexp.Regexp
		if reFileStr != "" {
			reFile, err = regexp.Compile(ignoreCase(reFileStr))
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))
		}

		reSeqNameStrs := getFlagStringSlice(cmd, "seq-name-filter")
		reSeqNames := make([]*regexp.Regexp, 0, len(reSeqNameStrs))
		for _, kw := range reSeqNameStrs {
			re, err := regexp.Compile(ignoreCase(kw))
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching sequence header: %s", kw))
			reSeqNames = append(reSeqNames, re)
		}

		var renames map[string]string
		if renameFile := getFlagString(cmd, "rename-file"); renameFile != "" {
			renameFile = expandPath(renameFile)
			renames, err = readKVs(renameFile, false)
			checkError(errors.Wrap(err, renameFile))
			if outputLog {
				log.Infof("%d sequence names to rename", len(renames))
			}
		}

		// ---------------------------------------------------------------
		// input files

		var files []string
		if readFromDir {
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			if len(files) == 0 {
				log.Warningf("no files matching regular expression: %s", reFileStr)
			}
		} else {
			files = getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
			for i, file := range files {
				files[i] = expandPath(file)
			}
		}
		if len(files) < 1 {
			checkError(fmt.Errorf("FASTA/Q files needed"))
		} else if outputLog {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no files given, reading from stdin")
			} else {
				log.Infof("%d input file(s) given", len(files))
			}
		}

		// ---------------------------------------------------------------
		// output

		if !force {
			for _, file := range []string{outPrefix, outPrefix + refseq.IndexFileExt, outPrefix + refseq.InfoFileExt} {
				existed, err := pathutil.Exists(file)
				checkError(errors.Wrap(err, file))
				if existed {
					checkError(fmt.Errorf("output file existed: %s, use --force to overwrite", file))
				}
			}
		}
		makeOutDir(outPrefix)

		w, err := refseq.NewWriter(outPrefix)
		checkError(errors.Wrap(err, outPrefix))

		// ---------------------------------------------------------------
		// process bar

		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var doneDuration chan int
		showProgressBar := opt.Verbose && len(files) > 1
		if showProgressBar {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(files)),
				mpb.PrependDecorators(
					decor.Name("processed files: ", decor.WC{W: len("processed files: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)

			chDuration = make(chan time.Duration, 1)
			doneDuration = make(chan int)
			go func() {
				for t := range chDuration {
					bar.EwmaIncrBy(1, t)
				}
				doneDuration <- 1
			}()
		}

		// ---------------------------------------------------------------

		ropt := &refPackingOptions{
			PrefixFileName: prefixFileName,
			ReSeqExclude:   reSeqNames,
			Renames:        renames,
		}
		var nSeqs, nSkipped int
		for _, file := range files {
			startTime := time.Now()

			n, skipped, err := packSeqs(w, file, ropt)
			checkError(errors.Wrap(err, file))
			nSeqs += n
			nSkipped += skipped

			if showProgressBar {
				chDuration <- time.Since(startTime)
			}
		}

		if showProgressBar {
			close(chDuration)
			<-doneDuration
			pbs.Wait()
		}

		checkError(errors.Wrap(w.Close(), outPrefix))

		if outputLog {
			info, err := refseq.ReadInfo(outPrefix + refseq.InfoFileExt)
			checkError(err)
			log.Infof("%s sequences with %s bases saved to: %s",
				humanize.Comma(int64(nSeqs)), humanize.Comma(info.Bases), outPrefix)
			if nSkipped > 0 {
				log.Infof("%s sequences filtered out", humanize.Comma(int64(nSkipped)))
			}
		}
	},
}

var reIgnoreCaseStr = "(?i)"
var reIgnoreCase = regexp.MustCompile(`\(\?i\)`)

// ignoreCase makes a regular expression case-insensitive.
func ignoreCase(s string) string {
	if reIgnoreCase.MatchString(s) {
		return s
	}
	return reIgnoreCaseStr + s
}

// refPackingOptions contains options for packing sequences.
type refPackingOptions struct {
	PrefixFileName bool             // prefix sequence names with the file name
	ReSeqExclude   []*regexp.Regexp // sequences with headers matching any of them are skipped
	Renames        map[string]string
}

// seqName returns the name of a sequence saved in the store.
func (o *refPackingOptions) seqName(file string, id []byte) string {
	name := string(id)
	if newName, ok := o.Renames[name]; ok {
		name = newName
	}
	if o.PrefixFileName && !isStdin(file) {
		base, _, _ := filepathTrimExtension(filepath.Base(file), nil)
		name = base + "_" + name
	}
	return name
}

// packSeqs writes sequences of a file, and returns the numbers of
// saved and skipped sequences.
func packSeqs(w *refseq.Writer, file string, opt *refPackingOptions) (int, int, error) {
	fastxReader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return 0, 0, err
	}
	defer fastxReader.Close()

	var record *fastx.Record
	var n, skipped int
	var ignoreSeq bool
	for {
		record, err = fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return n, skipped, err
		}

		ignoreSeq = false
		for _, re := range opt.ReSeqExclude {
			if re.Match(record.Name) {
				ignoreSeq = true
				break
			}
		}
		if ignoreSeq || len(record.Seq.Seq) == 0 {
			skipped++
			continue
		}

		if err = w.WriteSeq(opt.seqName(file, record.ID), record.Seq.Seq); err != nil {
			return n, skipped, errors.Wrapf(err, "sequence %s", record.ID)
		}
		n++
	}
	return n, skipped, nil
}

func init() {
	RootCmd.AddCommand(buildRefCmd)

	// -----------------------------  input  -----------------------------

	buildRefCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing FASTA/Q files. Directory symlinks are followed.`))

	buildRefCmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz)?$`,
		formatFlagUsage(`Regular expression for matching sequence files in -I/--in-dir, case ignored.`))

	buildRefCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	buildRefCmd.Flags().StringSliceP("seq-name-filter", "B", []string{},
		formatFlagUsage(`List of regular expressions for filtering out sequences by header/name, case ignored.`))

	buildRefCmd.Flags().StringP("rename-file", "R", "",
		formatFlagUsage(`Two-column tab-delimited file for renaming sequences (old name -> new name).`))

	buildRefCmd.Flags().BoolP("prefix-file-name", "p", false,
		formatFlagUsage(`Prefix sequence names with file names (without extensions), e.g., "GCF_000005845.2_NC_000913.3".`))

	// -----------------------------  output  -----------------------------

	buildRefCmd.Flags().StringP("out-prefix", "o", "",
		formatFlagUsage(`Prefix of output files.`))

	buildRefCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existing output files.`))

	buildRefCmd.Flags().StringP("buffer-size", "", "64KB",
		formatFlagUsage(`Size of the writing buffer, supported units: K, M, G.`))

	buildRefCmd.SetUsageTemplate(usageTemplate("-o <out prefix> [FASTA/Q files...]"))
}
