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
	"path/filepath"
	"regexp"
	"sort"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSplitNByByte(t *testing.T) {
	items := make([]string, 2)

	stringSplitNByByte("a\tb\tc", '\t', 2, &items)
	assert.Equal(t, []string{"a", "b\tc"}, items)

	stringSplitNByByte("a", '\t', 2, &items)
	assert.Equal(t, []string{"a"}, items)

	// the slice is reusable after a short line
	stringSplitNByByte("x\ty", '\t', 2, &items)
	assert.Equal(t, []string{"x", "y"}, items)

	stringSplitNByByte("1,2,3,4", ',', 3, &items)
	assert.Equal(t, []string{"1", "2", "3,4"}, items)
}

func TestReadKVs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "kv.tsv")
	require.NoError(t, os.WriteFile(file, []byte("Chr1\tchrA\n\nchr2\tchrB\textra\nlonely\n"), 0644))

	m, err := readKVs(file, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Chr1": "chrA", "chr2": "chrB\textra"}, m)

	m, err = readKVs(file, true)
	require.NoError(t, err)
	assert.Equal(t, "chrA", m["chr1"])

	_, err = readKVs(filepath.Join(t.TempDir(), "missing"), false)
	assert.Error(t, err)
}

func TestFilepathTrimExtension(t *testing.T) {
	tests := []struct {
		file, name, ext, cext string
	}{
		{"a/GCF_1.fa.gz", "a/GCF_1", ".fa", ".gz"},
		{"GCF_1.fasta", "GCF_1", ".fasta", ""},
		{"reads.SAM.XZ", "reads", ".SAM", ".xz"},
		{"noext", "noext", "", ""},
	}
	for _, test := range tests {
		name, ext, cext := filepathTrimExtension(test.file, nil)
		assert.Equal(t, test.name, name, test.file)
		assert.Equal(t, test.ext, ext, test.file)
		assert.Equal(t, test.cext, cext, test.file)
	}
}

func TestGetFileListFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	for _, file := range []string{"a.fa", "b.fa.gz", "c.txt", "sub/d.fna"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(">s\nACGT\n"), 0644))
	}

	re := regexp.MustCompile(ignoreCase(`\.(f[aq](st[aq])?|fna)(.gz)?$`))
	files, err := getFileListFromDir(dir, re, 2)
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.fa"),
		filepath.Join(dir, "b.fa.gz"),
		filepath.Join(dir, "sub", "d.fna"),
	}, files)
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dedup"}
	cmd.Flags().IntP("max-keep", "k", 0, "")
	cmd.Flags().BoolP("drop-unmapped", "u", false, "")
	cmd.Flags().StringSliceP("seq-name-filter", "B", []string{}, "")
	cmd.Flags().IntP("threads", "j", 4, "")
	return cmd
}

func TestApplyConfig(t *testing.T) {
	cmd := newTestCmd()
	require.NoError(t, cmd.Flags().Set("drop-unmapped", "true"))

	v := viper.New()
	v.Set("threads", 2)
	v.Set("max-keep", 9)
	v.Set("dedup.max-keep", 3) // keys of the command come first
	v.Set("drop-unmapped", false)
	v.Set("seq-name-filter", []string{"plasmid", "phage"})

	require.NoError(t, applyConfig(cmd, v))

	threads, _ := cmd.Flags().GetInt("threads")
	assert.Equal(t, 2, threads)

	maxKeep, _ := cmd.Flags().GetInt("max-keep")
	assert.Equal(t, 3, maxKeep)

	// given in the command line
	drop, _ := cmd.Flags().GetBool("drop-unmapped")
	assert.True(t, drop)

	filters, _ := cmd.Flags().GetStringSlice("seq-name-filter")
	assert.Equal(t, []string{"plasmid", "phage"}, filters)
}

func TestApplyConfigInvalid(t *testing.T) {
	cmd := newTestCmd()
	v := viper.New()
	v.Set("max-keep", "many")
	assert.Error(t, applyConfig(cmd, v))
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "alnres.toml")
	require.NoError(t, os.WriteFile(file, []byte("threads = 3\n\n[dedup]\nmax-keep = 5\n"), 0644))

	cmd := newTestCmd()
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Set("config", file))
	require.NoError(t, loadConfig(cmd))

	threads, _ := cmd.Flags().GetInt("threads")
	assert.Equal(t, 3, threads)
	maxKeep, _ := cmd.Flags().GetInt("max-keep")
	assert.Equal(t, 5, maxKeep)
}
