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
	"testing"

	"github.com/shenwei356/alnres/alnres/refseq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackSeqs(t *testing.T) {
	dir := t.TempDir()
	fasta := filepath.Join(dir, "GCF_1.fa")
	require.NoError(t, os.WriteFile(fasta, []byte(">chr1 main\nACGTNNACGT\nAC\n>plasmid1 plasmid\nGGGG\n>chr2\nTTTTA\n"), 0644))

	prefix := filepath.Join(dir, "ref")
	w, err := refseq.NewWriter(prefix)
	require.NoError(t, err)

	opt := &refPackingOptions{
		PrefixFileName: true,
		ReSeqExclude:   []*regexp.Regexp{regexp.MustCompile(ignoreCase("PLASMID"))},
		Renames:        map[string]string{"chr2": "chrY"},
	}
	n, skipped, err := packSeqs(w, fasta, opt)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, skipped)

	r, err := refseq.NewReader(prefix)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 2, r.NumSeqs())
	assert.Equal(t, "GCF_1_chr1", r.Name(0))
	assert.Equal(t, "GCF_1_chrY", r.Name(1))
	assert.Equal(t, 12, r.Len(0))

	s, err := r.Seq(0)
	require.NoError(t, err)
	assert.Equal(t, "ACGTNNACGTAC", string(*s))
	refseq.RecycleSeq(s)

	// duplicated names
	w, err = refseq.NewWriter(filepath.Join(dir, "ref2"))
	require.NoError(t, err)
	_, _, err = packSeqs(w, fasta, &refPackingOptions{})
	require.NoError(t, err)
	_, _, err = packSeqs(w, fasta, &refPackingOptions{})
	assert.ErrorIs(t, err, refseq.ErrDuplicateName)
	require.NoError(t, w.Close())
}

func TestIgnoreCase(t *testing.T) {
	assert.Equal(t, "(?i)abc", ignoreCase("abc"))
	assert.Equal(t, "(?i)abc", ignoreCase("(?i)abc"))
	assert.True(t, regexp.MustCompile(ignoreCase(`\.fa$`)).MatchString("X.FA"))
}
