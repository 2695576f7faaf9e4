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

package edit

// ToRef rebuilds the reference sequence implied by a read and its edits.
// Both the read and the edits should be from upstream to downstream on the
// Watson strand.
func ToRef(read []byte, l List) []byte {
	ref := make([]byte, 0, len(read)+len(l))
	var j int
	var del bool
	var sub byte
	for i := 0; i <= len(read); i++ {
		del, sub = false, 0
		for ; j < len(l) && l[j].Pos == i; j++ {
			switch l[j].Type {
			case Insert:
				ref = append(ref, l[j].Chr)
			case Delete:
				del = true
			case Mismatch:
				sub = l[j].Chr
			}
		}
		if i == len(read) || del {
			continue
		}
		if sub != 0 {
			ref = append(ref, sub)
		} else {
			ref = append(ref, read[i])
		}
	}
	return ref
}

// Extent returns the number of reference columns spanned by a read of n
// positions with the edits.
func Extent(n int, l List) int {
	return n + l.Count(Insert) - l.Count(Delete)
}
