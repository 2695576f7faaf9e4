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

// Package colorspace decodes colorspace reads into nucleotides.
//
// A color is the transition between two adjacent nucleotides. With codes
// A=0, C=1, G=2, T=3, the color of a dinucleotide is the XOR of the two
// codes, and the next nucleotide is the XOR of the previous one and the color.
// Code 4 stands for an unknown nucleotide (N) or an unknown color ('.'),
// and propagates to all following nucleotides.
package colorspace

// N is the code of an unknown nucleotide or color.
const N = 4

// nuccol2nuc[nucleotide][color] is the next nucleotide.
var nuccol2nuc = [5][5]byte{
	/*       0  1  2  3  . */
	/* A */ {0, 1, 2, 3, 4},
	/* C */ {1, 0, 3, 2, 4},
	/* G */ {2, 3, 0, 1, 4},
	/* T */ {3, 2, 1, 0, 4},
	/* N */ {4, 4, 4, 4, 4},
}

// NextNuc returns the nucleotide following n with the color c.
func NextNuc(n, c byte) byte {
	if n > N || c > N {
		return N
	}
	return nuccol2nuc[n][c]
}

// Color returns the color of the dinucleotide (a, b).
func Color(a, b byte) byte {
	if a >= N || b >= N {
		return N
	}
	return a ^ b
}

// Encode converts nucleotide codes to colors.
// The result has one less element than the input.
func Encode(nucs []byte) []byte {
	if len(nucs) < 2 {
		return []byte{}
	}
	colors := make([]byte, len(nucs)-1)
	for i := range colors {
		colors[i] = Color(nucs[i], nucs[i+1])
	}
	return colors
}

var ascii2nuc = [256]byte{}
var ascii2col = [256]byte{}

func init() {
	for i := range ascii2nuc {
		ascii2nuc[i] = N
		ascii2col[i] = N
	}
	for i, b := range []byte("ACGT") {
		ascii2nuc[b] = byte(i)
		ascii2nuc[b+32] = byte(i)
	}
	for i, b := range []byte("0123") {
		ascii2col[b] = byte(i)
	}
	// some tools write colors as nucleotides
	for i, b := range []byte("ACGT") {
		ascii2col[b] = byte(i)
	}
}

// NucCode returns the code of a nucleotide in ASCII.
func NucCode(b byte) byte { return ascii2nuc[b] }

// ColorCode returns the code of a color in ASCII, i.e., '0'-'3' or '.'.
func ColorCode(b byte) byte { return ascii2col[b] }

// NucsFromASCII converts nucleotides in ASCII to codes.
func NucsFromASCII(s []byte) []byte {
	codes := make([]byte, len(s))
	for i, b := range s {
		codes[i] = ascii2nuc[b]
	}
	return codes
}

// NucsToASCII converts nucleotide codes to ASCII.
func NucsToASCII(codes []byte) []byte {
	s := make([]byte, len(codes))
	for i, c := range codes {
		if c > N {
			c = N
		}
		s[i] = "ACGTN"[c]
	}
	return s
}

// CallsFromASCII converts color calls in ASCII to codes.
func CallsFromASCII(s []byte) []byte {
	codes := make([]byte, len(s))
	for i, b := range s {
		codes[i] = ascii2col[b]
	}
	return codes
}

// CallsToASCII converts color codes to ASCII.
func CallsToASCII(codes []byte) []byte {
	s := make([]byte, len(codes))
	for i, c := range codes {
		if c > N {
			c = N
		}
		s[i] = "0123."[c]
	}
	return s
}

// ParseCSTag splits the value of a CS tag in SAM, e.g., "T0120312",
// into the primer base and color codes.
func ParseCSTag(cs []byte) (byte, []byte) {
	if len(cs) == 0 {
		return N, []byte{}
	}
	return ascii2nuc[cs[0]], CallsFromASCII(cs[1:])
}
