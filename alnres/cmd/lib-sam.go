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
	"sync"
	"time"

	"github.com/biogo/hts/sam"
	"github.com/shenwei356/alnres/alnres/samio"
)

// samTask is a group of SAM records with its order in the input.
type samTask[T any] struct {
	id    uint64
	group *samio.Group
	value T
}

// SAMProcessingOptions contains options for processing SAM files.
type SAMProcessingOptions struct {
	Threads int
	Verbose bool

	// called before reading records of each file
	OnHeader func(file string, h *sam.Header)
}

// processSAMFiles reads groups of records from SAM files, processes them
// concurrently with fn, and calls output in the input order.
// Records failed to convert are logged as warnings and skipped.
// It returns the number of groups.
func processSAMFiles[T any](files []string, opt *SAMProcessingOptions,
	fn func(g *samio.Group) T, output func(g *samio.Group, v T)) uint64 {

	timeStart := time.Now()
	var total uint64
	var speed float64 // million groups per minute

	// outputter
	ch := make(chan *samTask[T], opt.Threads)
	done := make(chan int)
	go func() {
		var id uint64 = 1 // next id to output
		buf := make(map[uint64]*samTask[T], 128)

		var t *samTask[T]
		var ok bool
		var err error
		for r := range ch {
			if r.id != id {
				buf[r.id] = r
				continue
			}
			buf[r.id] = r

			for {
				if t, ok = buf[id]; !ok {
					break
				}
				delete(buf, id)
				id++

				for _, err = range t.group.Warnings {
					log.Warningf("record skipped: %s", err)
				}
				output(t.group, t.value)

				total++
				if opt.Verbose && ((total < 4096 && total&63 == 0) || total&4095 == 0) {
					speed = float64(total) / 1000000 / time.Since(timeStart).Minutes()
					fmt.Fprintf(os.Stderr, "processed reads: %d, speed: %.3f million reads per minute\r", total, speed)
				}
			}
		}
		done <- 1
	}()

	var wg sync.WaitGroup
	tokens := make(chan int, opt.Threads)

	var id uint64
	for _, file := range files {
		rdr, err := samio.NewReader(file)
		checkError(err)

		if opt.OnHeader != nil {
			opt.OnHeader(file, rdr.Header())
		}

		var g *samio.Group
		for {
			g, err = rdr.Next()
			if err != nil {
				if err == io.EOF {
					break
				}
				checkError(fmt.Errorf("%s: %s", file, err))
				break
			}
			id++

			tokens <- 1
			wg.Add(1)

			go func(id uint64, g *samio.Group) {
				defer func() {
					<-tokens
					wg.Done()
				}()

				ch <- &samTask[T]{id: id, group: g, value: fn(g)}
			}(id, g)
		}
		checkError(rdr.Close())
	}
	wg.Wait()
	close(ch)
	<-done

	if opt.Verbose && total > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		speed = float64(total) / 1000000 / time.Since(timeStart).Minutes()
		log.Infof("processed reads: %d, speed: %.3f million reads per minute", total, speed)
	}

	return total
}
