package status

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	r.Begin(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.Advance(1)
			}
			r.Status("done")
		}()
	}
	wg.Wait()

	if r.Total() != 100 || r.Count() != 100 {
		t.Errorf("total=%d count=%d", r.Total(), r.Count())
	}
	if len(r.Messages()) != 10 || r.Last() != "done" {
		t.Errorf("messages = %v", r.Messages())
	}
}

func TestMultiAndLog(t *testing.T) {
	var buf bytes.Buffer
	logSink := &Log{Logger: zerolog.New(&buf), Task: "pack"}
	var r Recorder
	sink := Multi{logSink, &r, Discard{}}

	sink.Begin(2)
	sink.Advance(2)
	sink.Status("Created 2 sprite sheets")

	if r.Count() != 2 || r.Last() != "Created 2 sprite sheets" {
		t.Errorf("recorder = %d %q", r.Count(), r.Last())
	}
	out := buf.String()
	if !strings.Contains(out, `"task":"pack"`) || !strings.Contains(out, "Created 2 sprite sheets") {
		t.Errorf("log output = %s", out)
	}
}

func TestBarClosesShort(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, "extract")
	bar.Begin(5)
	bar.Advance(2)
	// must not hang although only 2 of 5 units completed
	bar.Close()
}
