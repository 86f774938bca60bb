package status

import (
	"io"
	"os"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Interactive reports whether f is a terminal worth drawing a bar on.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Bar draws a progress bar for the units announced by Begin. Statuses are
// left to other sinks.
type Bar struct {
	label    string
	progress *mpb.Progress

	mu  sync.Mutex
	bar *mpb.Bar
}

func NewBar(w io.Writer, label string) *Bar {
	return &Bar{
		label:    label,
		progress: mpb.New(mpb.WithOutput(w), mpb.WithWidth(48)),
	}
}

func (b *Bar) Begin(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		return
	}
	b.bar = b.progress.AddBar(
		int64(total),
		mpb.PrependDecorators(
			decor.Name(b.label+" ", decor.WCSyncWidth),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
}

func (b *Bar) Advance(n int) {
	b.mu.Lock()
	bar := b.bar
	b.mu.Unlock()
	if bar != nil {
		bar.IncrBy(n)
	}
}

func (b *Bar) Status(string) {}

// Close finishes the bar, even when the run stopped short of its total,
// and waits for the last frame to render.
func (b *Bar) Close() {
	b.mu.Lock()
	bar := b.bar
	b.mu.Unlock()
	if bar != nil && !bar.Completed() {
		bar.Abort(false)
	}
	b.progress.Wait()
}
