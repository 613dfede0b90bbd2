package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"phrasedex/internal/domain"
)

// progressSink renders pipeline events as a progress bar. The bar is created
// on the first step, once the total file count is known.
type progressSink struct {
	mu    sync.Mutex
	w     io.Writer
	bar   *progressbar.ProgressBar
	start time.Time
	done  int
}

func newProgressSink(w io.Writer) *progressSink {
	return &progressSink{w: w}
}

func (p *progressSink) Report(ev domain.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev := ev.(type) {
	case domain.StartIndexing:
		p.start = time.Now()
	case domain.IndexingProgressStep:
		if p.bar == nil {
			p.bar = progressbar.NewOptions64(ev.TotalFiles,
				progressbar.OptionSetWriter(p.w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(p.w)
				}),
			)
		}
		p.done++
		p.bar.Add(1)

		elapsed := time.Since(p.start)
		if rate := float64(p.done) / elapsed.Seconds(); rate > 0 {
			remaining := ev.TotalFiles - int64(p.done)
			eta := time.Duration(float64(remaining)/rate) * time.Second
			p.bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] ETA: %s", formatDuration(eta)))
		}
	case domain.StopIndexing:
		if p.bar != nil {
			p.bar.Finish()
		}
		fmt.Fprintf(p.w, "Indexed %d files in %s\n", p.done, formatDuration(time.Since(p.start)))
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
