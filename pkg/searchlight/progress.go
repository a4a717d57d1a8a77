package searchlight

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ProgressCallback is a function that reports progress during scoring.
// completed and total count neighbourhoods; a zero total marks a plain
// informational message. It may be called from several goroutines.
type ProgressCallback func(completed, total int, message string)

// textProgress renders progress as a text bar on a logger, printing at most
// once per step percent so parallel workers do not flood the output.
type textProgress struct {
	logger    *log.Logger
	step      int
	startTime time.Time

	mu         sync.Mutex
	lastBucket int
}

// NewTextProgress returns a ProgressCallback that logs a progress bar to
// logger every step percent, with elapsed and estimated remaining time.
func NewTextProgress(logger *log.Logger, step int) ProgressCallback {
	if step < 1 {
		step = 10
	}
	p := &textProgress{logger: logger, step: step, startTime: time.Now(), lastBucket: -1}
	return p.report
}

func (p *textProgress) report(completed, total int, message string) {
	if total == 0 {
		if message != "" {
			p.logger.Println(message)
		}
		return
	}

	pct := completed * 100 / total
	bucket := pct / p.step
	p.mu.Lock()
	if bucket <= p.lastBucket && completed < total {
		p.mu.Unlock()
		return
	}
	p.lastBucket = bucket
	p.mu.Unlock()

	const width = 40
	numBars := pct * width / 100
	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < width; i++ {
		switch {
		case i < numBars:
			bar.WriteString("█")
		case i == numBars:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	bar.WriteString("]")

	status := ""
	if message != "" {
		status = " | " + message
	}

	if completed > 0 {
		elapsed := time.Since(p.startTime)
		remaining := elapsed.Seconds() / float64(completed) * float64(total-completed)
		p.logger.Printf("%s %d%% (%d/%d) [%.1fs elapsed | %s remaining%s]",
			bar.String(), pct, completed, total, elapsed.Seconds(), formatSeconds(remaining), status)
		return
	}
	p.logger.Printf("%s %d%% (%d/%d)%s", bar.String(), pct, completed, total, status)
}

func formatSeconds(s float64) string {
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%.1fm", s/60)
	default:
		return fmt.Sprintf("%.1fh", s/3600)
	}
}
