// Package alarm turns block completions into a signal for the user. The engine
// only asks for a signal; these implementations decide how it shows up.
package alarm

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"studycycle/backend/internal/logger"
	"studycycle/backend/internal/model"
)

// Log records every signal in the structured log. The HTTP host uses it; the
// browser plays the sound after the alarm notification.
type Log struct {
	log *logger.Logger
}

func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.With("component", "alarm")}
}

func (a *Log) Trigger(_ context.Context, signal model.AlarmSignal, block model.Block) {
	a.log.Info("completion signal",
		"sound_id", signal.ID,
		"duration_seconds", signal.DurationSeconds,
		"block_type", block.Type,
		"index", block.SequenceIndex,
	)
}

// Bell rings the terminal bell and prints a colored line.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) Trigger(_ context.Context, signal model.AlarmSignal, block model.Block) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := color.New(color.FgGreen, color.Bold)
	label := "Study block finished, take a break"
	if block.Type.IsBreak() {
		c = color.New(color.FgCyan, color.Bold)
		label = "Break over, back to work"
	}
	fmt.Fprint(b.out, "\a")
	c.Fprintf(b.out, "%s (%s, %.1fs)\n", label, signal.ID, signal.DurationSeconds)
}
