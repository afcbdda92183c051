package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"studycycle/backend/internal/engine"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/plan"
)

func writeJSON(out io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func blockLabel(t model.BlockType) string {
	switch t {
	case model.BlockShortBreak:
		return "short break"
	case model.BlockLongBreak:
		return "long break"
	default:
		return "study"
	}
}

func statusColor(s engine.Status) *color.Color {
	switch s {
	case engine.StatusRunning:
		return color.New(color.FgGreen, color.Bold)
	case engine.StatusPaused:
		return color.New(color.FgYellow, color.Bold)
	case engine.StatusCompleted:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.Bold)
	}
}

func printPlan(out io.Writer, blocks []model.Block, subjects []model.Subject, current int) {
	bold := color.New(color.Bold)
	names := make(map[string]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Block"), bold.Sprint("Subject"), bold.Sprint("Length"))
	for _, b := range blocks {
		marker := " "
		if b.SequenceIndex == current {
			marker = ">"
		}
		owner, _ := plan.OwnerOf(blocks, b.SequenceIndex)
		tbl.AddRow(fmt.Sprintf("%s%d", marker, b.SequenceIndex+1), blockLabel(b.Type), names[owner], formatClock(b.DurationSeconds))
	}
	tbl.RightAlign(0)
	fmt.Fprintln(out, tbl)
	fmt.Fprintf(out, "%d blocks, %s total\n", len(blocks), formatClock(plan.TotalSeconds(blocks)))
}

func printView(out io.Writer, v engine.View) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Status"), statusColor(v.Status).Sprint(v.Status))
	if v.Block != nil {
		block := fmt.Sprintf("%d/%d %s", v.CurrentIndex+1, v.TotalBlocks, blockLabel(v.Block.Type))
		if v.SubjectName != "" {
			block += " (" + v.SubjectName + ")"
		}
		tbl.AddRow(bold.Sprint("Block"), block)
		tbl.AddRow(bold.Sprint("Time left"), formatClock(v.TimeLeftSeconds))
	} else if v.TotalBlocks > 0 {
		tbl.AddRow(bold.Sprint("Block"), "cycle complete")
	} else {
		tbl.AddRow(bold.Sprint("Block"), "no blocks planned")
	}
	fmt.Fprintln(out, tbl)

	if len(v.Progress) == 0 {
		return
	}
	progress := uitable.New()
	progress.Separator = "  "
	progress.AddRow(bold.Sprint("Subject"), bold.Sprint("Done"), bold.Sprint("Goal"))
	for _, p := range v.Progress {
		progress.AddRow(p.Name, fmt.Sprintf("%dm", p.Minutes), fmt.Sprintf("%dm", p.GoalMinutes))
	}
	fmt.Fprintln(out, progress)
}
