// Package plan turns subjects and settings into the ordered list of study and
// break blocks that make up one cycle.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"studycycle/backend/internal/model"
)

// Options tweaks plan shape.
type Options struct {
	// TrailingBreak appends a break after the final study block too.
	TrailingBreak bool
}

// Build returns the blocks for one full cycle. Subjects are visited by Order
// (ties keep their input order). A subject needs ceil(goal/study) study blocks and
// one with a zero goal contributes nothing. Every study block is followed by a
// break except the last one of the plan; the break is long whenever the global
// study block count is a multiple of the long break interval.
func Build(subjects []model.Subject, settings model.Settings) []model.Block {
	return BuildWith(subjects, settings, Options{})
}

func BuildWith(subjects []model.Subject, settings model.Settings, opts Options) []model.Block {
	s := settings.Normalized()
	ordered := make([]model.Subject, len(subjects))
	copy(ordered, subjects)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	studySeconds := s.StudyDurationMinutes * 60
	counts := make([]int, len(ordered))
	total := 0
	for i, subject := range ordered {
		counts[i] = studyBlocks(subject.TimeGoalMinutes, s.StudyDurationMinutes)
		total += counts[i]
	}

	blocks := make([]model.Block, 0, total*2)
	studied := 0
	for i, subject := range ordered {
		for n := 0; n < counts[i]; n++ {
			blocks = append(blocks, model.Block{
				Type:            model.BlockStudy,
				SubjectID:       subject.ID,
				DurationSeconds: studySeconds,
				SequenceIndex:   len(blocks),
			})
			studied++
			if studied == total && !opts.TrailingBreak {
				break
			}
			brk := model.Block{
				Type:            model.BlockShortBreak,
				DurationSeconds: s.ShortBreakMinutes * 60,
				SequenceIndex:   len(blocks),
			}
			if studied%s.LongBreakInterval == 0 {
				brk.Type = model.BlockLongBreak
				brk.DurationSeconds = s.LongBreakMinutes * 60
			}
			blocks = append(blocks, brk)
		}
	}
	return blocks
}

func studyBlocks(goalMinutes, studyMinutes int) int {
	if goalMinutes <= 0 || studyMinutes <= 0 {
		return 0
	}
	return (goalMinutes + studyMinutes - 1) / studyMinutes
}

// Fingerprint identifies a plan so persisted cycle state is only reattached to
// the exact plan its indices address.
func Fingerprint(blocks []model.Block) string {
	h := sha256.New()
	for _, b := range blocks {
		fmt.Fprintf(h, "%d|%s|%s|%d\n", b.SequenceIndex, b.Type, b.SubjectID, b.DurationSeconds)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func TotalSeconds(blocks []model.Block) int {
	total := 0
	for _, b := range blocks {
		total += b.DurationSeconds
	}
	return total
}

// FirstIndexOf returns the index of the first study block for subjectID, or -1.
func FirstIndexOf(blocks []model.Block, subjectID string) int {
	for i, b := range blocks {
		if b.Type == model.BlockStudy && b.SubjectID == subjectID {
			return i
		}
	}
	return -1
}

// OwnerOf returns the subject a block belongs to: its own subject for study
// blocks, the closest preceding study block's subject for breaks.
func OwnerOf(blocks []model.Block, index int) (string, bool) {
	if index >= len(blocks) {
		index = len(blocks) - 1
	}
	for i := index; i >= 0; i-- {
		if blocks[i].Type == model.BlockStudy {
			return blocks[i].SubjectID, true
		}
	}
	return "", false
}
