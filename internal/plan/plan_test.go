package plan

import (
	"reflect"
	"testing"

	"studycycle/backend/internal/model"
)

func settings(study, short, long, interval int) model.Settings {
	return model.Settings{
		StudyDurationMinutes: study,
		ShortBreakMinutes:    short,
		LongBreakMinutes:     long,
		LongBreakInterval:    interval,
	}
}

func types(blocks []model.Block) []model.BlockType {
	out := make([]model.BlockType, len(blocks))
	for i, b := range blocks {
		out[i] = b.Type
	}
	return out
}

func TestBuildWorkedExample(t *testing.T) {
	subjects := []model.Subject{
		{ID: "A", TimeGoalMinutes: 100, Order: 0},
		{ID: "B", TimeGoalMinutes: 50, Order: 1},
	}
	blocks := Build(subjects, settings(50, 10, 30, 4))

	want := []model.Block{
		{Type: model.BlockStudy, SubjectID: "A", DurationSeconds: 3000, SequenceIndex: 0},
		{Type: model.BlockShortBreak, DurationSeconds: 600, SequenceIndex: 1},
		{Type: model.BlockStudy, SubjectID: "A", DurationSeconds: 3000, SequenceIndex: 2},
		{Type: model.BlockShortBreak, DurationSeconds: 600, SequenceIndex: 3},
		{Type: model.BlockStudy, SubjectID: "B", DurationSeconds: 3000, SequenceIndex: 4},
	}
	if !reflect.DeepEqual(blocks, want) {
		t.Fatalf("unexpected plan:\n got %+v\nwant %+v", blocks, want)
	}
}

func TestBuildWithTrailingBreak(t *testing.T) {
	subjects := []model.Subject{
		{ID: "A", TimeGoalMinutes: 100, Order: 0},
		{ID: "B", TimeGoalMinutes: 50, Order: 1},
	}
	got := types(BuildWith(subjects, settings(50, 10, 30, 4), Options{TrailingBreak: true}))
	want := []model.BlockType{
		model.BlockStudy, model.BlockShortBreak,
		model.BlockStudy, model.BlockShortBreak,
		model.BlockStudy, model.BlockShortBreak,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildLongBreakCadenceCrossesSubjects(t *testing.T) {
	subjects := []model.Subject{
		{ID: "A", TimeGoalMinutes: 75, Order: 0},  // 3 blocks
		{ID: "B", TimeGoalMinutes: 125, Order: 1}, // 5 blocks
		{ID: "C", TimeGoalMinutes: 25, Order: 2},  // 1 block
	}
	blocks := Build(subjects, settings(25, 5, 15, 4))

	studied := 0
	for i, b := range blocks {
		if b.Type != model.BlockStudy {
			continue
		}
		studied++
		if i == len(blocks)-1 {
			if studied != 9 {
				t.Fatalf("expected last block to be study block 9, got %d", studied)
			}
			continue
		}
		next := blocks[i+1]
		want := model.BlockShortBreak
		if studied%4 == 0 {
			want = model.BlockLongBreak
		}
		if next.Type != want {
			t.Fatalf("study block %d followed by %s, want %s", studied, next.Type, want)
		}
	}
	if len(blocks) != 17 {
		t.Fatalf("expected 17 blocks, got %d", len(blocks))
	}
	if blocks[len(blocks)-1].Type != model.BlockStudy {
		t.Fatalf("plan must end with a study block, got %s", blocks[len(blocks)-1].Type)
	}
}

func TestBuildSkipsZeroGoalSubjects(t *testing.T) {
	subjects := []model.Subject{
		{ID: "A", TimeGoalMinutes: 0, Order: 0},
		{ID: "B", TimeGoalMinutes: 30, Order: 1},
		{ID: "C", TimeGoalMinutes: 0, Order: 2},
	}
	blocks := Build(subjects, settings(50, 10, 30, 4))
	if len(blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(blocks))
	}
	if blocks[0].SubjectID != "B" || blocks[0].DurationSeconds != 3000 {
		t.Fatalf("unexpected block %+v", blocks[0])
	}
	for _, b := range blocks {
		if b.DurationSeconds == 0 {
			t.Fatal("plan contains a zero-duration block")
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	blocks := Build(nil, model.DefaultSettings())
	if blocks == nil || len(blocks) != 0 {
		t.Fatalf("expected empty non-nil plan, got %#v", blocks)
	}
}

func TestBuildDeterministic(t *testing.T) {
	subjects := []model.Subject{
		{ID: "math", TimeGoalMinutes: 240, Order: 2},
		{ID: "bio", TimeGoalMinutes: 90, Order: 1},
		{ID: "art", TimeGoalMinutes: 45, Order: 1},
	}
	first := Build(subjects, model.DefaultSettings())
	second := Build(subjects, model.DefaultSettings())
	if !reflect.DeepEqual(first, second) {
		t.Fatal("plan is not deterministic")
	}
	if Fingerprint(first) != Fingerprint(second) {
		t.Fatal("fingerprint is not deterministic")
	}
	if first[0].SubjectID != "bio" {
		t.Fatalf("expected stable order to keep bio before art, got %s", first[0].SubjectID)
	}
}

func TestBuildDoesNotReorderInput(t *testing.T) {
	subjects := []model.Subject{
		{ID: "b", TimeGoalMinutes: 10, Order: 1},
		{ID: "a", TimeGoalMinutes: 10, Order: 0},
	}
	_ = Build(subjects, model.DefaultSettings())
	if subjects[0].ID != "b" {
		t.Fatal("Build mutated its input")
	}
}

func TestBuildNormalizesSettings(t *testing.T) {
	blocks := Build([]model.Subject{{ID: "A", TimeGoalMinutes: 60}}, model.Settings{})
	got := types(blocks)
	want := []model.BlockType{model.BlockStudy, model.BlockShortBreak, model.BlockStudy}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFingerprintChangesWithPlan(t *testing.T) {
	subjects := []model.Subject{{ID: "A", TimeGoalMinutes: 100}}
	a := Fingerprint(Build(subjects, settings(50, 10, 30, 4)))
	b := Fingerprint(Build(subjects, settings(25, 10, 30, 4)))
	if a == b {
		t.Fatal("different plans share a fingerprint")
	}
}

func TestOwnerOf(t *testing.T) {
	blocks := Build([]model.Subject{
		{ID: "A", TimeGoalMinutes: 100, Order: 0},
		{ID: "B", TimeGoalMinutes: 50, Order: 1},
	}, settings(50, 10, 30, 4))

	cases := map[int]string{0: "A", 1: "A", 3: "A", 4: "B"}
	for index, want := range cases {
		got, ok := OwnerOf(blocks, index)
		if !ok || got != want {
			t.Fatalf("OwnerOf(%d) = %q, %v; want %q", index, got, ok, want)
		}
	}
	if FirstIndexOf(blocks, "B") != 4 {
		t.Fatalf("expected B to start at 4, got %d", FirstIndexOf(blocks, "B"))
	}
	if FirstIndexOf(blocks, "missing") != -1 {
		t.Fatal("expected -1 for unknown subject")
	}
}
