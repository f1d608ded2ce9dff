package checkin

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var now = time.Unix(1_700_000_000, 0)

func TestMilestones(t *testing.T) {
	tests := []struct {
		f    Frequency
		want []int
	}{
		{FrequencyOff, []int{}},
		{FrequencyMinimal, []int{50, 100}},
		{FrequencyStandard, []int{25, 50, 75, 100}},
		{FrequencyFrequent, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Milestones(tt.f)); diff != "" {
			t.Errorf("Milestones(%s) (-want +got):\n%s", tt.f, diff)
		}
	}
}

func TestCurrentMilestone(t *testing.T) {
	tests := []struct {
		percent float64
		f       Frequency
		want    int
		ok      bool
	}{
		{10, FrequencyStandard, 0, false},
		{25, FrequencyStandard, 25, true},
		{49.9, FrequencyStandard, 25, true},
		{80, FrequencyStandard, 75, true},
		{100, FrequencyStandard, 100, true},
		{99, FrequencyMinimal, 50, true},
		{35, FrequencyFrequent, 30, true},
		{100, FrequencyOff, 0, false},
	}
	for _, tt := range tests {
		for i := 0; i < 2; i++ {
			got, ok := CurrentMilestone(tt.percent, tt.f)
			if got != tt.want || ok != tt.ok {
				t.Errorf("CurrentMilestone(%v, %s) = %d, %v; want %d, %v", tt.percent, tt.f, got, ok, tt.want, tt.ok)
			}
		}
	}
}

func TestShouldTriggerSkipsCompleted(t *testing.T) {
	p := NewProgress("book_1")
	m, ok := ShouldTrigger(52, FrequencyStandard, p)
	if !ok || m != 50 {
		t.Fatalf("expected trigger at 50, got %d, %v", m, ok)
	}

	p = p.MarkMilestoneComplete(50, now)
	if _, ok := ShouldTrigger(52, FrequencyStandard, p); ok {
		t.Fatal("completed milestone must not re-trigger")
	}
	if m, ok := ShouldTrigger(76, FrequencyStandard, p); !ok || m != 75 {
		t.Fatalf("expected trigger at 75, got %d, %v", m, ok)
	}
}

func TestMarkMilestoneCompleteMonotonic(t *testing.T) {
	p := NewProgress("book_1")
	p1 := p.MarkMilestoneComplete(75, now)
	p2 := p1.MarkMilestoneComplete(25, now)
	p3 := p2.MarkMilestoneComplete(75, now)

	if len(p.CompletedMilestones) != 0 || len(p1.CompletedMilestones) != 1 {
		t.Fatal("MarkMilestoneComplete mutated its receiver")
	}
	if diff := cmp.Diff([]int{25, 75}, p3.CompletedMilestones); diff != "" {
		t.Errorf("milestones (-want +got):\n%s", diff)
	}
	if p3.LastCheckinAt == nil || !p3.LastCheckinAt.Equal(now) {
		t.Errorf("LastCheckinAt = %v", p3.LastCheckinAt)
	}
}

func TestProgressMapNormalize(t *testing.T) {
	pm := ProgressMap{
		"book_1": {CompletedMilestones: []int{75, 25, 25, 0, 150}},
	}
	if !pm.Normalize() {
		t.Fatal("expected repairable map")
	}
	want := Progress{BookID: "book_1", CompletedMilestones: []int{25, 75}}
	if diff := cmp.Diff(want, pm["book_1"]); diff != "" {
		t.Errorf("normalized (-want +got):\n%s", diff)
	}

	mismatched := ProgressMap{"book_1": {BookID: "book_2"}}
	if mismatched.Normalize() {
		t.Fatal("mismatched book id must be rejected")
	}

	var empty ProgressMap
	if !empty.Normalize() || empty == nil {
		t.Fatal("nil map should normalize to empty")
	}
}

func TestProgressMapWithCopies(t *testing.T) {
	pm := ProgressMap{}
	next := pm.With(pm.For("book_1").MarkMilestoneComplete(50, now))
	if len(pm) != 0 {
		t.Fatal("With mutated its receiver")
	}
	if !next.For("book_1").IsCompleted(50) {
		t.Fatal("expected milestone recorded")
	}
}

func TestParseFrequency(t *testing.T) {
	if f, ok := ParseFrequency(" Frequent "); !ok || f != FrequencyFrequent {
		t.Errorf("ParseFrequency = %q, %v", f, ok)
	}
	if _, ok := ParseFrequency("hourly"); ok {
		t.Error("unknown frequency accepted")
	}
}

func TestValidation(t *testing.T) {
	if r := ValidatePassage(strings.Repeat("a", 99)); r.Valid {
		t.Error("short passage accepted")
	}
	if !ValidatePassage(strings.Repeat("a", 100)).Valid || !ValidatePassage(strings.Repeat("a", 20000)).Valid {
		t.Error("boundary passages rejected")
	}
	if ValidatePassage(strings.Repeat("a", 20001)).Valid {
		t.Error("long passage accepted")
	}
	if ValidateQuestionCount(0).Valid || ValidateQuestionCount(6).Valid || !ValidateQuestionCount(5).Valid {
		t.Error("question count bounds wrong")
	}
	if ValidateAnswer("").Valid || ValidateAnswer(strings.Repeat("a", 1001)).Valid || !ValidateAnswer("Because.").Valid {
		t.Error("answer validation wrong")
	}
}

func TestBuildRequest(t *testing.T) {
	passage := strings.Repeat("word ", 40)
	gen := BuildRequest(Input{BookID: "b", Passage: passage})
	if gen.Action != "generate" || gen.QuestionCount != DefaultQuestionCount {
		t.Errorf("unexpected generate request %+v", gen)
	}

	eval := BuildRequest(Input{BookID: "b", Passage: passage, QuestionCount: 4, Answers: []Answer{{QuestionID: "q1", Answer: "x"}}})
	if eval.Action != "evaluate" || eval.QuestionCount != 0 || len(eval.Answers) != 1 {
		t.Errorf("unexpected evaluate request %+v", eval)
	}

	if ValidateInput(Input{BookID: "b", Passage: passage, Answers: []Answer{{Answer: ""}}}).Valid {
		t.Error("blank answer accepted")
	}
}
