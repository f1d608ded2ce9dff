package difficulty

import (
	"errors"
	"strings"
	"testing"

	"github.com/readmaster/read-master/internal/aierr"
)

const easyText = "The cat sat on the mat. The dog ran to the cat. They play in the sun. It is a good day. "

const hardText = "Epistemological considerations regarding institutional accountability necessitate " +
	"comprehensive evaluation of organizational infrastructure, particularly concerning " +
	"administrative responsibilities, interdisciplinary collaboration, and philosophical " +
	"justification of contemporary methodological presuppositions."

func TestAnalyzeIsDeterministic(t *testing.T) {
	a, b := Analyze(hardText), Analyze(hardText)
	if a != b {
		t.Fatalf("Analyze not deterministic: %+v vs %+v", a, b)
	}
}

func TestAnalyzeOrdersTexts(t *testing.T) {
	easy, hard := Analyze(easyText), Analyze(hardText)
	if easy.ReadingEase <= hard.ReadingEase {
		t.Errorf("easy ease %.1f should exceed hard ease %.1f", easy.ReadingEase, hard.ReadingEase)
	}
	if easy.Level != LevelBeginner {
		t.Errorf("easy level = %s", easy.Level)
	}
	if hard.Level != LevelExpert {
		t.Errorf("hard level = %s (grade %.1f)", hard.Level, hard.GradeLevel)
	}
	if easy.Sentences != 4 || easy.Words != 22 {
		t.Errorf("easy counts: %d sentences, %d words", easy.Sentences, easy.Words)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	e := Analyze("")
	if e.Words != 0 || e.Level != LevelBeginner {
		t.Errorf("unexpected estimate %+v", e)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":       1,
		"table":     2,
		"make":      1,
		"reading":   2,
		"beautiful": 3,
		"rhythm":    1,
	}
	for w, want := range tests {
		if got := countSyllables(w); got != want {
			t.Errorf("countSyllables(%q) = %d, want %d", w, got, want)
		}
	}
}

func TestLevelForGrade(t *testing.T) {
	tests := []struct {
		grade float64
		want  Level
	}{
		{2, LevelBeginner}, {5, LevelBeginner}, {7, LevelIntermediate}, {12, LevelAdvanced}, {15, LevelExpert},
	}
	for _, tt := range tests {
		if got := LevelForGrade(tt.grade); got != tt.want {
			t.Errorf("LevelForGrade(%v) = %s, want %s", tt.grade, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		text, reader Level
		want         Fit
	}{
		{LevelBeginner, LevelAdvanced, FitTooEasy},
		{LevelAdvanced, LevelAdvanced, FitJustRight},
		{LevelAdvanced, LevelIntermediate, FitChallenging},
		{LevelExpert, LevelBeginner, FitTooHard},
		{"unknown", LevelBeginner, FitJustRight},
	}
	for _, tt := range tests {
		if got := Match(tt.text, tt.reader); got != tt.want {
			t.Errorf("Match(%s, %s) = %s, want %s", tt.text, tt.reader, got, tt.want)
		}
	}
}

func TestValidateInput(t *testing.T) {
	if ValidateInput(Input{Text: strings.Repeat("a", 199)}).Valid {
		t.Error("short sample accepted")
	}
	if !ValidateInput(Input{Text: strings.Repeat("a", 200)}).Valid {
		t.Error("boundary sample rejected")
	}
	if ValidateInput(Input{Text: strings.Repeat("a", 10001)}).Valid {
		t.Error("long sample accepted")
	}
	if ValidateInput(Input{Text: strings.Repeat("a", 300), ReaderLevel: "genius"}).Valid {
		t.Error("unknown reader level accepted")
	}
}

func TestFromAIAndFallback(t *testing.T) {
	local := Analyze(easyText)
	merged := FromAI(local, AIResult{Level: LevelIntermediate, GradeLevel: 6.44})
	if merged.Level != LevelIntermediate || merged.GradeLevel != 6.4 || merged.EstimatedBy != "ai" || merged.Words != local.Words {
		t.Errorf("unexpected merge %+v", merged)
	}

	if !ShouldFallBack(aierr.New(aierr.KindAIDisabled, nil)) || !ShouldFallBack(aierr.New(aierr.KindAIUnavailable, nil)) {
		t.Error("disabled and unavailable should fall back")
	}
	if ShouldFallBack(aierr.New(aierr.KindValidation, nil)) || ShouldFallBack(nil) {
		t.Error("validation errors and nil must not fall back")
	}
	if ShouldFallBack(errors.New("context canceled")) {
		t.Error("unclassified errors must not fall back")
	}
}
