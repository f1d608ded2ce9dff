package preread

import "testing"

func sampleGuide() Guide {
	return Guide{
		BookID: "book_1",
		Sections: []Section{
			{ID: "overview", Kind: SectionOverview, Title: "Overview", Content: "A desert planet."},
			{Kind: SectionVocabulary, Title: "Vocabulary", Terms: []Term{{Term: "spice", Definition: "melange"}}},
			{Kind: SectionContext, Title: "Empty"},
			{ID: "overview", Kind: SectionQuestions, Title: "Questions", Items: []string{"Why Arrakis?"}},
		},
	}
}

func TestNormalize(t *testing.T) {
	g := sampleGuide().Normalize()
	if len(g.Sections) != 3 {
		t.Fatalf("expected empty section dropped, got %d sections", len(g.Sections))
	}
	ids := []string{g.Sections[0].ID, g.Sections[1].ID, g.Sections[2].ID}
	want := []string{"overview", "vocabulary-1", "questions-2"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("section %d id = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestViewTransitions(t *testing.T) {
	g := sampleGuide().Normalize()
	v := DefaultView(g)
	if !v.IsExpanded("overview") || v.IsExpanded("vocabulary-1") {
		t.Fatalf("unexpected default view %+v", v)
	}

	toggled := v.ToggleSection("vocabulary-1")
	if !toggled.IsExpanded("vocabulary-1") || v.IsExpanded("vocabulary-1") {
		t.Fatal("ToggleSection must return a new view")
	}
	if toggled.ToggleSection("overview").IsExpanded("overview") {
		t.Fatal("toggling an expanded section collapses it")
	}

	all := ExpandAll(g)
	for _, s := range g.Sections {
		if !all.IsExpanded(s.ID) {
			t.Errorf("section %s not expanded", s.ID)
		}
	}
	if len(CollapseAll().Expanded) != 0 {
		t.Error("CollapseAll should expand nothing")
	}
}

func TestValidateInput(t *testing.T) {
	if ValidateInput(Input{}).Valid {
		t.Fatal("missing book id accepted")
	}
	if !ValidateInput(Input{BookID: "b"}).Valid {
		t.Fatal("valid input rejected")
	}
}
