package recommendations

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateInput(t *testing.T) {
	if !ValidateInput(Input{}).Valid {
		t.Error("zero limit should use the default")
	}
	if ValidateInput(Input{Limit: 21}).Valid || ValidateInput(Input{Limit: -1}).Valid {
		t.Error("limit out of range accepted")
	}
	if ValidateInput(Input{Genres: []string{"a", "b", "c", "d"}}).Valid {
		t.Error("too many genres accepted")
	}
}

func TestBuildRequests(t *testing.T) {
	reqs := BuildRequests(Input{ReadBookIDs: []string{"b1", "b1"}, Genres: []string{"Fantasy", " fantasy ", "", "History"}})
	if len(reqs) != 2 {
		t.Fatalf("expected one request per distinct genre, got %d", len(reqs))
	}
	if reqs[0].Genre != "Fantasy" || reqs[1].Genre != "History" || reqs[0].Limit != DefaultLimit {
		t.Errorf("unexpected requests %+v", reqs)
	}
	if diff := cmp.Diff([]string{"b1"}, reqs[0].ReadBookIDs); diff != "" {
		t.Errorf("read ids (-want +got):\n%s", diff)
	}

	if single := BuildRequests(Input{Limit: 3}); len(single) != 1 || single[0].Limit != 3 {
		t.Errorf("unexpected single request %+v", single)
	}
}

func TestFilter(t *testing.T) {
	recs := []Recommendation{
		{BookID: "read", Title: "Already read"},
		{BookID: "a", Title: "A"},
		{BookID: "a", Title: "A again"},
		{Title: "No id"},
		{BookID: "b", Title: "B"},
		{BookID: "c", Title: "C"},
	}
	got := Filter(recs, []string{"read"}, 2)
	want := []Recommendation{{BookID: "a", Title: "A"}, {BookID: "b", Title: "B"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
