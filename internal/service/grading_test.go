package service

import (
	"examforge/internal/model"
	"examforge/internal/permutation"
	"reflect"
	"testing"
)

func TestGradeScenarioPermutation(t *testing.T) {
	q := mcq("q", "Pick", 2, "a", "b", "c", "d")
	questions := map[string]*model.Question{"q": &q}
	perms := map[string][]int{"q": {2, 0, 3, 1}}

	// display[0] = canonical[P[0]] = canonical[2], the correct choice
	for d := 0; d < 4; d++ {
		g := Grade([]model.AnswerSubmission{{QuestionID: "q", DisplayIndex: intPtr(d)}}, questions, perms, 50)
		want := d == 0
		if g.Result.Details[0].Correct != want {
			t.Errorf("display %d: expected correct=%v", d, want)
		}
		if *g.Result.Details[0].YourCanonicalIndex != perms["q"][d] {
			t.Errorf("display %d: expected canonical %d, got %d", d, perms["q"][d], *g.Result.Details[0].YourCanonicalIndex)
		}
	}
}

func TestGradeCorrectOnlyAtDisplaySlotOfKey(t *testing.T) {
	engine := permutation.NewSeeded(42, 43)
	for n := 1; n <= 6; n++ {
		choices := make([]string, n)
		for i := range choices {
			choices[i] = string(rune('a' + i))
		}
		for correct := 0; correct < n; correct++ {
			q := mcq("q", "x", correct, choices...)
			perm := engine.Generate(n)
			slot, ok := permutation.Display(perm, correct)
			if !ok {
				t.Fatalf("no display slot for canonical %d in %v", correct, perm)
			}
			for d := 0; d < n; d++ {
				g := Grade(
					[]model.AnswerSubmission{{QuestionID: "q", DisplayIndex: intPtr(d)}},
					map[string]*model.Question{"q": &q},
					map[string][]int{"q": perm},
					100,
				)
				if g.Result.Details[0].Correct != (d == slot) {
					t.Fatalf("n=%d correct=%d perm=%v display=%d: expected correct=%v", n, correct, perm, d, d == slot)
				}
			}
		}
	}
}

func TestGrade(t *testing.T) {
	q1 := mcq("q1", "one", 1, "a", "b", "c")
	q2 := mcq("q2", "two", 0, "a", "b")
	noKey := model.Question{ID: "q3", Text: "no key", Choices: []string{"a", "b"}}
	badKey := mcq("q4", "bad key", 5, "a", "b")
	questions := map[string]*model.Question{"q1": &q1, "q2": &q2, "q3": &noKey, "q4": &badKey}

	testCases := []struct {
		name        string
		answers     []model.AnswerSubmission
		perms       map[string][]int
		wantScore   int
		wantTotal   int
		wantPct     int
		wantPassed  bool
		wantCorrect []bool
		unpermuted  []string
	}{
		{
			name: "no instance treats display as canonical",
			answers: []model.AnswerSubmission{
				{QuestionID: "q1", DisplayIndex: intPtr(1)},
				{QuestionID: "q2", DisplayIndex: intPtr(1)},
			},
			wantScore: 1, wantTotal: 2, wantPct: 50, wantPassed: false,
			wantCorrect: []bool{true, false},
			unpermuted:  []string{"q1", "q2"},
		},
		{
			name: "unknown key counted but never correct",
			answers: []model.AnswerSubmission{
				{QuestionID: "q1", DisplayIndex: intPtr(0)},
				{QuestionID: "q3", DisplayIndex: intPtr(0)},
				{QuestionID: "q4", DisplayIndex: intPtr(1)},
				{QuestionID: "missing", DisplayIndex: intPtr(0)},
			},
			perms:     map[string][]int{"q1": {1, 0, 2}, "q3": {0, 1}, "q4": {1, 0}, "missing": {0}},
			wantScore: 1, wantTotal: 4, wantPct: 25,
			wantCorrect: []bool{true, false, false, false},
		},
		{
			name: "out of range and missing display index",
			answers: []model.AnswerSubmission{
				{QuestionID: "q1", DisplayIndex: intPtr(3)},
				{QuestionID: "q2", DisplayIndex: intPtr(-1)},
				{QuestionID: "q2b"},
			},
			perms:     map[string][]int{"q1": {0, 1, 2}},
			wantScore: 0, wantTotal: 3, wantPct: 0,
			wantCorrect: []bool{false, false, false},
			unpermuted:  []string{"q2", "q2b"},
		},
		{
			name: "duplicate question keeps first position and last answer",
			answers: []model.AnswerSubmission{
				{QuestionID: "q1", DisplayIndex: intPtr(0)},
				{QuestionID: "q2", DisplayIndex: intPtr(0)},
				{QuestionID: "q1", DisplayIndex: intPtr(1)},
			},
			perms:     map[string][]int{"q1": {0, 1, 2}, "q2": {0, 1}},
			wantScore: 2, wantTotal: 2, wantPct: 100, wantPassed: true,
			wantCorrect: []bool{true, true},
		},
		{
			name: "stale permutation uses canonical order",
			answers: []model.AnswerSubmission{
				{QuestionID: "q2", DisplayIndex: intPtr(0)},
			},
			perms:     map[string][]int{"q2": {2, 1, 0}},
			wantScore: 1, wantTotal: 1, wantPct: 100, wantPassed: true,
			wantCorrect: []bool{true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := Grade(tc.answers, questions, tc.perms, 60)
			r := g.Result
			if r.Score != tc.wantScore || r.Total != tc.wantTotal || r.Percentage != tc.wantPct || r.Passed != tc.wantPassed {
				t.Fatalf("got score=%d total=%d pct=%d passed=%v", r.Score, r.Total, r.Percentage, r.Passed)
			}
			var correct []bool
			for _, d := range r.Details {
				correct = append(correct, d.Correct)
			}
			if !reflect.DeepEqual(correct, tc.wantCorrect) {
				t.Errorf("expected correctness %v, got %v", tc.wantCorrect, correct)
			}
			if !reflect.DeepEqual(g.Unpermuted, tc.unpermuted) {
				t.Errorf("expected unpermuted %v, got %v", tc.unpermuted, g.Unpermuted)
			}
			if len(g.Records) != len(r.Details) {
				t.Errorf("expected one record per detail")
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	testCases := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half away from zero
		{5, 5, 100},
	}
	for _, tc := range testCases {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}

func TestGradeRecordsSelectedText(t *testing.T) {
	q := mcq("q", "x", 2, "red", "green", "blue")
	g := Grade(
		[]model.AnswerSubmission{{QuestionID: "q", DisplayIndex: intPtr(0)}},
		map[string]*model.Question{"q": &q},
		map[string][]int{"q": {2, 1, 0}},
		50,
	)
	rec := g.Records[0]
	if rec.SelectedText != "blue" || !rec.IsCorrect || *rec.CanonicalIndex != 2 || *rec.DisplayIndex != 0 {
		t.Errorf("unexpected record %+v", rec)
	}
}
