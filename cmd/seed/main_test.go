package main

import (
	"examforge/internal/model"
	"examforge/internal/repository"
	"testing"
)

func TestRemapRewritesPassageLinks(t *testing.T) {
	keep := "64b7f0c2a1b2c3d4e5f60001"
	questions := []model.Question{
		{ID: keep, Text: "already primary"},
		{ID: "p1", Kind: model.QuestionComprehension, ChildIDs: []string{"c1", "c2", keep}},
		{ID: "c1", ParentID: "p1"},
		{ID: "c2"},
	}

	ids := Remap(questions)

	if len(ids) != 3 {
		t.Fatalf("expected 3 remapped ids, got %d", len(ids))
	}
	if questions[0].ID != keep {
		t.Errorf("existing ObjectID must be kept, got %s", questions[0].ID)
	}
	for _, q := range questions {
		if !repository.IsPrimaryID(q.ID) {
			t.Errorf("expected ObjectID, got %q", q.ID)
		}
	}
	parent := questions[1]
	if parent.ChildIDs[0] != questions[2].ID || parent.ChildIDs[1] != questions[3].ID || parent.ChildIDs[2] != keep {
		t.Errorf("child ids not rewritten: %v", parent.ChildIDs)
	}
	if questions[2].ParentID != parent.ID {
		t.Errorf("parent id not rewritten: %s", questions[2].ParentID)
	}
}

func TestRemapLinksChildrenToTheirPassage(t *testing.T) {
	questions := []model.Question{
		{ID: "fb-read-001", Kind: model.QuestionComprehension, ChildIDs: []string{"fb-read-001-a", "fb-read-001-b"}},
		{ID: "fb-read-001-a", Text: "Who?"},
		{ID: "fb-read-001-b", Text: "Where?", ParentID: "fb-read-001"},
		{ID: "fb-alg-001", Text: "2+2?"},
	}

	Remap(questions)

	passageID := questions[0].ID
	for _, child := range questions[1:3] {
		if child.ParentID != passageID {
			t.Errorf("expected %s parented to %s, got %q", child.Text, passageID, child.ParentID)
		}
		if !child.IsChild() {
			t.Errorf("expected %s to be a child", child.Text)
		}
	}
	if questions[3].ParentID != "" {
		t.Errorf("standalone question got a parent: %q", questions[3].ParentID)
	}
}
