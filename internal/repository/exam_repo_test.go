package repository

import (
	"examforge/internal/model"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecodeExamTokenForms(t *testing.T) {
	oid := primitive.NewObjectID()
	scenario := []model.QuestionToken{model.Plain("q1"), model.ParentMarker("p1")}

	testCases := []struct {
		name   string
		tokens any
		want   []model.QuestionToken
	}{
		{"token objects", []model.QuestionToken{model.Plain("q1"), model.ParentMarker("p1")}, scenario},
		{"flat strings", bson.A{"q1", "parent:p1"}, scenario},
		{"json text", `["q1","parent:p1"]`, scenario},
		{"free text", "q1, parent:p1", scenario},
		{"object id element", bson.A{oid, bson.M{"parent": "p1"}}, []model.QuestionToken{model.Plain(oid.Hex()), model.ParentMarker("p1")}},
		{"numbers", bson.A{int32(7), "parent:p1"}, []model.QuestionToken{model.Plain("7"), model.ParentMarker("p1")}},
		{"missing", nil, []model.QuestionToken{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := bson.M{
				"_id":          "e1",
				"permutations": bson.A{bson.A{1, 0}, nil},
				"status":       string(model.ExamIssued),
				"createdAt":    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			}
			if tc.tokens != nil {
				doc["tokens"] = tc.tokens
			}
			raw, err := bson.Marshal(doc)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			exam, err := DecodeExam(raw)
			if err != nil {
				t.Fatalf("DecodeExam failed: %v", err)
			}
			if !reflect.DeepEqual(exam.Tokens, tc.want) {
				t.Errorf("tokens = %v, want %v", exam.Tokens, tc.want)
			}
			if exam.ID != "e1" || exam.Status != model.ExamIssued {
				t.Errorf("other fields not decoded: %+v", exam)
			}
			if len(exam.Permutations) != 2 || !reflect.DeepEqual(exam.Permutations[0], []int{1, 0}) {
				t.Errorf("permutations = %v", exam.Permutations)
			}
		})
	}
}
