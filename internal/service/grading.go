package service

import (
	"examforge/internal/model"
	"examforge/internal/permutation"
	"math"
)

// Grading is the outcome of scoring one submission
type Grading struct {
	Result  model.GradeResult
	Records []model.AnswerRecord
	// Question ids whose display index was taken as canonical because no
	// stored permutation exists for them
	Unpermuted []string
}

// Grade scores answers against canonical keys. permutations maps question
// id to the stored display order (nil when no exam instance is known).
// Repeated question ids count once: the last answer wins and the first
// position is kept.
func Grade(answers []model.AnswerSubmission, questions map[string]*model.Question, permutations map[string][]int, passThreshold int) Grading {
	answers = collapseDuplicates(answers)

	g := Grading{
		Result: model.GradeResult{
			Total:   len(answers),
			Details: make([]model.GradeDetail, 0, len(answers)),
		},
		Records: make([]model.AnswerRecord, 0, len(answers)),
	}

	for _, a := range answers {
		q := questions[a.QuestionID]
		perm, hasPerm := permutations[a.QuestionID]
		if !hasPerm || perm == nil {
			g.Unpermuted = append(g.Unpermuted, a.QuestionID)
		}

		canonical := toCanonical(a.DisplayIndex, perm, q)

		var correctIndex *int
		if q != nil {
			if idx, ok := q.KnownCorrectIndex(); ok {
				correctIndex = intPtr(idx)
			}
		}

		correct := canonical != nil && correctIndex != nil && *canonical == *correctIndex
		if correct {
			g.Result.Score++
		}

		record := model.AnswerRecord{
			QuestionID:     a.QuestionID,
			DisplayIndex:   a.DisplayIndex,
			CanonicalIndex: canonical,
			CorrectIndex:   correctIndex,
			IsCorrect:      correct,
		}
		if q != nil && canonical != nil && *canonical < len(q.Choices) {
			record.SelectedText = q.Choices[*canonical]
		}
		g.Records = append(g.Records, record)

		g.Result.Details = append(g.Result.Details, model.GradeDetail{
			QuestionID:         a.QuestionID,
			CorrectIndex:       correctIndex,
			YourCanonicalIndex: canonical,
			Correct:            correct,
		})
	}

	g.Result.Percentage = Percentage(g.Result.Score, g.Result.Total)
	g.Result.Passed = g.Result.Percentage >= passThreshold
	return g
}

// Percentage is round(100*score/max(1,total))
func Percentage(score, total int) int {
	if total < 1 {
		total = 1
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

// toCanonical maps a display index through perm. Without a stored
// permutation the index is taken as canonical. A permutation that no
// longer fits the question's choices is ignored, matching how the choices
// were displayed.
func toCanonical(display *int, perm []int, q *model.Question) *int {
	if display == nil {
		return nil
	}
	d := *display

	if perm != nil && (q == nil || permutation.Valid(perm, len(q.Choices))) {
		c, ok := permutation.Canonical(perm, d)
		if !ok {
			return nil
		}
		return intPtr(c)
	}

	if d < 0 || (q != nil && d >= len(q.Choices)) {
		return nil
	}
	return intPtr(d)
}

func collapseDuplicates(answers []model.AnswerSubmission) []model.AnswerSubmission {
	pos := make(map[string]int, len(answers))
	out := make([]model.AnswerSubmission, 0, len(answers))
	for _, a := range answers {
		if i, ok := pos[a.QuestionID]; ok {
			out[i] = a
			continue
		}
		pos[a.QuestionID] = len(out)
		out = append(out, a)
	}
	return out
}

func intPtr(v int) *int {
	return &v
}
