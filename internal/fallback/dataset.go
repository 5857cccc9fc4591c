// Package fallback serves the static question dataset used when a question
// is not in the primary store. The dataset is loaded once into an indexed,
// read-only snapshot; Reload swaps it atomically.
package fallback

import (
	"encoding/json"
	"errors"
	"examforge/internal/model"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ErrUnavailable is returned when no snapshot has been loaded
var ErrUnavailable = errors.New("fallback dataset unavailable")

type snapshot struct {
	byID  map[string]*model.Question
	order []string // File order, used for sampling
}

// Dataset is the process-local fallback source
type Dataset struct {
	path string
	snap atomic.Pointer[snapshot]
}

// New creates a dataset bound to a JSON file. Call Reload to load it.
func New(path string) *Dataset {
	return &Dataset{path: path}
}

// FromQuestions builds an already-loaded dataset, used by tests and seeding
func FromQuestions(questions []model.Question) *Dataset {
	d := &Dataset{}
	d.snap.Store(index(questions))
	return d
}

// Reload reads the file and replaces the snapshot. On error the previous
// snapshot (if any) stays in place.
func (d *Dataset) Reload() error {
	if d.path == "" {
		return fmt.Errorf("%w: no path configured", ErrUnavailable)
	}
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("open fallback dataset: %w", err)
	}
	defer f.Close()

	questions, err := Decode(f)
	if err != nil {
		return err
	}
	d.snap.Store(index(questions))
	return nil
}

// Decode reads a JSON array of question records
func Decode(r io.Reader) ([]model.Question, error) {
	var questions []model.Question
	if err := json.NewDecoder(r).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode fallback dataset: %w", err)
	}
	return questions, nil
}

// Len returns the number of loaded records
func (d *Dataset) Len() int {
	s := d.snap.Load()
	if s == nil {
		return 0
	}
	return len(s.order)
}

// FindByIDs returns copies of the records known for ids, in input order
func (d *Dataset) FindByIDs(ids []string) ([]*model.Question, error) {
	s := d.snap.Load()
	if s == nil {
		return nil, ErrUnavailable
	}
	out := make([]*model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.byID[id]; ok {
			out = append(out, clone(q))
		}
	}
	return out, nil
}

// Eligible returns the records a fresh exam may draw from: standalone and
// passage records matching the filter, never passage children.
func (d *Dataset) Eligible(filter model.QuestionFilter) ([]*model.Question, error) {
	s := d.snap.Load()
	if s == nil {
		return nil, ErrUnavailable
	}
	var out []*model.Question
	for _, id := range s.order {
		q := s.byID[id]
		if q.IsChild() {
			continue
		}
		if filter.Module != "" && q.Module != filter.Module {
			continue
		}
		if filter.Scope != "" && q.Scope != filter.Scope {
			continue
		}
		out = append(out, clone(q))
	}
	return out, nil
}

func index(questions []model.Question) *snapshot {
	s := &snapshot{byID: make(map[string]*model.Question, len(questions))}
	for i := range questions {
		q := questions[i]
		if q.ID == "" {
			continue
		}
		q.Source = model.SourceFallback
		if _, dup := s.byID[q.ID]; !dup {
			s.order = append(s.order, q.ID)
		}
		s.byID[q.ID] = &q
	}
	// Children listed by a passage but missing a back reference still must
	// not be drawn on their own.
	for _, q := range s.byID {
		if !q.IsParent() {
			continue
		}
		for _, cid := range q.ChildIDs {
			if c, ok := s.byID[cid]; ok && c.ParentID == "" {
				c.ParentID = q.ID
			}
		}
	}
	return s
}

func clone(q *model.Question) *model.Question {
	c := *q
	c.Choices = append([]string(nil), q.Choices...)
	c.ChildIDs = append([]string(nil), q.ChildIDs...)
	if q.CorrectIndex != nil {
		idx := *q.CorrectIndex
		c.CorrectIndex = &idx
	}
	return &c
}
