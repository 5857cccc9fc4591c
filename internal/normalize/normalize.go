// Package normalize turns stored or submitted question reference lists into
// ordered QuestionTokens.
package normalize

import (
	"bytes"
	"encoding/json"
	"examforge/internal/model"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	parentRe   = regexp.MustCompile(`(?i)parent:\s*([^\s,;|\[\]"']+)`)
	objectIDRe = regexp.MustCompile(`\b[0-9a-fA-F]{24}\b`)
	wordRe     = regexp.MustCompile(`[^\s,;|\[\]"']+`)
)

// Tokens normalizes a raw reference list. It accepts a typed list, a JSON
// encoded list, or free-form delimited text. Order is preserved and nothing
// is de-duplicated. Unusable input yields an empty list.
func Tokens(raw any) []model.QuestionToken {
	switch v := raw.(type) {
	case nil:
		return []model.QuestionToken{}
	case []model.QuestionToken:
		out := make([]model.QuestionToken, 0, len(v))
		for _, t := range v {
			if t.ID != "" {
				out = append(out, t)
			}
		}
		return out
	case []string:
		out := make([]model.QuestionToken, 0, len(v))
		for _, s := range v {
			if tok, ok := fromString(s); ok {
				out = append(out, tok)
			}
		}
		return out
	case []any:
		return fromList(v)
	case json.RawMessage:
		return fromText(string(v), true)
	case []byte:
		return fromText(string(v), true)
	case string:
		return fromText(v, true)
	default:
		return []model.QuestionToken{}
	}
}

// Strings renders tokens in their flat form ("<id>" or "parent:<id>")
func Strings(tokens []model.QuestionToken) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.String()
	}
	return out
}

// IDs returns the ids of every token, markers included
func IDs(tokens []model.QuestionToken) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.ID
	}
	return out
}

func fromList(items []any) []model.QuestionToken {
	out := make([]model.QuestionToken, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if tok, ok := fromString(v); ok {
				out = append(out, tok)
			}
		case float64:
			out = append(out, model.Plain(fmt.Sprintf("%v", v)))
		case json.Number:
			out = append(out, model.Plain(v.String()))
		case map[string]any:
			if tok, ok := fromObject(v); ok {
				out = append(out, tok)
			}
		}
	}
	return out
}

// fromObject reads {"parent": id}, {"kind": k, "id": id} or
// {"id"|"_id": id} elements
func fromObject(m map[string]any) (model.QuestionToken, bool) {
	if p, ok := m["parent"].(string); ok && strings.TrimSpace(p) != "" {
		return model.ParentMarker(strings.TrimSpace(p)), true
	}
	for _, k := range []string{"id", "_id"} {
		s, ok := m[k].(string)
		if !ok {
			continue
		}
		if kind, _ := m["kind"].(string); strings.EqualFold(kind, string(model.TokenParent)) {
			if id := strings.TrimSpace(s); id != "" {
				return model.ParentMarker(id), true
			}
			return model.QuestionToken{}, false
		}
		return fromString(s)
	}
	return model.QuestionToken{}, false
}

func fromString(s string) (model.QuestionToken, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.QuestionToken{}, false
	}
	if id, ok := model.TrimParentPrefix(s); ok {
		if id == "" {
			return model.QuestionToken{}, false
		}
		return model.ParentMarker(id), true
	}
	return model.Plain(s), true
}

func fromText(s string, unwrap bool) []model.QuestionToken {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "null" {
		return []model.QuestionToken{}
	}

	switch trimmed[0] {
	case '[':
		dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
		dec.UseNumber()
		var list []any
		if err := dec.Decode(&list); err == nil && !dec.More() {
			return fromList(list)
		}
	case '"':
		// Double-encoded rows: a JSON string holding the list
		var inner string
		if unwrap && json.Unmarshal([]byte(trimmed), &inner) == nil {
			return fromText(inner, false)
		}
	}

	return scan(trimmed)
}

type match struct {
	pos int
	tok model.QuestionToken
}

// scan reads free-form text: parent markers first, then object ids, then
// any leftover word. Results come back in order of first appearance.
func scan(s string) []model.QuestionToken {
	work := []byte(s)
	var found []match

	for _, loc := range parentRe.FindAllSubmatchIndex(work, -1) {
		found = append(found, match{pos: loc[0], tok: model.ParentMarker(string(work[loc[2]:loc[3]]))})
		blank(work, loc[0], loc[1])
	}
	for _, loc := range objectIDRe.FindAllIndex(work, -1) {
		found = append(found, match{pos: loc[0], tok: model.Plain(string(work[loc[0]:loc[1]]))})
		blank(work, loc[0], loc[1])
	}
	for _, loc := range wordRe.FindAllIndex(work, -1) {
		found = append(found, match{pos: loc[0], tok: model.Plain(string(work[loc[0]:loc[1]]))})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make([]model.QuestionToken, len(found))
	for i, m := range found {
		out[i] = m.tok
	}
	return out
}

func blank(b []byte, from, to int) {
	for i := from; i < to; i++ {
		b[i] = ' '
	}
}
