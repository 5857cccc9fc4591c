package event

import (
	"encoding/json"
	"testing"
)

func TestEncode(t *testing.T) {
	body, err := Encode(AttemptFinished, map[string]int{"score": 3})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != AttemptFinished {
		t.Errorf("expected type %q, got %q", AttemptFinished, got.Type)
	}
	if got.Payload["score"] != 3 {
		t.Errorf("expected payload score 3, got %v", got.Payload)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(ExamAssembled, nil); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	p.Close()
}
