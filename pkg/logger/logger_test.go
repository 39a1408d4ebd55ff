package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestFieldsAreEncoded(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("component", "composer"))

	l.Info("signal generated",
		Any("levels", map[string]float64{"stopLoss": 2950.5}),
		Duration("took", 1500*time.Millisecond),
		Strings("symbols", []string{"btc", "eth"}),
	)

	var line struct {
		Component string             `json:"component"`
		Message   string             `json:"message"`
		Levels    map[string]float64 `json:"levels"`
		Took      int                `json:"took"`
		Symbols   []string           `json:"symbols"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line.Component != "composer" || line.Message != "signal generated" {
		t.Fatalf("unexpected line %+v", line)
	}
	if line.Levels["stopLoss"] != 2950.5 {
		t.Fatalf("levels = %v", line.Levels)
	}
	if line.Took != 1500 || len(line.Symbols) != 2 {
		t.Fatalf("took=%d symbols=%v", line.Took, line.Symbols)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
