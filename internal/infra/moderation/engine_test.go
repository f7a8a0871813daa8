package moderation

import (
	"context"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestEvaluateCleanText(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Evaluate(context.Background(), "Helped a classmate carry their books today!")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Flagged {
		t.Fatalf("clean text flagged: %+v", result)
	}
	if result.Severity != "none" {
		t.Fatalf("severity = %q, want none", result.Severity)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("matches = %v, want none", result.Matches)
	}
}

func TestEvaluateCrisisText(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Evaluate(context.Background(), "Sometimes I just want to DIE and end it all")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Flagged || !result.Crisis {
		t.Fatalf("crisis text not escalated: %+v", result)
	}
	if result.Severity != "crisis" {
		t.Fatalf("severity = %q, want crisis", result.Severity)
	}
	if len(result.Matches) < 2 {
		t.Fatalf("matches = %v, want both phrases", result.Matches)
	}
}

func TestEvaluateBullyingText(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Evaluate(context.Background(), "nobody likes you, loser")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Flagged {
		t.Fatalf("bullying text not flagged: %+v", result)
	}
	if result.Crisis {
		t.Fatal("bullying text misclassified as crisis")
	}
	if result.Severity != "warn" {
		t.Fatalf("severity = %q, want warn", result.Severity)
	}
}

func TestEvaluateCaseInsensitive(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Evaluate(context.Background(), "YOU ARE WORTHLESS")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Flagged || result.Severity != "warn" {
		t.Fatalf("case folding failed: %+v", result)
	}
}

func TestEvaluateNilEngine(t *testing.T) {
	var engine *Engine
	if _, err := engine.Evaluate(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from nil engine")
	}
}
