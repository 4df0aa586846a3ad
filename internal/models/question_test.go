package models

import (
	"encoding/json"
	"testing"
)

func TestIsValidQuestionType(t *testing.T) {
	for _, qt := range QuestionTypes {
		if !IsValidQuestionType(qt) {
			t.Errorf("expected %s to be valid", qt)
		}
	}
	if IsValidQuestionType("short_answer") {
		t.Error("expected short_answer to be invalid")
	}
}

func TestNewDefaultContentCoversAllTypes(t *testing.T) {
	for _, qt := range QuestionTypes {
		t.Run(string(qt), func(t *testing.T) {
			data, err := NewDefaultContent(qt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !json.Valid(data) {
				t.Error("default content is not valid JSON")
			}
		})
	}

	if _, err := NewDefaultContent("short_answer"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNewDefaultContentShapes(t *testing.T) {
	data, err := NewDefaultContent(MultipleChoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var mc MultipleChoiceContent
	if err := json.Unmarshal(data, &mc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(mc.Options) != 2 {
		t.Errorf("expected 2 default options, got %d", len(mc.Options))
	}
	for _, opt := range mc.Options {
		if opt.ID == "" {
			t.Error("expected generated option id")
		}
		if opt.Text != "" {
			t.Errorf("expected empty option text, got %q", opt.Text)
		}
	}

	data, err = NewDefaultContent(CodeInput)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var code CodeInputContent
	if err := json.Unmarshal(data, &code); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if code.Language != "python" {
		t.Errorf("expected default language python, got %s", code.Language)
	}
	if len(code.TestCases) != 1 {
		t.Errorf("expected 1 default test case, got %d", len(code.TestCases))
	}
}

func TestCountBlankMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"underscores", "The capital of France is ___.", 1},
		{"numbered", "__1__ comes before __2__.", 2},
		{"brackets", "Water is [H2O] and salt is [NaCl].", 2},
		{"braces", "A {noun} is a word.", 1},
		{"empty parens", "Fill in () here.", 1},
		{"mixed", "___ and [x] and {y}.", 3},
		{"none", "No blanks here.", 0},
		{"short underscores", "a __ b", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountBlankMarkers(tt.text); got != tt.want {
				t.Errorf("CountBlankMarkers(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEffectivePoints(t *testing.T) {
	mc := Question{Type: MultipleChoice, Points: 10}
	if got := mc.EffectivePoints(); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}

	content, _ := json.Marshal(FillBlankContent{
		Text: "___ and ___",
		Blanks: []Blank{
			{CorrectAnswers: []string{"a"}, Points: 3},
			{CorrectAnswers: []string{"b"}, Points: 4},
		},
	})
	fb := Question{Type: FillBlank, Points: 1, Content: content}
	if got := fb.EffectivePoints(); got != 7 {
		t.Errorf("expected 7 from blank points, got %d", got)
	}

	// malformed content falls back to declared points
	bad := Question{Type: FillBlank, Points: 6, Content: []byte(`{`)}
	if got := bad.EffectivePoints(); got != 6 {
		t.Errorf("expected fallback 6, got %d", got)
	}
}
