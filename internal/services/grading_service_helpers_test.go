package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/coursekit/quiz-service/internal/models"
)

const scoreEpsilon = 1e-9

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func assertScore(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > scoreEpsilon {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestGradeMultipleChoice(t *testing.T) {
	content := models.MultipleChoiceContent{
		Options: []models.ChoiceOption{
			{ID: "a", Text: "Paris"},
			{ID: "b", Text: "Lyon"},
			{ID: "c", Text: "Nice"},
		},
		CorrectIndex: 0,
	}

	tests := []struct {
		name        string
		answer      interface{}
		wantScore   float64
		wantCorrect bool
		wantErr     bool
	}{
		{name: "correct index", answer: 0, wantScore: 1.0, wantCorrect: true},
		{name: "wrong index", answer: 2, wantScore: 0.0},
		{name: "negative index is incorrect not an error", answer: -1, wantScore: 0.0},
		{name: "out of range index is incorrect not an error", answer: 99, wantScore: 0.0},
		{name: "malformed answer", answer: "not-an-index", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct, err := gradeMultipleChoice(mustJSON(t, content), mustJSON(t, tt.answer))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertScore(t, score, tt.wantScore)
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}
}

func TestGradeTrueFalse(t *testing.T) {
	content := models.TrueFalseContent{CorrectAnswer: true}

	score, correct, err := gradeTrueFalse(mustJSON(t, content), mustJSON(t, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertScore(t, score, 1.0)
	if !correct {
		t.Error("expected correct")
	}

	score, correct, err = gradeTrueFalse(mustJSON(t, content), mustJSON(t, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertScore(t, score, 0.0)
	if correct {
		t.Error("expected incorrect")
	}
}

func TestGradeCheckbox(t *testing.T) {
	options := []models.ChoiceOption{
		{ID: "a", Text: "2"},
		{ID: "b", Text: "3"},
		{ID: "c", Text: "5"},
		{ID: "d", Text: "6"},
	}

	tests := []struct {
		name        string
		content     models.CheckboxContent
		selected    []string
		wantScore   float64
		wantCorrect bool
	}{
		{
			name: "exact match without partial credit",
			content: models.CheckboxContent{
				Options:        options,
				CorrectAnswers: []string{"a", "b", "c"},
			},
			selected:    []string{"c", "a", "b"},
			wantScore:   1.0,
			wantCorrect: true,
		},
		{
			name: "near miss without partial credit scores zero",
			content: models.CheckboxContent{
				Options:        options,
				CorrectAnswers: []string{"a", "b", "c"},
			},
			selected:  []string{"a", "b"},
			wantScore: 0.0,
		},
		{
			name: "partial credit without penalty",
			content: models.CheckboxContent{
				Options:            options,
				CorrectAnswers:     []string{"a", "b", "c"},
				AllowPartialCredit: true,
			},
			selected:  []string{"a", "b", "d"},
			wantScore: 2.0 / 3.0,
		},
		{
			name: "penalty subtracts wrong selections",
			content: models.CheckboxContent{
				Options:            options,
				CorrectAnswers:     []string{"a", "b", "c"},
				AllowPartialCredit: true,
				PenalizeIncorrect:  true,
			},
			selected:  []string{"a", "b", "d"},
			wantScore: 1.0 / 3.0,
		},
		{
			name: "penalty clamps at zero",
			content: models.CheckboxContent{
				Options:            options,
				CorrectAnswers:     []string{"a"},
				AllowPartialCredit: true,
				PenalizeIncorrect:  true,
			},
			selected:  []string{"b", "c", "d"},
			wantScore: 0.0,
		},
		{
			name: "unknown option ids count as wrong selections",
			content: models.CheckboxContent{
				Options:            options,
				CorrectAnswers:     []string{"a", "b"},
				AllowPartialCredit: true,
				PenalizeIncorrect:  true,
			},
			selected:  []string{"a", "zzz"},
			wantScore: 0.0,
		},
		{
			name: "duplicate selections count once",
			content: models.CheckboxContent{
				Options:            options,
				CorrectAnswers:     []string{"a", "b"},
				AllowPartialCredit: true,
			},
			selected:  []string{"a", "a", "a"},
			wantScore: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct, err := gradeCheckbox(mustJSON(t, tt.content), mustJSON(t, tt.selected))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertScore(t, score, tt.wantScore)
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}
}

func TestGradeFillBlank(t *testing.T) {
	content := models.FillBlankContent{
		Text: "The capital of France is ___ and of Spain is ___",
		Blanks: []models.Blank{
			{CorrectAnswers: []string{"Paris"}, Points: 5},
			{CorrectAnswers: []string{"Madrid"}, Points: 5},
		},
	}

	tests := []struct {
		name        string
		answers     []string
		wantScore   float64
		wantCorrect bool
	}{
		{name: "all blanks correct", answers: []string{"Paris", "Madrid"}, wantScore: 1.0, wantCorrect: true},
		{name: "one of two blanks correct", answers: []string{"Paris", "Barcelona"}, wantScore: 0.5},
		{name: "case insensitive by default", answers: []string{"paris", "MADRID"}, wantScore: 1.0, wantCorrect: true},
		{name: "surrounding whitespace is trimmed", answers: []string{"  Paris ", "Madrid"}, wantScore: 1.0, wantCorrect: true},
		{name: "missing answers score zero for their blank", answers: []string{"Paris"}, wantScore: 0.5},
		{name: "substring never matches", answers: []string{"Par", "Madrid, Spain"}, wantScore: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := mustJSON(t, models.FillBlankSubmission{Answers: tt.answers})
			score, correct, err := gradeFillBlank(mustJSON(t, content), answer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertScore(t, score, tt.wantScore)
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}

	t.Run("case sensitive blank rejects wrong case", func(t *testing.T) {
		sensitive := models.FillBlankContent{
			Text:   "HTTP stands for ___",
			Blanks: []models.Blank{{CorrectAnswers: []string{"HyperText Transfer Protocol"}, CaseSensitive: true, Points: 2}},
		}
		answer := mustJSON(t, models.FillBlankSubmission{Answers: []string{"hypertext transfer protocol"}})
		score, correct, err := gradeFillBlank(mustJSON(t, sensitive), answer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertScore(t, score, 0.0)
		if correct {
			t.Error("expected incorrect")
		}
	})

	t.Run("uneven blank points weight the score", func(t *testing.T) {
		weighted := models.FillBlankContent{
			Text: "___ plus ___",
			Blanks: []models.Blank{
				{CorrectAnswers: []string{"one"}, Points: 1},
				{CorrectAnswers: []string{"three"}, Points: 3},
			},
		}
		answer := mustJSON(t, models.FillBlankSubmission{Answers: []string{"wrong", "three"}})
		score, _, err := gradeFillBlank(mustJSON(t, weighted), answer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertScore(t, score, 0.75)
	})
}

func TestGradeMatching(t *testing.T) {
	content := models.MatchingContent{
		LeftColumn: []models.MatchItem{
			{ID: "l1", Text: "France"},
			{ID: "l2", Text: "Spain"},
			{ID: "l3", Text: "Italy"},
		},
		RightColumn: []models.MatchItem{
			{ID: "r1", Text: "Paris"},
			{ID: "r2", Text: "Madrid"},
			{ID: "r3", Text: "Rome"},
		},
		Pairs: []models.MatchPair{
			{LeftID: "l1", RightID: "r1"},
			{LeftID: "l2", RightID: "r2"},
			{LeftID: "l3", RightID: "r3"},
		},
	}

	tests := []struct {
		name        string
		pairs       []models.MatchPair
		wantScore   float64
		wantCorrect bool
	}{
		{
			name: "all pairs matched",
			pairs: []models.MatchPair{
				{LeftID: "l1", RightID: "r1"},
				{LeftID: "l2", RightID: "r2"},
				{LeftID: "l3", RightID: "r3"},
			},
			wantScore:   1.0,
			wantCorrect: true,
		},
		{
			name: "two of three matched",
			pairs: []models.MatchPair{
				{LeftID: "l1", RightID: "r1"},
				{LeftID: "l2", RightID: "r3"},
				{LeftID: "l3", RightID: "r3"},
			},
			wantScore: 2.0 / 3.0,
		},
		{
			name:      "no correct pairs",
			pairs:     []models.MatchPair{{LeftID: "l1", RightID: "r2"}},
			wantScore: 0.0,
		},
		{
			name: "duplicate left ids count once",
			pairs: []models.MatchPair{
				{LeftID: "l1", RightID: "r1"},
				{LeftID: "l1", RightID: "r1"},
			},
			wantScore: 1.0 / 3.0,
		},
		{
			name:      "unknown ids are ignored",
			pairs:     []models.MatchPair{{LeftID: "ghost", RightID: "r1"}},
			wantScore: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := mustJSON(t, models.MatchingSubmission{Pairs: tt.pairs})
			score, correct, err := gradeMatching(mustJSON(t, content), answer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertScore(t, score, tt.wantScore)
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}
}

func TestGradeDragDrop(t *testing.T) {
	content := models.DragDropContent{
		Items: []models.DragItem{
			{ID: "i1", Text: "Mercury"},
			{ID: "i2", Text: "Venus"},
			{ID: "i3", Text: "Mars"},
		},
		Zones: []models.DropZone{
			{ID: "z1", Label: "Inner"},
			{ID: "z2", Label: "Outer"},
		},
		CorrectAnswer: map[string][]string{
			"z1": {"i1", "i2"},
			"z2": {"i3"},
		},
	}

	tests := []struct {
		name        string
		placements  map[string][]string
		wantScore   float64
		wantCorrect bool
	}{
		{
			name:        "all items in the right zones",
			placements:  map[string][]string{"z1": {"i1", "i2"}, "z2": {"i3"}},
			wantScore:   1.0,
			wantCorrect: true,
		},
		{
			name:        "order within a zone does not matter",
			placements:  map[string][]string{"z1": {"i2", "i1"}, "z2": {"i3"}},
			wantScore:   1.0,
			wantCorrect: true,
		},
		{
			name:       "one item in the wrong zone",
			placements: map[string][]string{"z1": {"i1", "i3"}, "z2": {"i2"}},
			wantScore:  1.0 / 3.0,
		},
		{
			name:       "unplaced items score nothing",
			placements: map[string][]string{"z1": {"i1"}},
			wantScore:  1.0 / 3.0,
		},
		{
			name:       "unknown zone ids score nothing",
			placements: map[string][]string{"zz": {"i1", "i2", "i3"}},
			wantScore:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := mustJSON(t, models.DragDropSubmission{Placements: tt.placements})
			score, correct, err := gradeDragDrop(mustJSON(t, content), answer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertScore(t, score, tt.wantScore)
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}
}

func TestCalculateScore_ManualTypes(t *testing.T) {
	s := &gradingService{}
	ctx := context.Background()

	essay := mustJSON(t, models.EssayContent{})
	_, _, err := s.CalculateScore(ctx, models.Essay, essay, mustJSON(t, "my essay text"))
	if !errors.Is(err, ErrGradingNotAllowed) {
		t.Errorf("essay: expected ErrGradingNotAllowed, got %v", err)
	}

	code := mustJSON(t, models.CodeInputContent{Language: "go", TimeLimit: 5, MemoryLimit: 128})
	_, _, err = s.CalculateScore(ctx, models.CodeInput, code, mustJSON(t, "package main"))
	if !errors.Is(err, ErrExternalJudgeRequired) {
		t.Errorf("code: expected ErrExternalJudgeRequired, got %v", err)
	}
}

func TestCalculateScore_NoAnswer(t *testing.T) {
	s := &gradingService{}

	score, correct, err := s.CalculateScore(context.Background(), models.MultipleChoice, mustJSON(t, models.MultipleChoiceContent{}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertScore(t, score, 0.0)
	if correct {
		t.Error("missing answer should not be correct")
	}
}

func TestIsAutoGradeable(t *testing.T) {
	auto := []models.QuestionType{
		models.MultipleChoice, models.TrueFalse, models.Checkbox,
		models.FillBlank, models.Matching, models.DragDrop,
	}
	for _, qt := range auto {
		if !isAutoGradeable(qt) {
			t.Errorf("%s should be auto-gradeable", qt)
		}
	}
	for _, qt := range []models.QuestionType{models.Essay, models.CodeInput} {
		if isAutoGradeable(qt) {
			t.Errorf("%s should require manual grading", qt)
		}
	}
}

func TestCalculateLetterGrade(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, "A+"}, {97, "A+"}, {95, "A"}, {91, "A-"},
		{88, "B+"}, {85, "B"}, {81, "B-"},
		{78, "C+"}, {75, "C"}, {71, "C-"},
		{68, "D+"}, {65, "D"}, {61, "D-"},
		{59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := calculateLetterGrade(tt.percentage); got != tt.want {
			t.Errorf("calculateLetterGrade(%v) = %s, want %s", tt.percentage, got, tt.want)
		}
	}
}

func TestCompareStrings(t *testing.T) {
	tests := []struct {
		s1, s2        string
		caseSensitive bool
		want          bool
	}{
		{"Paris", "paris", false, true},
		{"Paris", "paris", true, false},
		{"  Paris  ", "Paris", true, true},
		{"cat", "category", false, false},
		{"", "", true, true},
	}
	for _, tt := range tests {
		if got := compareStrings(tt.s1, tt.s2, tt.caseSensitive); got != tt.want {
			t.Errorf("compareStrings(%q, %q, %v) = %v, want %v", tt.s1, tt.s2, tt.caseSensitive, got, tt.want)
		}
	}
}
