package models

import (
	"encoding/json"
	"testing"
	"time"
)

func sampleQuiz() Quiz {
	return Quiz{
		ID:     1,
		Title:  "Go Basics",
		Status: QuizStatusDraft,
		Questions: []Question{
			{ID: 10, QuizID: 1, Type: MultipleChoice, Points: 10, Order: 0},
			{ID: 11, QuizID: 1, Type: TrueFalse, Points: 5, Order: 1},
			{ID: 12, QuizID: 1, Type: Checkbox, Points: 12, Order: 2},
		},
	}
}

func TestQuizAddQuestion(t *testing.T) {
	quiz := sampleQuiz()
	updated := quiz.AddQuestion(Question{ID: 13, Type: Essay, Points: 20})

	if updated.TotalQuestions() != 4 {
		t.Errorf("expected 4 questions, got %d", updated.TotalQuestions())
	}
	if updated.Questions[3].Order != 3 {
		t.Errorf("expected order 3 for appended question, got %d", updated.Questions[3].Order)
	}
	if updated.Questions[3].QuizID != quiz.ID {
		t.Errorf("expected quiz id %d, got %d", quiz.ID, updated.Questions[3].QuizID)
	}
	if quiz.TotalQuestions() != 3 {
		t.Errorf("original quiz mutated: has %d questions", quiz.TotalQuestions())
	}
}

func TestQuizUpdateQuestionKeepsPosition(t *testing.T) {
	quiz := sampleQuiz()
	updated := quiz.UpdateQuestion(Question{ID: 11, Type: TrueFalse, Points: 8})

	if updated.Questions[1].Points != 8 {
		t.Errorf("expected updated points 8, got %d", updated.Questions[1].Points)
	}
	if updated.Questions[1].Order != 1 {
		t.Errorf("expected order 1 preserved, got %d", updated.Questions[1].Order)
	}
	if quiz.Questions[1].Points != 5 {
		t.Errorf("original quiz mutated: points %d", quiz.Questions[1].Points)
	}
}

func TestQuizDeleteQuestion(t *testing.T) {
	quiz := sampleQuiz()

	updated := quiz.DeleteQuestion(11)
	if updated.TotalQuestions() != 2 {
		t.Fatalf("expected 2 questions after delete, got %d", updated.TotalQuestions())
	}
	for i, question := range updated.Questions {
		if question.Order != i {
			t.Errorf("expected order %d at index %d, got %d", i, i, question.Order)
		}
	}

	// deleting an unknown id leaves the quiz unchanged
	same := quiz.DeleteQuestion(999)
	if same.TotalQuestions() != 3 {
		t.Errorf("delete of unknown id changed question count to %d", same.TotalQuestions())
	}
}

func TestQuizReorderQuestions(t *testing.T) {
	quiz := sampleQuiz()

	reordered, err := quiz.ReorderQuestions([]uint{12, 10, 11})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []uint{12, 10, 11}
	for i, question := range reordered.Questions {
		if question.ID != wantIDs[i] {
			t.Errorf("position %d: expected id %d, got %d", i, wantIDs[i], question.ID)
		}
		if question.Order != i {
			t.Errorf("position %d: expected order %d, got %d", i, i, question.Order)
		}
	}

	tests := []struct {
		name string
		ids  []uint
	}{
		{"missing question", []uint{10, 11}},
		{"unknown question", []uint{10, 11, 99}},
		{"duplicate question", []uint{10, 10, 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := quiz.ReorderQuestions(tt.ids); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestQuizTotalPointsUsesEffectivePoints(t *testing.T) {
	content, err := json.Marshal(FillBlankContent{
		Text: "The capital of France is ___ and of Japan is ___.",
		Blanks: []Blank{
			{CorrectAnswers: []string{"Paris"}, Points: 5},
			{CorrectAnswers: []string{"Tokyo"}, Points: 5},
		},
	})
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}

	quiz := sampleQuiz()
	quiz = quiz.AddQuestion(Question{ID: 20, Type: FillBlank, Points: 1, Content: content})

	// 10 + 5 + 12 + (5+5 from blanks, ignoring declared points)
	if got := quiz.TotalPoints(); got != 37 {
		t.Errorf("expected total points 37, got %d", got)
	}
}

func TestQuizIsAvailableAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		quiz Quiz
		want bool
	}{
		{"active no window", Quiz{Status: QuizStatusActive}, true},
		{"draft", Quiz{Status: QuizStatusDraft}, false},
		{"archived", Quiz{Status: QuizStatusArchived}, false},
		{"inside window", Quiz{Status: QuizStatusActive, AvailableFrom: &past, AvailableUntil: &future}, true},
		{"before window", Quiz{Status: QuizStatusActive, AvailableFrom: &future}, false},
		{"after window", Quiz{Status: QuizStatusActive, AvailableUntil: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.quiz.IsAvailableAt(now); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
