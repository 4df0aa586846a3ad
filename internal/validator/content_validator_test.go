package validator

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/coursekit/quiz-service/internal/models"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func intPtr(v int) *int { return &v }

func validMCQContent() models.MultipleChoiceContent {
	return models.MultipleChoiceContent{
		Options: []models.ChoiceOption{
			{ID: "a", Text: "Paris"},
			{ID: "b", Text: "London"},
			{ID: "c", Text: "Berlin"},
		},
		CorrectIndex: 0,
	}
}

func TestValidateMultipleChoice(t *testing.T) {
	cv := NewContentValidator()

	tests := []struct {
		name    string
		mutate  func(*models.MultipleChoiceContent)
		wantErr bool
	}{
		{"valid", func(c *models.MultipleChoiceContent) {}, false},
		{"index out of bounds", func(c *models.MultipleChoiceContent) { c.CorrectIndex = 3 }, true},
		{"negative index", func(c *models.MultipleChoiceContent) { c.CorrectIndex = -1 }, true},
		{"too few options", func(c *models.MultipleChoiceContent) { c.Options = c.Options[:1] }, true},
		{"correct option without text", func(c *models.MultipleChoiceContent) { c.Options[0].Text = "  " }, true},
		{"duplicate option ids", func(c *models.MultipleChoiceContent) { c.Options[1].ID = "a" }, true},
		{"one option blank still valid", func(c *models.MultipleChoiceContent) { c.Options[2].Text = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := validMCQContent()
			tt.mutate(&content)
			errs := cv.ValidateContent(models.MultipleChoice, mustJSON(t, content))
			if tt.wantErr != errs.HasErrors() {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, errs.Messages())
			}
		})
	}
}

func TestValidateMultipleChoiceFewerThanTwoWithText(t *testing.T) {
	cv := NewContentValidator()
	content := validMCQContent()
	content.Options[1].Text = ""
	content.Options[2].Text = " "

	errs := cv.ValidateContent(models.MultipleChoice, mustJSON(t, content))
	if !errs.HasErrors() {
		t.Error("expected error when fewer than 2 options have text")
	}
}

func validCheckboxContent() models.CheckboxContent {
	return models.CheckboxContent{
		Options: []models.ChoiceOption{
			{ID: "a", Text: "red"},
			{ID: "b", Text: "green"},
			{ID: "c", Text: "blue"},
			{ID: "d", Text: "yellow"},
		},
		CorrectAnswers: []string{"a", "c"},
	}
}

func TestValidateCheckbox(t *testing.T) {
	cv := NewContentValidator()

	tests := []struct {
		name    string
		mutate  func(*models.CheckboxContent)
		wantErr bool
	}{
		{"valid", func(c *models.CheckboxContent) {}, false},
		{"no correct answers", func(c *models.CheckboxContent) { c.CorrectAnswers = nil }, true},
		{"unknown correct answer", func(c *models.CheckboxContent) { c.CorrectAnswers = []string{"z"} }, true},
		{"min greater than max", func(c *models.CheckboxContent) {
			c.MinSelections = intPtr(3)
			c.MaxSelections = intPtr(2)
		}, true},
		{"exact with min", func(c *models.CheckboxContent) {
			c.ExactSelections = intPtr(2)
			c.MinSelections = intPtr(1)
		}, true},
		{"exact beyond options", func(c *models.CheckboxContent) { c.ExactSelections = intPtr(9) }, true},
		{"valid exact", func(c *models.CheckboxContent) { c.ExactSelections = intPtr(2) }, false},
		{"valid min max", func(c *models.CheckboxContent) {
			c.MinSelections = intPtr(1)
			c.MaxSelections = intPtr(3)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := validCheckboxContent()
			tt.mutate(&content)
			errs := cv.ValidateContent(models.Checkbox, mustJSON(t, content))
			if tt.wantErr != errs.HasErrors() {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, errs.Messages())
			}
		})
	}
}

func TestValidateFillBlank(t *testing.T) {
	cv := NewContentValidator()

	valid := models.FillBlankContent{
		Text: "The capital of France is ___ and of Japan is ___.",
		Blanks: []models.Blank{
			{CorrectAnswers: []string{"Paris"}, Points: 5},
			{CorrectAnswers: []string{"Tokyo"}, Points: 5},
		},
	}

	if errs := cv.ValidateContent(models.FillBlank, mustJSON(t, valid)); errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs.Messages())
	}

	tests := []struct {
		name   string
		mutate func(*models.FillBlankContent)
	}{
		{"marker count mismatch", func(c *models.FillBlankContent) { c.Blanks = c.Blanks[:1] }},
		{"no markers", func(c *models.FillBlankContent) { c.Text = "No blanks here." }},
		{"empty correct answers", func(c *models.FillBlankContent) { c.Blanks[0].CorrectAnswers = []string{"  "} }},
		{"points out of range", func(c *models.FillBlankContent) { c.Blanks[1].Points = 11 }},
		{"zero points", func(c *models.FillBlankContent) { c.Blanks[0].Points = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := valid
			content.Blanks = append([]models.Blank(nil), valid.Blanks...)
			tt.mutate(&content)
			if errs := cv.ValidateContent(models.FillBlank, mustJSON(t, content)); !errs.HasErrors() {
				t.Error("expected validation error")
			}
		})
	}
}

func validMatchingContent() models.MatchingContent {
	return models.MatchingContent{
		LeftColumn: []models.MatchItem{
			{ID: "l1", Text: "France"},
			{ID: "l2", Text: "Japan"},
		},
		RightColumn: []models.MatchItem{
			{ID: "r1", Text: "Paris"},
			{ID: "r2", Text: "Tokyo"},
		},
		Pairs: []models.MatchPair{
			{LeftID: "l1", RightID: "r1"},
			{LeftID: "l2", RightID: "r2"},
		},
	}
}

func TestValidateMatching(t *testing.T) {
	cv := NewContentValidator()

	if errs := cv.ValidateContent(models.Matching, mustJSON(t, validMatchingContent())); errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs.Messages())
	}

	tests := []struct {
		name   string
		mutate func(*models.MatchingContent)
	}{
		{"unequal columns", func(c *models.MatchingContent) {
			c.RightColumn = append(c.RightColumn, models.MatchItem{ID: "r3", Text: "Berlin"})
		}},
		{"unknown pair reference", func(c *models.MatchingContent) { c.Pairs[0].LeftID = "nope" }},
		{"duplicate pair", func(c *models.MatchingContent) { c.Pairs[1] = c.Pairs[0] }},
		{"unpaired item", func(c *models.MatchingContent) { c.Pairs = c.Pairs[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := validMatchingContent()
			tt.mutate(&content)
			if errs := cv.ValidateContent(models.Matching, mustJSON(t, content)); !errs.HasErrors() {
				t.Error("expected validation error")
			}
		})
	}
}

func validDragDropContent() models.DragDropContent {
	return models.DragDropContent{
		Items: []models.DragItem{
			{ID: "i1", Text: "cat"},
			{ID: "i2", Text: "oak"},
		},
		Zones: []models.DropZone{
			{ID: "z1", Label: "Animals"},
			{ID: "z2", Label: "Plants"},
		},
		CorrectAnswer: map[string][]string{
			"z1": {"i1"},
			"z2": {"i2"},
		},
	}
}

func TestValidateDragDrop(t *testing.T) {
	cv := NewContentValidator()

	if errs := cv.ValidateContent(models.DragDrop, mustJSON(t, validDragDropContent())); errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs.Messages())
	}

	tests := []struct {
		name   string
		mutate func(*models.DragDropContent)
	}{
		{"unassigned item", func(c *models.DragDropContent) { c.CorrectAnswer = map[string][]string{"z1": {"i1"}} }},
		{"item in two zones", func(c *models.DragDropContent) {
			c.CorrectAnswer = map[string][]string{"z1": {"i1", "i2"}, "z2": {"i2"}}
		}},
		{"unknown zone", func(c *models.DragDropContent) { c.CorrectAnswer["z9"] = []string{"i1"} }},
		{"capacity exceeded", func(c *models.DragDropContent) {
			c.Zones[0].Capacity = intPtr(1)
			c.CorrectAnswer = map[string][]string{"z1": {"i1", "i2"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := validDragDropContent()
			tt.mutate(&content)
			if errs := cv.ValidateContent(models.DragDrop, mustJSON(t, content)); !errs.HasErrors() {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateCodeInput(t *testing.T) {
	cv := NewContentValidator()

	valid := models.CodeInputContent{
		Language:    "go",
		TestCases:   []models.TestCase{{Input: "1 2", ExpectedOutput: "3"}},
		TimeLimit:   10,
		MemoryLimit: 128,
	}

	if errs := cv.ValidateContent(models.CodeInput, mustJSON(t, valid)); errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs.Messages())
	}

	tests := []struct {
		name   string
		mutate func(*models.CodeInputContent)
	}{
		{"unsupported language", func(c *models.CodeInputContent) { c.Language = "cobol" }},
		{"no test cases", func(c *models.CodeInputContent) { c.TestCases = nil }},
		{"no complete test case", func(c *models.CodeInputContent) {
			c.TestCases = []models.TestCase{{Input: "1", ExpectedOutput: ""}, {Input: "", ExpectedOutput: "x"}}
		}},
		{"zero time limit", func(c *models.CodeInputContent) { c.TimeLimit = 0 }},
		{"zero memory limit", func(c *models.CodeInputContent) { c.MemoryLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := valid
			tt.mutate(&content)
			if errs := cv.ValidateContent(models.CodeInput, mustJSON(t, content)); !errs.HasErrors() {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateTrueFalseAlwaysStructurallyValid(t *testing.T) {
	cv := NewContentValidator()
	errs := cv.ValidateContent(models.TrueFalse, mustJSON(t, models.TrueFalseContent{CorrectAnswer: false}))
	if errs.HasErrors() {
		t.Errorf("expected valid, got %v", errs.Messages())
	}
}

// Freshly created defaults intentionally fail validation: empty option text
// must be reported, not silently accepted.
func TestDefaultContentFailsValidation(t *testing.T) {
	cv := NewContentValidator()

	data, err := models.NewDefaultContent(models.MultipleChoice)
	if err != nil {
		t.Fatalf("default content: %v", err)
	}
	errs := cv.ValidateContent(models.MultipleChoice, data)
	if !errs.HasErrors() {
		t.Error("expected default multiple choice content to fail validation")
	}
}

// Validation is a pure function: repeat calls on unchanged input yield the
// same error list.
func TestValidateIdempotent(t *testing.T) {
	cv := NewContentValidator()
	content := validCheckboxContent()
	content.CorrectAnswers = []string{"z"}
	raw := mustJSON(t, content)

	first := cv.ValidateContent(models.Checkbox, raw)
	second := cv.ValidateContent(models.Checkbox, raw)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical error lists, got %v vs %v", first, second)
	}
}

func TestValidateQuizAggregate(t *testing.T) {
	cv := NewContentValidator()

	empty := &models.Quiz{Title: "Empty"}
	if errs := cv.ValidateQuiz(empty); !errs.HasErrors() {
		t.Error("expected error for quiz without questions")
	}

	quiz := &models.Quiz{
		Title: "Geography",
		Questions: []models.Question{
			{ID: 1, Type: models.MultipleChoice, Points: 10, Content: mustJSONBytes(t, validMCQContent())},
			{ID: 2, Type: models.Checkbox, Points: 10, Content: mustJSONBytes(t, validCheckboxContent())},
		},
	}
	if errs := cv.ValidateQuiz(quiz); errs.HasErrors() {
		t.Errorf("expected valid quiz, got %v", errs.Messages())
	}

	// a broken question surfaces with its index prefixed
	bad := validMCQContent()
	bad.CorrectIndex = 99
	quiz.Questions[0].Content = mustJSONBytes(t, bad)
	errs := cv.ValidateQuiz(quiz)
	if !errs.HasErrors() {
		t.Fatal("expected error for invalid question")
	}
	if errs[0].Field != "questions[0].correct_index" {
		t.Errorf("expected prefixed field, got %s", errs[0].Field)
	}
}

func mustJSONBytes(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestValidateSubmissionConstraints(t *testing.T) {
	cv := NewContentValidator()

	content := validCheckboxContent()

	tests := []struct {
		name     string
		setup    func(*models.CheckboxContent)
		selected []string
		wantErr  bool
	}{
		{"no constraints", func(c *models.CheckboxContent) {}, []string{"a"}, false},
		{"exact met", func(c *models.CheckboxContent) { c.ExactSelections = intPtr(2) }, []string{"a", "b"}, false},
		{"exact violated", func(c *models.CheckboxContent) { c.ExactSelections = intPtr(2) }, []string{"a"}, true},
		{"below min", func(c *models.CheckboxContent) { c.MinSelections = intPtr(2) }, []string{"a"}, true},
		{"above max", func(c *models.CheckboxContent) { c.MaxSelections = intPtr(1) }, []string{"a", "b"}, true},
		{"within range", func(c *models.CheckboxContent) {
			c.MinSelections = intPtr(1)
			c.MaxSelections = intPtr(3)
		}, []string{"a", "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := content
			tt.setup(&c)
			errs := cv.ValidateSubmissionConstraints(&c, tt.selected)
			if tt.wantErr != errs.HasErrors() {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, errs.Messages())
			}
		})
	}
}
