package models

import (
	"encoding/json"
	"regexp"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Checkbox       QuestionType = "checkbox"
	Essay          QuestionType = "essay"
	FillBlank      QuestionType = "fill_blank"
	Matching       QuestionType = "matching"
	DragDrop       QuestionType = "drag_drop"
	CodeInput      QuestionType = "code_input"
)

// QuestionTypes is the closed set of supported variants, in builder display order.
var QuestionTypes = []QuestionType{
	MultipleChoice,
	TrueFalse,
	Checkbox,
	Essay,
	FillBlank,
	Matching,
	DragDrop,
	CodeInput,
}

func IsValidQuestionType(t QuestionType) bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// CodeLanguages is the fixed set of languages a code question may target.
var CodeLanguages = []string{"python", "javascript", "typescript", "go", "java", "c", "cpp", "rust", "sql"}

func IsValidCodeLanguage(lang string) bool {
	for _, l := range CodeLanguages {
		if lang == l {
			return true
		}
	}
	return false
}

type Question struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	QuizID      uint         `json:"quiz_id" gorm:"not null;index"`
	Type        QuestionType `json:"type" gorm:"not null;index"`
	Text        string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Description *string      `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Points      int          `json:"points" gorm:"default:10" validate:"min=1,max=100"`
	Order       int          `json:"order" gorm:"default:0"`

	// Variant payload stored as JSONB; shape depends on Type
	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`

	Difficulty  DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`
	Explanation *string         `json:"explanation" gorm:"type:text"`
	Hints       datatypes.JSON  `json:"hints" gorm:"type:jsonb"` // []string, ordered

	// Access visibility passthrough, interpreted by the course-access policy service
	AccessLevel string `json:"access_level" gorm:"default:paid;size:20"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Quiz    *Quiz `json:"-" gorm:"foreignKey:QuizID"`
	Creator User  `json:"creator" gorm:"foreignKey:CreatedBy"`
}

func (Question) TableName() string {
	return "questions"
}

// EffectivePoints is the question's contribution to the quiz total.
// Fill-blank questions earn per-blank points, so their total is the sum of
// the blanks' points; every other variant uses the declared point value.
func (q *Question) EffectivePoints() int {
	if q.Type != FillBlank {
		return q.Points
	}
	var content FillBlankContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return q.Points
	}
	sum := 0
	for _, blank := range content.Blanks {
		sum += blank.Points
	}
	if sum == 0 {
		return q.Points
	}
	return sum
}

// ===== QUESTION CONTENT SCHEMAS =====

type ChoiceOption struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	ImageURL    *string `json:"image_url"`
	Explanation *string `json:"explanation"`
}

type MultipleChoiceContent struct {
	Options      []ChoiceOption `json:"options" validate:"min=2,max=10"`
	CorrectIndex int            `json:"correct_index"`

	ShuffleOptions bool `json:"shuffle_options"`
	// Present for schema symmetry with checkbox; a single-answer question
	// never earns partial credit.
	AllowPartialCredit bool `json:"allow_partial_credit"`
	ShowExplanation    bool `json:"show_explanation"`
}

type CheckboxContent struct {
	Options        []ChoiceOption `json:"options" validate:"min=2,max=15"`
	CorrectAnswers []string       `json:"correct_answers" validate:"min=1"` // option IDs

	// Selection-count constraints on the submission; exact excludes min/max
	MinSelections   *int `json:"min_selections"`
	MaxSelections   *int `json:"max_selections"`
	ExactSelections *int `json:"exact_selections"`

	ShuffleOptions     bool `json:"shuffle_options"`
	AllowPartialCredit bool `json:"allow_partial_credit"`
	PenalizeIncorrect  bool `json:"penalize_incorrect"`
	ShowExplanation    bool `json:"show_explanation"`
}

type TrueFalseContent struct {
	CorrectAnswer bool    `json:"correct_answer"`
	TrueLabel     *string `json:"true_label"`
	FalseLabel    *string `json:"false_label"`
}

type EssayContent struct {
	MinWords        *int     `json:"min_words"`
	MaxWords        *int     `json:"max_words"`
	SuggestedLength string   `json:"suggested_length"`
	RubricCriteria  []string `json:"rubric_criteria"`
	SampleAnswer    *string  `json:"sample_answer"`
}

type FillBlankContent struct {
	// The question text with blank markers; marker count must equal len(Blanks)
	Text   string  `json:"text"`
	Blanks []Blank `json:"blanks"`
}

type Blank struct {
	CorrectAnswers []string `json:"correct_answers"`
	CaseSensitive  bool     `json:"case_sensitive"`
	ExactMatch     bool     `json:"exact_match"`
	Points         int      `json:"points" validate:"min=1,max=10"`
	Hints          []string `json:"hints"`
}

type MatchItem struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url"`
}

type MatchPair struct {
	LeftID  string `json:"left_id"`
	RightID string `json:"right_id"`
}

type MatchingContent struct {
	LeftColumn  []MatchItem `json:"left_column" validate:"min=2,max=10"`
	RightColumn []MatchItem `json:"right_column" validate:"min=2,max=10"`
	Pairs       []MatchPair `json:"pairs"`

	ShuffleRight bool `json:"shuffle_right"`
}

type DragItem struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url"`
	// Legacy hint kept for older authoring clients; CorrectAnswer on the
	// content is authoritative
	CorrectPosition int `json:"correct_position"`
}

type DropZone struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Capacity *int   `json:"capacity"`
	Required bool   `json:"required"`
}

type DragDropContent struct {
	Items []DragItem `json:"items" validate:"min=2,max=20"`
	Zones []DropZone `json:"zones" validate:"min=1,max=6"`

	// zone ID -> ordered item IDs; order within a zone is layout only and is
	// not scored
	CorrectAnswer map[string][]string `json:"correct_answer"`
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Hidden         bool   `json:"hidden"`
}

type CodeInputContent struct {
	Language     string          `json:"language"`
	StarterCode  *string         `json:"starter_code"`
	SolutionCode *string         `json:"solution_code"`
	TestCases    []TestCase      `json:"test_cases" validate:"min=1"`
	TimeLimit    int             `json:"time_limit" validate:"min=1"`   // seconds
	MemoryLimit  int             `json:"memory_limit" validate:"min=1"` // MB
	Difficulty   DifficultyLevel `json:"difficulty"`
}

// ===== SUBMISSION SHAPES =====

// Submissions mirror their question variant: multiple choice submits an
// option index, true/false a bool, checkbox a list of option IDs, essay and
// code free text, fill-blank a per-blank text list, matching a pair list and
// drag-drop a zone assignment map.

type FillBlankSubmission struct {
	Answers []string `json:"answers"`
}

type MatchingSubmission struct {
	Pairs []MatchPair `json:"pairs"`
}

type DragDropSubmission struct {
	Placements map[string][]string `json:"placements"` // zone ID -> item IDs
}

// ===== BLANK MARKER DETECTION =====

// Recognized blank markers: runs of 3+ underscores, numbered __N__ gaps,
// [bracketed], {braced} and empty () placeholders.
var blankMarkerPattern = regexp.MustCompile(`_{3,}|__[0-9]+__|\[[^\[\]]*\]|\{[^{}]*\}|\(\)`)

// CountBlankMarkers returns the number of blank markers in fill-blank text.
func CountBlankMarkers(text string) int {
	return len(blankMarkerPattern.FindAllString(text, -1))
}
