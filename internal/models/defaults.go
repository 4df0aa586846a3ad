package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NewDefaultContent builds the editable starting payload for a freshly
// created question of the given type. The defaults are intentionally
// incomplete so they fail content validation until the author fills them in.
func NewDefaultContent(t QuestionType) (json.RawMessage, error) {
	var content any

	switch t {
	case MultipleChoice:
		content = MultipleChoiceContent{
			Options: []ChoiceOption{
				{ID: uuid.NewString(), Text: ""},
				{ID: uuid.NewString(), Text: ""},
			},
			CorrectIndex:    0,
			ShowExplanation: true,
		}
	case TrueFalse:
		content = TrueFalseContent{
			CorrectAnswer: true,
		}
	case Checkbox:
		content = CheckboxContent{
			Options: []ChoiceOption{
				{ID: uuid.NewString(), Text: ""},
				{ID: uuid.NewString(), Text: ""},
				{ID: uuid.NewString(), Text: ""},
			},
			CorrectAnswers:     []string{},
			AllowPartialCredit: true,
			ShowExplanation:    true,
		}
	case Essay:
		content = EssayContent{
			SuggestedLength: "2-3 paragraphs",
			RubricCriteria:  []string{},
		}
	case FillBlank:
		content = FillBlankContent{
			Text: "",
			Blanks: []Blank{
				{CorrectAnswers: []string{}, Points: 1},
			},
		}
	case Matching:
		content = MatchingContent{
			LeftColumn: []MatchItem{
				{ID: uuid.NewString(), Text: ""},
				{ID: uuid.NewString(), Text: ""},
			},
			RightColumn: []MatchItem{
				{ID: uuid.NewString(), Text: ""},
				{ID: uuid.NewString(), Text: ""},
			},
			Pairs:        []MatchPair{},
			ShuffleRight: true,
		}
	case DragDrop:
		content = DragDropContent{
			Items: []DragItem{
				{ID: uuid.NewString(), Text: ""},
				{ID: uuid.NewString(), Text: ""},
			},
			Zones: []DropZone{
				{ID: uuid.NewString(), Label: "", Required: true},
			},
			CorrectAnswer: map[string][]string{},
		}
	case CodeInput:
		content = CodeInputContent{
			Language:    "python",
			TestCases:   []TestCase{{Input: "", ExpectedOutput: ""}},
			TimeLimit:   10,
			MemoryLimit: 128,
			Difficulty:  DifficultyMedium,
		}
	default:
		return nil, fmt.Errorf("unsupported question type: %s", t)
	}

	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default content: %w", err)
	}
	return data, nil
}
