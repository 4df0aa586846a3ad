package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coursekit/quiz-service/internal/models"
)

// ContentValidator checks the structural and semantic well-formedness of a
// question's variant payload. All methods are pure: they never panic on
// malformed input and report every problem they find, not just the first.
type ContentValidator struct{}

func NewContentValidator() *ContentValidator {
	return &ContentValidator{}
}

// ValidateQuestion validates a stored question's payload against its type.
func (cv *ContentValidator) ValidateQuestion(question *models.Question) ValidationErrors {
	if !models.IsValidQuestionType(question.Type) {
		return ValidationErrors{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported question type: %s", question.Type),
			Value:   question.Type,
			Rule:    "question_type",
		}}
	}
	return cv.ValidateContent(question.Type, json.RawMessage(question.Content))
}

// ValidateContent dispatches to the per-type rule set.
func (cv *ContentValidator) ValidateContent(t models.QuestionType, content json.RawMessage) ValidationErrors {
	if len(content) == 0 {
		return ValidationErrors{{
			Field:   "content",
			Message: "content is required",
			Rule:    "required",
		}}
	}

	switch t {
	case models.MultipleChoice:
		return cv.validateMultipleChoice(content)
	case models.TrueFalse:
		return cv.validateTrueFalse(content)
	case models.Checkbox:
		return cv.validateCheckbox(content)
	case models.Essay:
		return cv.validateEssay(content)
	case models.FillBlank:
		return cv.validateFillBlank(content)
	case models.Matching:
		return cv.validateMatching(content)
	case models.DragDrop:
		return cv.validateDragDrop(content)
	case models.CodeInput:
		return cv.validateCodeInput(content)
	default:
		return ValidationErrors{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported question type: %s", t),
			Value:   t,
			Rule:    "question_type",
		}}
	}
}

// ValidateQuiz validates the whole aggregate: every question must pass its
// own validator and the quiz must contain at least one question. Free-quiz
// accessibility rules are the course-access service's concern, not checked
// here.
func (cv *ContentValidator) ValidateQuiz(quiz *models.Quiz) ValidationErrors {
	var errors ValidationErrors

	if len(quiz.Questions) == 0 {
		errors = append(errors, ValidationError{
			Field:   "questions",
			Message: "quiz must have at least one question",
			Rule:    "min",
		})
	}

	for i := range quiz.Questions {
		for _, e := range cv.ValidateQuestion(&quiz.Questions[i]) {
			e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
			errors = append(errors, e)
		}
	}

	return errors
}

func malformedContent(err error) ValidationErrors {
	return ValidationErrors{{
		Field:   "content",
		Message: fmt.Sprintf("content is not valid JSON for this question type: %v", err),
		Rule:    "json",
	}}
}

func (cv *ContentValidator) validateMultipleChoice(raw json.RawMessage) ValidationErrors {
	var content models.MultipleChoiceContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if len(content.Options) < 2 || len(content.Options) > 10 {
		errors = append(errors, ValidationError{
			Field:   "options",
			Message: "must have between 2 and 10 options",
			Value:   len(content.Options),
			Rule:    "option_count",
		})
	}

	errors = append(errors, validateOptionList(content.Options, 2)...)

	if content.CorrectIndex < 0 || content.CorrectIndex >= len(content.Options) {
		errors = append(errors, ValidationError{
			Field:   "correct_index",
			Message: "must reference an existing option",
			Value:   content.CorrectIndex,
			Rule:    "index_range",
		})
	} else if strings.TrimSpace(content.Options[content.CorrectIndex].Text) == "" {
		errors = append(errors, ValidationError{
			Field:   "correct_index",
			Message: "correct option must have text",
			Value:   content.CorrectIndex,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (cv *ContentValidator) validateTrueFalse(raw json.RawMessage) ValidationErrors {
	var content models.TrueFalseContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}
	// correct_answer is a bool; any decodable payload is structurally valid
	return nil
}

func (cv *ContentValidator) validateCheckbox(raw json.RawMessage) ValidationErrors {
	var content models.CheckboxContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if len(content.Options) < 2 || len(content.Options) > 15 {
		errors = append(errors, ValidationError{
			Field:   "options",
			Message: "must have between 2 and 15 options",
			Value:   len(content.Options),
			Rule:    "option_count",
		})
	}

	errors = append(errors, validateOptionList(content.Options, 2)...)

	if len(content.CorrectAnswers) == 0 {
		errors = append(errors, ValidationError{
			Field:   "correct_answers",
			Message: "must mark at least one correct option",
			Rule:    "min",
		})
	}

	optionIDs := make(map[string]bool, len(content.Options))
	for _, opt := range content.Options {
		optionIDs[opt.ID] = true
	}
	for _, id := range content.CorrectAnswers {
		if !optionIDs[id] {
			errors = append(errors, ValidationError{
				Field:   "correct_answers",
				Message: fmt.Sprintf("references unknown option %q", id),
				Value:   id,
				Rule:    "reference",
			})
		}
	}

	errors = append(errors, validateSelectionConstraints(&content)...)

	return errors
}

// validateSelectionConstraints checks the min/max/exact selection settings.
// Exact is mutually exclusive with min and max.
func validateSelectionConstraints(content *models.CheckboxContent) ValidationErrors {
	var errors ValidationErrors

	if content.ExactSelections != nil {
		if content.MinSelections != nil || content.MaxSelections != nil {
			errors = append(errors, ValidationError{
				Field:   "exact_selections",
				Message: "cannot be combined with min_selections or max_selections",
				Value:   *content.ExactSelections,
				Rule:    "mutually_exclusive",
			})
		}
		if *content.ExactSelections < 1 || *content.ExactSelections > len(content.Options) {
			errors = append(errors, ValidationError{
				Field:   "exact_selections",
				Message: "must be between 1 and the number of options",
				Value:   *content.ExactSelections,
				Rule:    "range",
			})
		}
		return errors
	}

	if content.MinSelections != nil && *content.MinSelections < 1 {
		errors = append(errors, ValidationError{
			Field:   "min_selections",
			Message: "must be at least 1",
			Value:   *content.MinSelections,
			Rule:    "min",
		})
	}
	if content.MaxSelections != nil && *content.MaxSelections > len(content.Options) {
		errors = append(errors, ValidationError{
			Field:   "max_selections",
			Message: "cannot exceed the number of options",
			Value:   *content.MaxSelections,
			Rule:    "max",
		})
	}
	if content.MinSelections != nil && content.MaxSelections != nil &&
		*content.MinSelections > *content.MaxSelections {
		errors = append(errors, ValidationError{
			Field:   "min_selections",
			Message: "cannot be greater than max_selections",
			Value:   *content.MinSelections,
			Rule:    "range",
		})
	}

	return errors
}

func (cv *ContentValidator) validateEssay(raw json.RawMessage) ValidationErrors {
	var content models.EssayContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if content.MinWords != nil && *content.MinWords < 1 {
		errors = append(errors, ValidationError{
			Field:   "min_words",
			Message: "must be at least 1",
			Value:   *content.MinWords,
			Rule:    "min",
		})
	}
	if content.MinWords != nil && content.MaxWords != nil && *content.MinWords > *content.MaxWords {
		errors = append(errors, ValidationError{
			Field:   "min_words",
			Message: "cannot be greater than max_words",
			Value:   *content.MinWords,
			Rule:    "range",
		})
	}

	return errors
}

func (cv *ContentValidator) validateFillBlank(raw json.RawMessage) ValidationErrors {
	var content models.FillBlankContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if strings.TrimSpace(content.Text) == "" {
		errors = append(errors, ValidationError{
			Field:   "text",
			Message: "question text is required",
			Rule:    "required",
		})
	}

	markerCount := models.CountBlankMarkers(content.Text)
	if markerCount == 0 {
		errors = append(errors, ValidationError{
			Field:   "text",
			Message: "question text must contain at least one blank marker",
			Rule:    "blank_markers",
		})
	}
	if markerCount != len(content.Blanks) {
		errors = append(errors, ValidationError{
			Field:   "blanks",
			Message: fmt.Sprintf("text has %d blank markers but %d blanks are defined", markerCount, len(content.Blanks)),
			Value:   len(content.Blanks),
			Rule:    "blank_markers",
		})
	}

	for i, blank := range content.Blanks {
		hasAnswer := false
		for _, answer := range blank.CorrectAnswers {
			if strings.TrimSpace(answer) != "" {
				hasAnswer = true
				break
			}
		}
		if !hasAnswer {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("blanks[%d].correct_answers", i),
				Message: "blank must have at least one non-empty correct answer",
				Rule:    "min",
			})
		}
		if blank.Points < 1 || blank.Points > 10 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("blanks[%d].points", i),
				Message: "must be between 1 and 10",
				Value:   blank.Points,
				Rule:    "range",
			})
		}
	}

	return errors
}

func (cv *ContentValidator) validateMatching(raw json.RawMessage) ValidationErrors {
	var content models.MatchingContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if len(content.LeftColumn) < 2 || len(content.LeftColumn) > 10 {
		errors = append(errors, ValidationError{
			Field:   "left_column",
			Message: "must have between 2 and 10 items",
			Value:   len(content.LeftColumn),
			Rule:    "item_count",
		})
	}
	if len(content.RightColumn) < 2 || len(content.RightColumn) > 10 {
		errors = append(errors, ValidationError{
			Field:   "right_column",
			Message: "must have between 2 and 10 items",
			Value:   len(content.RightColumn),
			Rule:    "item_count",
		})
	}
	if len(content.LeftColumn) != len(content.RightColumn) {
		errors = append(errors, ValidationError{
			Field:   "right_column",
			Message: "columns must have equal length",
			Value:   len(content.RightColumn),
			Rule:    "item_count",
		})
	}

	errors = append(errors, validateMatchItems("left_column", content.LeftColumn)...)
	errors = append(errors, validateMatchItems("right_column", content.RightColumn)...)

	leftIDs := make(map[string]bool, len(content.LeftColumn))
	for _, item := range content.LeftColumn {
		leftIDs[item.ID] = true
	}
	rightIDs := make(map[string]bool, len(content.RightColumn))
	for _, item := range content.RightColumn {
		rightIDs[item.ID] = true
	}

	leftUsed := make(map[string]bool, len(content.Pairs))
	rightUsed := make(map[string]bool, len(content.Pairs))
	pairSeen := make(map[models.MatchPair]bool, len(content.Pairs))
	for i, pair := range content.Pairs {
		if !leftIDs[pair.LeftID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("pairs[%d].left_id", i),
				Message: fmt.Sprintf("references unknown left item %q", pair.LeftID),
				Value:   pair.LeftID,
				Rule:    "reference",
			})
		}
		if !rightIDs[pair.RightID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("pairs[%d].right_id", i),
				Message: fmt.Sprintf("references unknown right item %q", pair.RightID),
				Value:   pair.RightID,
				Rule:    "reference",
			})
		}
		if pairSeen[pair] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("pairs[%d]", i),
				Message: "duplicate pair",
				Rule:    "unique",
			})
		}
		pairSeen[pair] = true
		leftUsed[pair.LeftID] = true
		rightUsed[pair.RightID] = true
	}

	// every item must belong to exactly one pair
	for _, item := range content.LeftColumn {
		if !leftUsed[item.ID] {
			errors = append(errors, ValidationError{
				Field:   "pairs",
				Message: fmt.Sprintf("left item %q is not paired", item.ID),
				Value:   item.ID,
				Rule:    "coverage",
			})
		}
	}
	for _, item := range content.RightColumn {
		if !rightUsed[item.ID] {
			errors = append(errors, ValidationError{
				Field:   "pairs",
				Message: fmt.Sprintf("right item %q is not paired", item.ID),
				Value:   item.ID,
				Rule:    "coverage",
			})
		}
	}

	return errors
}

func (cv *ContentValidator) validateDragDrop(raw json.RawMessage) ValidationErrors {
	var content models.DragDropContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if len(content.Items) < 2 || len(content.Items) > 20 {
		errors = append(errors, ValidationError{
			Field:   "items",
			Message: "must have between 2 and 20 items",
			Value:   len(content.Items),
			Rule:    "item_count",
		})
	}
	if len(content.Zones) < 1 || len(content.Zones) > 6 {
		errors = append(errors, ValidationError{
			Field:   "zones",
			Message: "must have between 1 and 6 zones",
			Value:   len(content.Zones),
			Rule:    "zone_count",
		})
	}

	itemIDs := make(map[string]bool, len(content.Items))
	for i, item := range content.Items {
		if strings.TrimSpace(item.Text) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("items[%d].text", i),
				Message: "item text is required",
				Rule:    "required",
			})
		}
		if itemIDs[item.ID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("items[%d].id", i),
				Message: "duplicate item id",
				Value:   item.ID,
				Rule:    "unique",
			})
		}
		itemIDs[item.ID] = true
	}

	zones := make(map[string]models.DropZone, len(content.Zones))
	for i, zone := range content.Zones {
		if strings.TrimSpace(zone.Label) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("zones[%d].label", i),
				Message: "zone label is required",
				Rule:    "required",
			})
		}
		zones[zone.ID] = zone
	}

	assigned := make(map[string]int, len(content.Items))
	for zoneID, assignedItems := range content.CorrectAnswer {
		zone, ok := zones[zoneID]
		if !ok {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: fmt.Sprintf("references unknown zone %q", zoneID),
				Value:   zoneID,
				Rule:    "reference",
			})
			continue
		}
		if zone.Capacity != nil && len(assignedItems) > *zone.Capacity {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: fmt.Sprintf("zone %q holds %d items but its capacity is %d", zoneID, len(assignedItems), *zone.Capacity),
				Value:   len(assignedItems),
				Rule:    "capacity",
			})
		}
		for _, itemID := range assignedItems {
			if !itemIDs[itemID] {
				errors = append(errors, ValidationError{
					Field:   "correct_answer",
					Message: fmt.Sprintf("zone %q references unknown item %q", zoneID, itemID),
					Value:   itemID,
					Rule:    "reference",
				})
				continue
			}
			assigned[itemID]++
		}
	}

	for _, item := range content.Items {
		switch assigned[item.ID] {
		case 0:
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: fmt.Sprintf("item %q is not assigned to any zone", item.ID),
				Value:   item.ID,
				Rule:    "coverage",
			})
		case 1:
			// ok
		default:
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: fmt.Sprintf("item %q is assigned to multiple zones", item.ID),
				Value:   item.ID,
				Rule:    "unique",
			})
		}
	}

	return errors
}

func (cv *ContentValidator) validateCodeInput(raw json.RawMessage) ValidationErrors {
	var content models.CodeInputContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return malformedContent(err)
	}

	var errors ValidationErrors

	if !models.IsValidCodeLanguage(content.Language) {
		errors = append(errors, ValidationError{
			Field:   "language",
			Message: fmt.Sprintf("unsupported language %q", content.Language),
			Value:   content.Language,
			Rule:    "language",
		})
	}

	if len(content.TestCases) == 0 {
		errors = append(errors, ValidationError{
			Field:   "test_cases",
			Message: "must have at least one test case",
			Rule:    "min",
		})
	} else {
		complete := false
		for _, tc := range content.TestCases {
			if strings.TrimSpace(tc.Input) != "" && strings.TrimSpace(tc.ExpectedOutput) != "" {
				complete = true
				break
			}
		}
		if !complete {
			errors = append(errors, ValidationError{
				Field:   "test_cases",
				Message: "at least one test case needs both input and expected output",
				Rule:    "business_logic",
			})
		}
	}

	if content.TimeLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "time_limit",
			Message: "must be at least 1 second",
			Value:   content.TimeLimit,
			Rule:    "min",
		})
	}
	if content.MemoryLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "memory_limit",
			Message: "must be at least 1 MB",
			Value:   content.MemoryLimit,
			Rule:    "min",
		})
	}

	return errors
}

// validateOptionList enforces unique ids and counts how many options carry
// text; at least minWithText options must be filled in.
func validateOptionList(options []models.ChoiceOption, minWithText int) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]bool, len(options))
	withText := 0
	for i, opt := range options {
		if strings.TrimSpace(opt.Text) != "" {
			withText++
		}
		if opt.ID == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("options[%d].id", i),
				Message: "option id is required",
				Rule:    "required",
			})
			continue
		}
		if seen[opt.ID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("options[%d].id", i),
				Message: "duplicate option id",
				Value:   opt.ID,
				Rule:    "unique",
			})
		}
		seen[opt.ID] = true
	}

	if len(options) > 0 && withText < minWithText {
		errors = append(errors, ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("at least %d options must have text", minWithText),
			Value:   withText,
			Rule:    "business_logic",
		})
	}

	return errors
}

func validateMatchItems(field string, items []models.MatchItem) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d].text", field, i),
				Message: "item text is required",
				Rule:    "required",
			})
		}
		if item.ID == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d].id", field, i),
				Message: "item id is required",
				Rule:    "required",
			})
			continue
		}
		if seen[item.ID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d].id", field, i),
				Message: "duplicate item id",
				Value:   item.ID,
				Rule:    "unique",
			})
		}
		seen[item.ID] = true
	}

	return errors
}

// ValidateSubmissionConstraints checks checkbox selection-count rules on a
// submission before scoring. Violations reject the submission; they are
// distinct from answer correctness.
func (cv *ContentValidator) ValidateSubmissionConstraints(content *models.CheckboxContent, selected []string) ValidationErrors {
	var errors ValidationErrors

	count := len(selected)

	if content.ExactSelections != nil {
		if count != *content.ExactSelections {
			errors = append(errors, ValidationError{
				Field:   "answer",
				Message: fmt.Sprintf("must select exactly %d options, got %d", *content.ExactSelections, count),
				Value:   count,
				Rule:    "exact_selections",
			})
		}
		return errors
	}

	if content.MinSelections != nil && count < *content.MinSelections {
		errors = append(errors, ValidationError{
			Field:   "answer",
			Message: fmt.Sprintf("must select at least %d options, got %d", *content.MinSelections, count),
			Value:   count,
			Rule:    "min_selections",
		})
	}
	if content.MaxSelections != nil && count > *content.MaxSelections {
		errors = append(errors, ValidationError{
			Field:   "answer",
			Message: fmt.Sprintf("must select at most %d options, got %d", *content.MaxSelections, count),
			Value:   count,
			Rule:    "max_selections",
		})
	}

	return errors
}
