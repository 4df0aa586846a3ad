package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/coursekit/quiz-service/internal/models"
)

// ===== GRADING UTILITIES =====

// CalculateScore returns the earned fraction of the question's effective
// points. Submissions referencing unknown option, item or zone ids score as
// incorrect rather than erroring; only malformed payloads error.
func (s *gradingService) CalculateScore(ctx context.Context, questionType models.QuestionType, questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	if studentAnswer == nil {
		return 0.0, false, nil // No answer provided
	}

	switch questionType {
	case models.MultipleChoice:
		return gradeMultipleChoice(questionContent, studentAnswer)
	case models.TrueFalse:
		return gradeTrueFalse(questionContent, studentAnswer)
	case models.Checkbox:
		return gradeCheckbox(questionContent, studentAnswer)
	case models.FillBlank:
		return gradeFillBlank(questionContent, studentAnswer)
	case models.Matching:
		return gradeMatching(questionContent, studentAnswer)
	case models.DragDrop:
		return gradeDragDrop(questionContent, studentAnswer)
	case models.Essay:
		return 0.0, false, ErrGradingNotAllowed
	case models.CodeInput:
		// Test cases are exposed to an external judge; no score is produced here
		return 0.0, false, ErrExternalJudgeRequired
	default:
		return 0.0, false, fmt.Errorf("unsupported question type: %s", questionType)
	}
}

func (s *gradingService) GenerateFeedback(ctx context.Context, questionType models.QuestionType, questionContent json.RawMessage, studentAnswer json.RawMessage, isCorrect bool) (*string, error) {
	var feedback string

	switch questionType {
	case models.MultipleChoice:
		feedback = generateMultipleChoiceFeedback(questionContent, isCorrect)
	case models.TrueFalse:
		feedback = generateTrueFalseFeedback(questionContent, isCorrect)
	case models.Checkbox:
		if isCorrect {
			feedback = "All correct options selected!"
		} else {
			feedback = "Your selection does not fully match the correct options."
		}
	case models.FillBlank:
		if isCorrect {
			feedback = "All blanks filled correctly!"
		} else {
			feedback = "Some answers are incorrect. Please review your responses."
		}
	case models.Matching:
		if isCorrect {
			feedback = "All items matched correctly!"
		} else {
			feedback = "Some matches are incorrect. Please review your pairings."
		}
	case models.DragDrop:
		if isCorrect {
			feedback = "All items placed correctly!"
		} else {
			feedback = "Some items are in the wrong zone. Please review your placement."
		}
	case models.Essay:
		feedback = "Essay answers are reviewed by an instructor."
	case models.CodeInput:
		feedback = "Code submissions are evaluated against the test cases by the judge."
	default:
		if isCorrect {
			feedback = "Correct answer!"
		} else {
			feedback = "Incorrect answer."
		}
	}

	return &feedback, nil
}

// ===== QUESTION TYPE SPECIFIC GRADING =====

func gradeMultipleChoice(questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.MultipleChoiceContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var selectedIndex int
	if err := json.Unmarshal(studentAnswer, &selectedIndex); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	// Out-of-range indexes are incorrect, not errors
	if selectedIndex < 0 || selectedIndex >= len(content.Options) {
		return 0.0, false, nil
	}

	if selectedIndex == content.CorrectIndex {
		return 1.0, true, nil
	}

	return 0.0, false, nil
}

func gradeTrueFalse(questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.TrueFalseContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var answer bool
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	if answer == content.CorrectAnswer {
		return 1.0, true, nil
	}

	return 0.0, false, nil
}

func gradeCheckbox(questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.CheckboxContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var selected []string
	if err := json.Unmarshal(studentAnswer, &selected); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	correctSet := make(map[string]bool, len(content.CorrectAnswers))
	for _, id := range content.CorrectAnswers {
		correctSet[id] = true
	}

	selectedSet := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	rawCorrect := 0
	rawIncorrect := 0
	for id := range selectedSet {
		if correctSet[id] {
			rawCorrect++
		} else {
			rawIncorrect++
		}
	}

	exactMatch := rawIncorrect == 0 && rawCorrect == len(correctSet)

	// Without partial credit the score is all or nothing
	if !content.AllowPartialCredit {
		if exactMatch {
			return 1.0, true, nil
		}
		return 0.0, false, nil
	}

	effective := rawCorrect
	if content.PenalizeIncorrect {
		effective -= rawIncorrect
	}

	fraction := math.Max(0, float64(effective)) / float64(len(correctSet))
	fraction = math.Min(fraction, 1.0)

	return fraction, exactMatch, nil
}

func gradeFillBlank(questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.FillBlankContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var submission models.FillBlankSubmission
	if err := json.Unmarshal(studentAnswer, &submission); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	totalPoints := 0
	earnedPoints := 0
	allCorrect := true

	for i, blank := range content.Blanks {
		totalPoints += blank.Points

		if i >= len(submission.Answers) {
			allCorrect = false
			continue
		}

		if blankMatches(blank, submission.Answers[i]) {
			earnedPoints += blank.Points
		} else {
			allCorrect = false
		}
	}

	if totalPoints == 0 {
		return 0.0, false, nil
	}

	return float64(earnedPoints) / float64(totalPoints), allCorrect, nil
}

// blankMatches compares a submitted value against a blank's accepted answers.
// Both match modes use whole-string equality after trimming; containment
// matching is deliberately not offered ("cat" would match "category").
func blankMatches(blank models.Blank, submitted string) bool {
	for _, accepted := range blank.CorrectAnswers {
		if compareStrings(submitted, accepted, blank.CaseSensitive) {
			return true
		}
	}
	return false
}

func gradeMatching(questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.MatchingContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var submission models.MatchingSubmission
	if err := json.Unmarshal(studentAnswer, &submission); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	total := len(content.Pairs)
	if total == 0 {
		return 0.0, false, nil
	}

	defined := make(map[string]string, total)
	for _, pair := range content.Pairs {
		defined[pair.LeftID] = pair.RightID
	}

	// A submitted pair counts only when both ids agree with a defined pair;
	// duplicates for the same left item do not double-count
	matched := make(map[string]bool, total)
	for _, pair := range submission.Pairs {
		if rightID, ok := defined[pair.LeftID]; ok && rightID == pair.RightID {
			matched[pair.LeftID] = true
		}
	}

	fraction := float64(len(matched)) / float64(total)
	return fraction, len(matched) == total, nil
}

func gradeDragDrop(questionContent json.RawMessage, studentAnswer json.RawMessage) (float64, bool, error) {
	var content models.DragDropContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal question content: %w", err)
	}

	var submission models.DragDropSubmission
	if err := json.Unmarshal(studentAnswer, &submission); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	if len(content.Items) == 0 {
		return 0.0, false, nil
	}

	correctZoneByItem := make(map[string]string, len(content.Items))
	for zoneID, itemIDs := range content.CorrectAnswer {
		for _, itemID := range itemIDs {
			correctZoneByItem[itemID] = zoneID
		}
	}

	submittedZoneByItem := make(map[string]string)
	for zoneID, itemIDs := range submission.Placements {
		for _, itemID := range itemIDs {
			submittedZoneByItem[itemID] = zoneID
		}
	}

	// Membership in the right zone is what scores; order inside a zone is
	// presentation only
	correct := 0
	for _, item := range content.Items {
		wantZone, ok := correctZoneByItem[item.ID]
		if !ok {
			continue
		}
		if submittedZoneByItem[item.ID] == wantZone {
			correct++
		}
	}

	fraction := float64(correct) / float64(len(content.Items))
	return fraction, correct == len(content.Items), nil
}

// ===== FEEDBACK GENERATION =====

func generateMultipleChoiceFeedback(questionContent json.RawMessage, isCorrect bool) string {
	if isCorrect {
		return "Correct! Well done."
	}

	var content models.MultipleChoiceContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return "Incorrect answer."
	}

	if content.CorrectIndex >= 0 && content.CorrectIndex < len(content.Options) {
		return fmt.Sprintf("Incorrect. The correct answer is: %s", content.Options[content.CorrectIndex].Text)
	}
	return "Incorrect answer."
}

func generateTrueFalseFeedback(questionContent json.RawMessage, isCorrect bool) string {
	if isCorrect {
		return "Correct!"
	}

	var content models.TrueFalseContent
	if err := json.Unmarshal(questionContent, &content); err != nil {
		return "Incorrect answer."
	}

	correctText := "True"
	if !content.CorrectAnswer {
		correctText = "False"
	}
	return fmt.Sprintf("Incorrect. The correct answer is: %s", correctText)
}

// ===== HELPER FUNCTIONS =====

func isAutoGradeable(questionType models.QuestionType) bool {
	switch questionType {
	case models.MultipleChoice, models.TrueFalse, models.Checkbox,
		models.FillBlank, models.Matching, models.DragDrop:
		return true
	case models.Essay, models.CodeInput:
		return false
	}
	return false
}

func calculateLetterGrade(percentage float64) string {
	if percentage >= 97 {
		return "A+"
	} else if percentage >= 93 {
		return "A"
	} else if percentage >= 90 {
		return "A-"
	} else if percentage >= 87 {
		return "B+"
	} else if percentage >= 83 {
		return "B"
	} else if percentage >= 80 {
		return "B-"
	} else if percentage >= 77 {
		return "C+"
	} else if percentage >= 73 {
		return "C"
	} else if percentage >= 70 {
		return "C-"
	} else if percentage >= 67 {
		return "D+"
	} else if percentage >= 63 {
		return "D"
	} else if percentage >= 60 {
		return "D-"
	} else {
		return "F"
	}
}

func compareStrings(s1, s2 string, caseSensitive bool) bool {
	s1 = strings.TrimSpace(s1)
	s2 = strings.TrimSpace(s2)
	if !caseSensitive {
		s1 = strings.ToLower(s1)
		s2 = strings.ToLower(s2)
	}
	return s1 == s2
}
