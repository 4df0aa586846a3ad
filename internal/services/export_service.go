package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/coursekit/quiz-service/internal/models"
	"github.com/coursekit/quiz-service/internal/repositories"
	"github.com/coursekit/quiz-service/internal/validator"
	"github.com/xuri/excelize/v2"
)

const questionSheetName = "Questions"

var questionSheetHeader = []string{"Order", "Type", "Text", "Points", "Difficulty", "Explanation", "Content"}

type importExportService struct {
	repo            repositories.Repository
	logger          *slog.Logger
	validator       *validator.Validator
	questionService QuestionService
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, questionService QuestionService) ImportExportService {
	return &importExportService{
		repo:            repo,
		logger:          logger,
		validator:       validator,
		questionService: questionService,
	}
}

// ===== EXPORT =====

// ExportQuiz renders the quiz and its questions as an xlsx workbook. Content
// payloads are exported as raw JSON so a round trip re-imports losslessly.
func (s *importExportService) ExportQuiz(ctx context.Context, quizID uint, userID string) ([]byte, error) {
	s.logger.Info("Exporting quiz", "quiz_id", quizID, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if err := s.checkExportPermission(ctx, quiz, userID); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	infoSheet := f.GetSheetName(0)
	if err := s.writeQuizInfo(f, infoSheet, quiz); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(questionSheetName); err != nil {
		return nil, fmt.Errorf("failed to create question sheet: %w", err)
	}

	for col, title := range questionSheetHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(questionSheetName, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, question := range quiz.Questions {
		row := i + 2
		values := []interface{}{
			question.Order + 1,
			string(question.Type),
			question.Text,
			question.Points,
			string(question.Difficulty),
			derefString(question.Explanation),
			string(question.Content),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(questionSheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write question row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Quiz exported successfully",
		"quiz_id", quizID,
		"questions", len(quiz.Questions),
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

func (s *importExportService) writeQuizInfo(f *excelize.File, sheet string, quiz *models.Quiz) error {
	rows := [][2]interface{}{
		{"Title", quiz.Title},
		{"Description", derefString(quiz.Description)},
		{"Course ID", quiz.CourseID},
		{"Status", string(quiz.Status)},
		{"Passing Score", quiz.Settings.PassingScore},
		{"Total Points", quiz.TotalPoints()},
		{"Total Questions", quiz.TotalQuestions()},
	}

	for i, row := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(sheet, keyCell, row[0]); err != nil {
			return fmt.Errorf("failed to write quiz info: %w", err)
		}
		if err := f.SetCellValue(sheet, valueCell, row[1]); err != nil {
			return fmt.Errorf("failed to write quiz info: %w", err)
		}
	}

	return nil
}

// ===== IMPORT =====

// ImportQuestions appends questions from an exported workbook to a quiz. Rows
// that fail validation are reported and skipped rather than aborting the
// whole import.
func (s *importExportService) ImportQuestions(ctx context.Context, quizID uint, data []byte, userID string) (*ImportResult, error) {
	s.logger.Info("Importing questions", "quiz_id", quizID, "user_id", userID, "bytes", len(data))

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewValidationError("file", "not a readable xlsx workbook", nil)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	rows, err := f.GetRows(questionSheetName)
	if err != nil {
		return nil, NewValidationError("file", fmt.Sprintf("missing %q sheet", questionSheetName), nil)
	}
	if len(rows) < 2 {
		return &ImportResult{}, nil
	}

	result := &ImportResult{}

	for i, row := range rows[1:] {
		rowNum := i + 2

		req, err := parseQuestionRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		if _, err := s.questionService.Create(ctx, quizID, req, userID); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		result.Imported++
	}

	s.logger.Info("Question import finished",
		"quiz_id", quizID,
		"imported", result.Imported,
		"skipped", result.Skipped)

	return result, nil
}

func parseQuestionRow(row []string) (*CreateQuestionRequest, error) {
	if len(row) < len(questionSheetHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(questionSheetHeader), len(row))
	}

	questionType := models.QuestionType(strings.TrimSpace(row[1]))
	if !models.IsValidQuestionType(questionType) {
		return nil, fmt.Errorf("unknown question type %q", row[1])
	}

	text := strings.TrimSpace(row[2])
	if text == "" {
		return nil, fmt.Errorf("question text is empty")
	}

	points, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid points value %q", row[3])
	}

	content := strings.TrimSpace(row[6])
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("content is not valid JSON")
	}

	req := &CreateQuestionRequest{
		Type:    questionType,
		Text:    text,
		Points:  points,
		Content: json.RawMessage(content),
	}

	difficulty := models.DifficultyLevel(strings.TrimSpace(row[4]))
	if difficulty != "" {
		req.Difficulty = difficulty
	}
	if explanation := strings.TrimSpace(row[5]); explanation != "" {
		req.Explanation = &explanation
	}

	return req, nil
}

// ===== HELPERS =====

func (s *importExportService) checkExportPermission(ctx context.Context, quiz *models.Quiz, userID string) error {
	if quiz.CreatedBy == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role == models.RoleAdmin {
		return nil
	}

	return NewPermissionError(userID, quiz.ID, "quiz", "export", "not owner or insufficient permissions")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
