package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/repositories"
)

// ExportService renders a persisted draft's question list as a downloadable
// file for review outside the editor.
type ExportService interface {
	ExportDraftToExcel(ctx context.Context, projectID string, kind models.BuilderKind) ([]byte, error)
	ExportDraftToCSV(ctx context.Context, projectID string, kind models.BuilderKind) ([]byte, error)
}

type exportService struct {
	repo   repositories.DraftRepository
	logger *slog.Logger
}

func NewExportService(repo repositories.DraftRepository, logger *slog.Logger) ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &exportService{repo: repo, logger: logger}
}

var exportHeaders = []string{
	"Position", "Question Type", "Title", "Required", "Options", "Config", "Rules",
}

func (s *exportService) ExportDraftToExcel(ctx context.Context, projectID string, kind models.BuilderKind) ([]byte, error) {
	questions, err := s.loadQuestions(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Questions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, q := range questions {
		row := questionToExportRow(rowIndex, q)
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Draft exported to Excel", "project_id", projectID, "kind", kind, "questions", len(questions))
	return buf.Bytes(), nil
}

func (s *exportService) ExportDraftToCSV(ctx context.Context, projectID string, kind models.BuilderKind) ([]byte, error) {
	questions, err := s.loadQuestions(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, q := range questions {
		if err := writer.Write(questionToExportRow(i, q)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	s.logger.Info("Draft exported to CSV", "project_id", projectID, "kind", kind, "questions", len(questions))
	return []byte(buf.String()), nil
}

func (s *exportService) loadQuestions(ctx context.Context, projectID string, kind models.BuilderKind) ([]models.Question, error) {
	draft, err := s.repo.Get(ctx, projectID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		return nil, ErrNotFound
	}
	questions, err := draft.DecodeQuestions()
	if err != nil {
		return nil, fmt.Errorf("failed to decode draft questions: %w", err)
	}
	return questions, nil
}

func questionToExportRow(position int, q models.Question) []string {
	row := make([]string, len(exportHeaders))

	row[0] = strconv.Itoa(position + 1)
	row[1] = string(q.Type)
	row[2] = q.Title
	row[3] = strconv.FormatBool(q.Required)
	row[4] = strings.Join(q.Options, "; ")

	if !q.Config.IsZero() {
		if data, err := json.Marshal(q.Config); err == nil {
			row[5] = string(data)
		}
	}

	if len(q.Logic) > 0 {
		parts := make([]string, 0, len(q.Logic))
		for _, rule := range q.Logic {
			parts = append(parts, describeRuleShort(rule))
		}
		row[6] = strings.Join(parts, "; ")
	}

	return row
}

func describeRuleShort(rule models.LogicRule) string {
	cond := rule.Condition.Expression
	if cond == "" {
		cond = fmt.Sprintf("%s = %q", rule.Condition.QuestionID, rule.Condition.Answer)
	}
	if rule.Action == models.ActionJump {
		return fmt.Sprintf("if %s jump to %s", cond, rule.TargetID)
	}
	return fmt.Sprintf("if %s show", cond)
}
