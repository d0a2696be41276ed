// Package importer loads lessons and their questions from xlsx or csv
// spreadsheets into the catalog.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// Config maps spreadsheet columns to question and lesson fields.
//
// Options are separated by "|" and correct ones are prefixed with "*".
// Matching pairs are written as "left=right" and separated by "|".
// Rows with an empty lesson column belong to the lesson above them.
type Config struct {
	FilePath            string
	SheetName           string
	StartRow            int // 1-based, rows above it are headers
	LessonColumn        string
	LessonTypeColumn    string
	QuestionTypeColumn  string
	TextColumn          string
	OptionsColumn       string
	MatchingColumn      string
	DifficultyColumn    string
	ExplanationColumn   string
	HintColumn          string
	PriceColumn         string
	BaseCoinsColumn     string
	RequiredLevelColumn string
}

func DefaultConfig() Config {
	return Config{
		SheetName:           "Sheet1",
		StartRow:            2,
		LessonColumn:        "A",
		LessonTypeColumn:    "B",
		QuestionTypeColumn:  "C",
		TextColumn:          "D",
		OptionsColumn:       "E",
		MatchingColumn:      "F",
		DifficultyColumn:    "G",
		ExplanationColumn:   "H",
		HintColumn:          "I",
		PriceColumn:         "J",
		BaseCoinsColumn:     "K",
		RequiredLevelColumn: "L",
	}
}

type Result struct {
	TotalProcessed   int
	QuestionsCreated int
	LessonsCreated   int
	LessonsUpdated   int
	Skipped          int
	Errors           []string
}

type Importer struct {
	questions store.Questions
	lessons   store.Lessons
	log       *logger.Logger
}

// New builds an importer. Pass the cached catalog as lessons so saved
// lessons invalidate it.
func New(questions store.Questions, lessons store.Lessons, log *logger.Logger) *Importer {
	return &Importer{questions: questions, lessons: lessons, log: log}
}

// Import reads cfg.FilePath, picking the csv reader by extension and
// excelize otherwise. Row level problems are collected in Result.Errors.
func (im *Importer) Import(ctx context.Context, cfg Config) (*Result, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(cfg.FilePath), ".csv") {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return im.importRows(ctx, cfg, rows)
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
}

type rowData struct {
	lesson        string
	lessonType    string
	questionType  string
	text          string
	options       string
	matching      string
	difficulty    string
	explanation   string
	hint          string
	price         string
	baseCoins     string
	requiredLevel string
}

func (im *Importer) importRows(ctx context.Context, cfg Config, rows [][]string) (*Result, error) {
	existing, err := im.lessons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing lessons: %w", err)
	}
	lessonMap := make(map[string]*models.Lesson, len(existing))
	for i := range existing {
		lessonMap[strings.ToLower(existing[i].Name)] = &existing[i]
	}

	result := &Result{Errors: make([]string, 0)}
	touched := make(map[string]bool)
	var order []string
	current := ""

	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		data := extract(row, cfg)
		if data.lesson != "" {
			current = data.lesson
		}
		if strings.TrimSpace(data.text) == "" {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		if current == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: lesson name cannot be empty", i+1))
			continue
		}
		key := strings.ToLower(current)
		lesson, ok := lessonMap[key]
		if !ok {
			lesson = &models.Lesson{Name: current}
			lessonMap[key] = lesson
		}
		if err := applyLessonFields(lesson, data); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		question, err := buildQuestion(data)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		if err := im.questions.Create(ctx, question); err != nil {
			return result, fmt.Errorf("failed to create question from row %d: %w", i+1, err)
		}
		result.QuestionsCreated++
		lesson.QuestionIDs = append(lesson.QuestionIDs, question.ID)

		if !touched[key] {
			touched[key] = true
			order = append(order, key)
		}
	}

	for _, key := range order {
		lesson := lessonMap[key]
		isNew := lesson.ID == 0
		if err := im.lessons.Save(ctx, lesson); err != nil {
			return result, fmt.Errorf("failed to save lesson %q: %w", lesson.Name, err)
		}
		if isNew {
			result.LessonsCreated++
		} else {
			result.LessonsUpdated++
		}
	}

	im.log.Info("catalog import finished",
		"file", cfg.FilePath,
		"questions", result.QuestionsCreated,
		"lessons_created", result.LessonsCreated,
		"lessons_updated", result.LessonsUpdated,
		"errors", len(result.Errors),
	)
	return result, nil
}

func extract(row []string, cfg Config) rowData {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	return rowData{
		lesson:        cell(cfg.LessonColumn),
		lessonType:    cell(cfg.LessonTypeColumn),
		questionType:  cell(cfg.QuestionTypeColumn),
		text:          cell(cfg.TextColumn),
		options:       cell(cfg.OptionsColumn),
		matching:      cell(cfg.MatchingColumn),
		difficulty:    cell(cfg.DifficultyColumn),
		explanation:   cell(cfg.ExplanationColumn),
		hint:          cell(cfg.HintColumn),
		price:         cell(cfg.PriceColumn),
		baseCoins:     cell(cfg.BaseCoinsColumn),
		requiredLevel: cell(cfg.RequiredLevelColumn),
	}
}

// applyLessonFields copies the non-empty lesson cells of a row onto the lesson.
func applyLessonFields(l *models.Lesson, data rowData) error {
	if data.lessonType != "" {
		t := models.LessonType(data.lessonType)
		switch t {
		case models.LessonGrammar, models.LessonVocabulary, models.LessonTypicalError:
			l.LessonType = t
		default:
			return fmt.Errorf("unknown lesson type %q", data.lessonType)
		}
	}
	for _, f := range []struct {
		raw string
		dst *int
	}{
		{data.price, &l.Price},
		{data.baseCoins, &l.BaseCoins},
		{data.requiredLevel, &l.RequiredLevel},
	} {
		if f.raw == "" {
			continue
		}
		v, err := strconv.Atoi(f.raw)
		if err != nil || v < 0 {
			return fmt.Errorf("invalid number %q", f.raw)
		}
		*f.dst = v
	}
	return nil
}

func buildQuestion(data rowData) (*models.Question, error) {
	qt := models.QuestionType(data.questionType)
	if data.questionType == "" {
		qt = models.QuestionCard
	}
	if !qt.Valid() {
		return nil, fmt.Errorf("unknown question type %q", data.questionType)
	}

	q := &models.Question{
		Text:        data.text,
		Type:        qt,
		Options:     parseOptions(data.options),
		Explanation: data.explanation,
		Hint:        data.hint,
		Difficulty:  parseIntOrDefault(data.difficulty, 1, 5, 3),
	}
	pairs, err := parsePairs(data.matching)
	if err != nil {
		return nil, err
	}
	q.MatchingOptions = pairs

	switch qt {
	case models.QuestionSingleChoice, models.QuestionTrueFalse, models.QuestionMultipleChoice,
		models.QuestionFillBlank, models.QuestionShortAnswer:
		if len(q.CorrectOptions()) == 0 {
			return nil, errors.New("question needs at least one correct option")
		}
	case models.QuestionMatching:
		if len(q.MatchingOptions) == 0 {
			return nil, errors.New("matching question needs pairs")
		}
	}
	return q, nil
}

func parseOptions(raw string) []models.Option {
	var options []models.Option
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		correct := strings.HasPrefix(part, "*")
		options = append(options, models.Option{
			Value:     strings.TrimSpace(strings.TrimPrefix(part, "*")),
			IsCorrect: correct,
		})
	}
	return options
}

func parsePairs(raw string) ([]models.MatchingPair, error) {
	var pairs []models.MatchingPair
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		left, right, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(left) == "" || strings.TrimSpace(right) == "" {
			return nil, fmt.Errorf("invalid matching pair %q", part)
		}
		pairs = append(pairs, models.MatchingPair{Left: strings.TrimSpace(left), Right: strings.TrimSpace(right)})
	}
	return pairs, nil
}

// columnToIndex converts an Excel column letter to a 0-based index.
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

func parseIntOrDefault(s string, min, max, defaultVal int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
