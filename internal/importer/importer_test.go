package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store/memory"
	"github.com/example/lingoleague/pkg/models"
)

var header = []interface{}{"lesson", "lesson type", "question type", "text", "options", "pairs", "difficulty", "explanation", "hint", "price", "coins", "level"}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	all := append([][]interface{}{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func (c Config) withPath(path string) Config {
	c.FilePath = path
	return c
}

func TestImportExcel(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	path := writeWorkbook(t, [][]interface{}{
		{"Articles", "grammar", "singleChoice", "___ apple", "*an|a|the", "", "2", "vowel sound", "", "5", "3", "1"},
		{"", "", "fillBlank", "I have ___ cat", "*a", "", "9"},
		{"", "", "matching", "Match animals", "", "cat=кот|dog=собака"},
		{"Words", "vocabulary", "card", "serendipity"},
		{"", "", "singleChoice", "no correct option", "a|b"},
		{"Words"},
	})

	res, err := New(st.Questions, st.Lessons, logger.Nop()).Import(ctx, Config{
		FilePath: path, SheetName: "Sheet1", StartRow: 2,
		LessonColumn: "A", LessonTypeColumn: "B", QuestionTypeColumn: "C", TextColumn: "D",
		OptionsColumn: "E", MatchingColumn: "F", DifficultyColumn: "G", ExplanationColumn: "H",
		HintColumn: "I", PriceColumn: "J", BaseCoinsColumn: "K", RequiredLevelColumn: "L",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalProcessed)
	assert.Equal(t, 4, res.QuestionsCreated)
	assert.Equal(t, 2, res.LessonsCreated)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 6")

	lessons, err := st.Lessons.List(ctx)
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	articles := lessons[0]
	assert.Equal(t, "Articles", articles.Name)
	assert.Equal(t, models.LessonGrammar, articles.LessonType)
	assert.Equal(t, 5, articles.Price)
	assert.Equal(t, 3, articles.BaseCoins)
	assert.Equal(t, 1, articles.RequiredLevel)
	require.Len(t, articles.QuestionIDs, 3)

	first, err := st.Questions.GetByID(ctx, articles.QuestionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"an"}, first.CorrectOptions())
	assert.Len(t, first.Options, 3)
	assert.Equal(t, 2, first.Difficulty)
	assert.Equal(t, "vowel sound", first.Explanation)

	blank, err := st.Questions.GetByID(ctx, articles.QuestionIDs[1])
	require.NoError(t, err)
	assert.Equal(t, 5, blank.Difficulty, "difficulty is clamped")

	matching, err := st.Questions.GetByID(ctx, articles.QuestionIDs[2])
	require.NoError(t, err)
	assert.Equal(t, []models.MatchingPair{{Left: "cat", Right: "кот"}, {Left: "dog", Right: "собака"}}, matching.MatchingOptions)

	words := lessons[1]
	assert.Equal(t, models.LessonVocabulary, words.LessonType)
	require.Len(t, words.QuestionIDs, 1)
}

func TestImportCSVExtendsExistingLesson(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	q := &models.Question{Text: "old", Type: models.QuestionCard, Difficulty: 1}
	require.NoError(t, st.Questions.Create(ctx, q))
	existing := &models.Lesson{Name: "Phrasal verbs", QuestionIDs: []int64{q.ID}}
	require.NoError(t, st.Lessons.Save(ctx, existing))

	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "lesson,type,qtype,text,options\n" +
		"phrasal verbs,typicalError,trueFalse,\"give up means start\",true|*false\n" +
		"Linking,bogus,card,\"and\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res, err := New(st.Questions, st.Lessons, logger.Nop()).Import(ctx, DefaultConfig().withPath(path))
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuestionsCreated)
	assert.Equal(t, 1, res.LessonsUpdated)
	assert.Zero(t, res.LessonsCreated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unknown lesson type")

	got, err := st.Lessons.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LessonTypicalError, got.LessonType)
	assert.Len(t, got.QuestionIDs, 2)
}

func TestImportMissingFile(t *testing.T) {
	st := memory.New()
	_, err := New(st.Questions, st.Lessons, logger.Nop()).Import(context.Background(), DefaultConfig().withPath("nope.xlsx"))
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 0, columnToIndex("A"))
	assert.Equal(t, 26, columnToIndex("AA"))
	assert.Equal(t, 3, parseIntOrDefault("x", 1, 5, 3))

	_, err := parsePairs("left-only")
	assert.Error(t, err)
}
