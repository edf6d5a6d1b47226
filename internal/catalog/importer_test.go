package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/engdrill/pkg/models"
)

type memStore struct {
	items []models.CandidateItem
	err   error
}

func (m *memStore) Upsert(ctx context.Context, items []models.CandidateItem) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.items = append(m.items, items...)
	return len(items), nil
}

func TestParseCSV(t *testing.T) {
	input := `prompt,answer,category,level,type,id
Movement,,
"go (went, gone)",идти,,A1
run,бежать,,,,run-1
,пусто,,,
look up,искать,phrasal,B1
She ___ in Paris.,lives,,B1,sentence
`
	items, result, err := ParseCSV(strings.NewReader(input), DefaultImportConfig())
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, items, 4)

	assert.Equal(t, "go", items[0].Prompt)
	assert.Equal(t, "Movement", items[0].Category)
	assert.Equal(t, "flashcard:a1:go", items[0].ItemID)

	assert.Equal(t, "run-1", items[1].ItemID)
	assert.Equal(t, "A1", items[1].Level, "default level applies")

	assert.Equal(t, "phrasal", items[2].Category)
	assert.Equal(t, "flashcard:b1:look-up", items[2].ItemID)

	assert.Equal(t, models.ItemSentence, items[3].Type)
	assert.Equal(t, "She ___ in Paris.", items[3].Prompt)
}

func TestParseCSVRejectsDuplicatesAndUnknownTypes(t *testing.T) {
	input := "h\napple,яблоко,,A1,flashcard,x\npear,груша,,A1,flashcard,x\nfoo,bar,,A1,video\n"
	items, result, err := ParseCSV(strings.NewReader(input), DefaultImportConfig())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.Errors, 2)
}

func TestParseJSONBareArray(t *testing.T) {
	doc := `[
		{"id": "s-1", "sentence": "I ___ tea.", "answer": "drink", "level": "a2", "submitted_at": "2025-06-01T12:00:00Z"},
		{"word": "apple", "translation": "яблоко", "topic": "food"}
	]`
	items, result, err := ParseJSON(strings.NewReader(doc), DefaultImportConfig())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, result.Skipped)

	assert.Equal(t, "s-1", items[0].ItemID)
	assert.Equal(t, models.ItemSentence, items[0].Type)
	assert.Equal(t, "A2", items[0].Level)
	require.NotNil(t, items[0].SubmittedAt)
	assert.JSONEq(t, `{"id": "s-1", "sentence": "I ___ tea.", "answer": "drink", "level": "a2", "submitted_at": "2025-06-01T12:00:00Z"}`,
		string(items[0].Payload))

	assert.Equal(t, models.ItemFlashcard, items[1].Type)
	assert.Equal(t, "food", items[1].Category)
	assert.Equal(t, "flashcard:a1:apple", items[1].ItemID)
}

func TestParseJSONWrappedArray(t *testing.T) {
	for _, key := range []string{"items", "sentences", "cards", "data"} {
		t.Run(key, func(t *testing.T) {
			doc := `{"version": 2, "` + key + `": [{"item_id": "a", "prompt": "p", "answer": "q"}]}`
			items, _, err := ParseJSON(strings.NewReader(doc), DefaultImportConfig())
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "a", items[0].ItemID)
		})
	}
}

func TestParseJSONErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":        "",
		"scalar":       `"hello"`,
		"no array key": `{"rows": []}`,
		"not an array": `{"items": {"a": 1}}`,
		"broken":       `[{"id": }]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseJSON(strings.NewReader(doc), DefaultImportConfig())
			assert.Error(t, err)
		})
	}
}

func TestParseJSONSkipsMalformedElements(t *testing.T) {
	doc := `[1, {"prompt": "", "answer": "x"}, {"prompt": "ok", "answer": "fine"}]`
	items, result, err := ParseJSON(strings.NewReader(doc), DefaultImportConfig())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Skipped)
}

func TestImportExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Word", "Translation", "Category", "Level"},
		{"house", "дом", "home", "A1"},
		{"window", "окно", "home", "A1"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	store := &memStore{}
	cfg := DefaultImportConfig()
	cfg.FilePath = path
	result, err := Import(context.Background(), store, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, store.items, 2)
	assert.Equal(t, "house", store.items[0].Prompt)
	assert.Equal(t, "home", store.items[1].Category)
}

func TestImportPropagatesStoreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"prompt": "a", "answer": "b"}]`), 0o644))

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	_, err := Import(context.Background(), &memStore{err: errors.New("disk full")}, cfg)
	assert.ErrorContains(t, err, "disk full")
}

func TestReadFileUnsupportedExtension(t *testing.T) {
	cfg := DefaultImportConfig()
	cfg.FilePath = "catalog.txt"
	_, _, err := ReadFile(cfg)
	assert.Error(t, err)
}

func TestColumnToIndex(t *testing.T) {
	assert.Equal(t, 0, columnToIndex("A"))
	assert.Equal(t, 5, columnToIndex("f"))
	assert.Equal(t, 26, columnToIndex("AA"))
	assert.Equal(t, -1, columnToIndex("1"))
}
