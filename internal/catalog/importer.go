package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/engdrill/pkg/models"
)

// Store persists imported items.
type Store interface {
	Upsert(ctx context.Context, items []models.CandidateItem) (int, error)
}

// ColumnMap names the spreadsheet column holding each field.
// Empty columns are not read.
type ColumnMap struct {
	Prompt   string
	Answer   string
	Category string
	Level    string
	Type     string
	ID       string
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath     string // Path to the xlsx, csv or json file
	SheetName    string // Name of the sheet to import (xlsx only)
	StartRow     int    // The row to start importing from (1-based index)
	Columns      ColumnMap
	DefaultType  models.ItemType // Used when a row does not name its type
	DefaultLevel string          // Used when a row does not name its level
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName: "Sheet1",
		StartRow:  2, // skip header
		Columns: ColumnMap{
			Prompt:   "A",
			Answer:   "B",
			Category: "C",
			Level:    "D",
			Type:     "E",
			ID:       "F",
		},
		DefaultType:  models.ItemFlashcard,
		DefaultLevel: "A1",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

func (r *ImportResult) skip(row int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", row, err))
}

// Import reads the file named in cfg and upserts every valid item into store.
func Import(ctx context.Context, store Store, cfg ImportConfig) (*ImportResult, error) {
	items, result, err := ReadFile(cfg)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return result, nil
	}
	n, err := store.Upsert(ctx, items)
	if err != nil {
		return result, fmt.Errorf("failed to store items: %w", err)
	}
	result.Imported = n
	return result, nil
}

// ReadFile parses the file named in cfg, choosing the format by extension.
func ReadFile(cfg ImportConfig) ([]models.CandidateItem, *ImportResult, error) {
	switch strings.ToLower(filepath.Ext(cfg.FilePath)) {
	case ".csv":
		f, err := os.Open(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		return ParseCSV(f, cfg)
	case ".json":
		f, err := os.Open(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open JSON file: %w", err)
		}
		defer f.Close()
		return ParseJSON(f, cfg)
	case ".xlsx", ".xlsm":
		return readExcel(cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(cfg.FilePath))
	}
}

func readExcel(cfg ImportConfig) ([]models.CandidateItem, *ImportResult, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %w", err)
	}
	items, result := parseRows(rows, cfg)
	return items, result, nil
}

// ParseCSV reads rows laid out like the spreadsheet columns in cfg.
// A row with only its first cell filled starts a new category for the rows below it.
func ParseCSV(r io.Reader, cfg ImportConfig) ([]models.CandidateItem, *ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading CSV: %w", err)
	}
	items, result := parseRows(rows, cfg)
	return items, result, nil
}

func parseRows(rows [][]string, cfg ImportConfig) ([]models.CandidateItem, *ImportResult) {
	result := &ImportResult{Errors: make([]string, 0)}
	var items []models.CandidateItem
	seen := make(map[string]bool)
	currentCategory := ""

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow || isBlank(row) {
			continue
		}
		if title, ok := categoryHeader(row); ok {
			currentCategory = title
			continue
		}

		result.TotalProcessed++
		raw := rawItem{
			Prompt:   cell(row, cfg.Columns.Prompt),
			Answer:   cell(row, cfg.Columns.Answer),
			Category: cell(row, cfg.Columns.Category),
			Level:    cell(row, cfg.Columns.Level),
			Type:     cell(row, cfg.Columns.Type),
			ID:       cell(row, cfg.Columns.ID),
		}
		if raw.Category == "" {
			raw.Category = currentCategory
		}
		item, err := raw.normalize(cfg)
		if err != nil {
			result.skip(rowNum, err)
			continue
		}
		if seen[item.ItemID] {
			result.skip(rowNum, fmt.Errorf("duplicate item %s", item.ItemID))
			continue
		}
		seen[item.ItemID] = true
		items = append(items, item)
	}
	return items, result
}

// categoryHeader detects rows like "Movement,," that title the rows below.
func categoryHeader(row []string) (string, bool) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return "", false
	}
	for _, c := range row[1:] {
		if strings.TrimSpace(c) != "" {
			return "", false
		}
	}
	return strings.Trim(strings.TrimSpace(row[0]), "\""), true
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

// jsonWrapperKeys are the fields an object document may keep its item array under.
var jsonWrapperKeys = []string{"items", "sentences", "cards", "data"}

// ParseJSON accepts either a bare array of items or an object wrapping the
// array under one of "items", "sentences", "cards" or "data".
// Each element is kept verbatim as the item payload.
func ParseJSON(r io.Reader, cfg ImportConfig) ([]models.CandidateItem, *ImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading JSON: %w", err)
	}
	elements, err := unwrapJSON(bytes.TrimSpace(body))
	if err != nil {
		return nil, nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var items []models.CandidateItem
	seen := make(map[string]bool)
	for i, el := range elements {
		result.TotalProcessed++
		var raw rawItem
		if err := json.Unmarshal(el, &raw); err != nil {
			result.skip(i+1, fmt.Errorf("malformed item: %w", err))
			continue
		}
		item, err := raw.normalize(cfg)
		if err != nil {
			result.skip(i+1, err)
			continue
		}
		if seen[item.ItemID] {
			result.skip(i+1, fmt.Errorf("duplicate item %s", item.ItemID))
			continue
		}
		seen[item.ItemID] = true
		item.Payload = append(json.RawMessage(nil), el...)
		items = append(items, item)
	}
	return items, result, nil
}

func unwrapJSON(body []byte) ([]json.RawMessage, error) {
	if len(body) == 0 {
		return nil, errors.New("empty JSON document")
	}
	var elements []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &elements); err != nil {
			return nil, fmt.Errorf("malformed JSON array: %w", err)
		}
		return elements, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("malformed JSON object: %w", err)
		}
		for _, key := range jsonWrapperKeys {
			if inner, ok := wrapper[key]; ok {
				if err := json.Unmarshal(inner, &elements); err != nil {
					return nil, fmt.Errorf("field %q is not an array: %w", key, err)
				}
				return elements, nil
			}
		}
		return nil, fmt.Errorf("JSON object has none of the fields %s", strings.Join(jsonWrapperKeys, ", "))
	default:
		return nil, errors.New("JSON document must be an array or an object")
	}
}

// rawItem is one catalog entry before normalisation. The JSON aliases
// cover the field names content exports commonly use.
type rawItem struct {
	ID          string     `json:"id"`
	ItemID      string     `json:"item_id"`
	Type        string     `json:"type"`
	Level       string     `json:"level"`
	Category    string     `json:"category"`
	Topic       string     `json:"topic"`
	Prompt      string     `json:"prompt"`
	Word        string     `json:"word"`
	Sentence    string     `json:"sentence"`
	Question    string     `json:"question"`
	Answer      string     `json:"answer"`
	Translation string     `json:"translation"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (r rawItem) normalize(cfg ImportConfig) (models.CandidateItem, error) {
	itemType := models.ItemType(strings.ToLower(firstNonEmpty(r.Type)))
	if itemType == "" {
		switch {
		case r.Sentence != "":
			itemType = models.ItemSentence
		case r.Word != "":
			itemType = models.ItemFlashcard
		default:
			itemType = cfg.DefaultType
		}
	}
	if !itemType.IsValid() {
		return models.CandidateItem{}, fmt.Errorf("unknown item type %q", itemType)
	}

	prompt := firstNonEmpty(r.Prompt, r.Word, r.Sentence, r.Question)
	answer := firstNonEmpty(r.Answer, r.Translation)
	if itemType == models.ItemFlashcard {
		prompt = cleanWord(prompt)
		answer = cleanWord(answer)
	}
	if prompt == "" {
		return models.CandidateItem{}, errors.New("prompt cannot be empty")
	}
	if answer == "" {
		return models.CandidateItem{}, errors.New("answer cannot be empty")
	}

	level := strings.ToUpper(firstNonEmpty(r.Level, cfg.DefaultLevel))
	id := firstNonEmpty(r.ItemID, r.ID)
	if id == "" {
		id = deriveID(itemType, level, prompt)
	}

	return models.CandidateItem{
		ItemID:      id,
		Type:        itemType,
		Level:       level,
		Category:    firstNonEmpty(r.Category, r.Topic),
		Prompt:      prompt,
		Answer:      answer,
		SubmittedAt: r.SubmittedAt,
	}, nil
}

// cleanWord removes trailing notes in brackets, as in "go (went, gone)".
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// deriveID builds a stable id for rows that do not carry one, e.g. "flashcard:b1:look-up".
func deriveID(t models.ItemType, level, prompt string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(prompt) {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		case strings.ContainsRune(".,!?;:\"'()[]", r):
		default:
			b.WriteRune(r)
			dash = false
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	return fmt.Sprintf("%s:%s:%s", t, strings.ToLower(level), slug)
}
