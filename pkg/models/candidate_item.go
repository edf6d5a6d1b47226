package models

import (
	"encoding/json"
	"time"
)

// ItemType distinguishes the kinds of practice content.
type ItemType string

const (
	ItemFlashcard ItemType = "flashcard"
	ItemSentence  ItemType = "sentence"
)

// IsValid reports whether t is a known item type.
func (t ItemType) IsValid() bool {
	return t == ItemFlashcard || t == ItemSentence
}

// CandidateItem is a piece of practice content owned by the content catalog.
type CandidateItem struct {
	ItemID      string          `json:"item_id" db:"item_id"`
	Type        ItemType        `json:"type" db:"item_type"`
	Level       string          `json:"level" db:"level"`
	Category    string          `json:"category" db:"category"`
	Prompt      string          `json:"prompt" db:"prompt"`
	Answer      string          `json:"answer" db:"answer"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"-"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty" db:"-"`
}
