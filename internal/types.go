package internal

import (
	"time"

	"github.com/valpere/bardtran/internal/quote"
)

// TranslationRecord is one persisted translation of a session.
type TranslationRecord struct {
	ID        string                  `json:"id"`
	SessionID string                  `json:"session_id"`
	Result    quote.TranslationResult `json:"result"`
	CreatedAt time.Time               `json:"created_at"`
}

// SessionInfo summarises one translation session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Spans        int       `json:"spans"`
	Translations int       `json:"translations"`
	UpdatedAt    time.Time `json:"updated_at"`
}
