package persistence

import "time"

// HistoryEntry is one finished translation.
type HistoryEntry struct {
	ID               string    `json:"id"`
	SourceLanguage   string    `json:"source_language"`
	TargetLanguage   string    `json:"target_language"`
	FileName         string    `json:"file_name"`
	TranslatedName   string    `json:"translated_name"`
	SizeBytes        int64     `json:"size_bytes"`
	BilledCharacters int       `json:"billed_characters"`
	StorageRef       string    `json:"storage_ref"`
	CreatedAt        time.Time `json:"created_at"`
}
