package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const DefaultCollection CollectionKey = "items"

var collectionKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// CollectionKey names a remote list endpoint and its local cache table.
type CollectionKey string

func (k CollectionKey) Validate() error {
	if !collectionKeyPattern.MatchString(string(k)) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, string(k))
	}

	return nil
}

type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	return nil
}

type CachedRecord struct {
	Record
	CachedAt time.Time
}

func NewCachedRecords(records []Record, cachedAt time.Time) []CachedRecord {
	cached := make([]CachedRecord, 0, len(records))
	for _, record := range records {
		cached = append(cached, CachedRecord{Record: record, CachedAt: cachedAt})
	}

	return cached
}

func RecordsFromCache(cached []CachedRecord) []Record {
	records := make([]Record, 0, len(cached))
	for _, entry := range cached {
		records = append(records, entry.Record)
	}

	return records
}
