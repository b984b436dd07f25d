// Package models defines the catalog types shared by storage, index and api.
package models

import "time"

// DocumentMeta is the lightweight preview of a *.kanban.json file returned
// by list operations.
type DocumentMeta struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}
