package models

import (
	"sort"
	"time"
)

// Upload is the metadata record of one user-uploaded image.
type Upload struct {
	ID              string    `json:"id"`
	ImageURL        string    `json:"imageUrl"`
	FilePath        string    `json:"filePath"`
	Title           string    `json:"title"`
	Text            string    `json:"text"`
	OwnerID         string    `json:"userId"`
	CreatedAtMs     int64     `json:"createdAt"`
	ServerCreatedAt time.Time `json:"serverCreatedAt"`
}

// SortKey is the client timestamp, or the server timestamp when the client
// did not stamp the record.
func (u Upload) SortKey() int64 {
	if u.CreatedAtMs != 0 {
		return u.CreatedAtMs
	}
	if u.ServerCreatedAt.IsZero() {
		return 0
	}
	return u.ServerCreatedAt.UnixMilli()
}

// SortUploads orders newest first; equal timestamps are ordered by ID.
func SortUploads(list []Upload) {
	sort.SliceStable(list, func(i, j int) bool {
		ki, kj := list[i].SortKey(), list[j].SortKey()
		if ki != kj {
			return ki > kj
		}
		return list[i].ID < list[j].ID
	})
}
