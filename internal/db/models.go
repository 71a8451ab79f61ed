package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Artifact struct {
	ID           pgtype.UUID        `json:"id"`
	Caption      string             `json:"caption"`
	StartSeconds float64            `json:"start_seconds"`
	EndSeconds   float64            `json:"end_seconds"`
	SizeBytes    int64              `json:"size_bytes"`
	HasCaption   bool               `json:"has_caption"`
	StorageKey   string             `json:"storage_key"`
	ContentType  string             `json:"content_type"`
	Source       string             `json:"source"`
	Prompt       string             `json:"prompt"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type Cookie struct {
	ID         int64  `json:"id"`
	Domain     string `json:"domain"`
	Flag       string `json:"flag"`
	Path       string `json:"path"`
	Secure     string `json:"secure"`
	Expiration int64  `json:"expiration"`
	Name       string `json:"name"`
	Value      string `json:"value"`
}
