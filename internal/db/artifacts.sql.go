// source: artifacts.sql

package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const artifactColumns = `id, caption, start_seconds, end_seconds, size_bytes, has_caption, storage_key, content_type, source, prompt, created_at`

func scanArtifact(row interface{ Scan(...any) error }) (*Artifact, error) {
	var i Artifact
	err := row.Scan(
		&i.ID,
		&i.Caption,
		&i.StartSeconds,
		&i.EndSeconds,
		&i.SizeBytes,
		&i.HasCaption,
		&i.StorageKey,
		&i.ContentType,
		&i.Source,
		&i.Prompt,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

const insertArtifact = `-- name: InsertArtifact :one
INSERT INTO artifacts (id, caption, start_seconds, end_seconds, size_bytes, has_caption, storage_key, content_type, source, prompt)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + artifactColumns

type InsertArtifactParams struct {
	ID           pgtype.UUID `json:"id"`
	Caption      string      `json:"caption"`
	StartSeconds float64     `json:"start_seconds"`
	EndSeconds   float64     `json:"end_seconds"`
	SizeBytes    int64       `json:"size_bytes"`
	HasCaption   bool        `json:"has_caption"`
	StorageKey   string      `json:"storage_key"`
	ContentType  string      `json:"content_type"`
	Source       string      `json:"source"`
	Prompt       string      `json:"prompt"`
}

func (q *Queries) InsertArtifact(ctx context.Context, arg *InsertArtifactParams) (*Artifact, error) {
	row := q.db.QueryRow(ctx, insertArtifact,
		arg.ID,
		arg.Caption,
		arg.StartSeconds,
		arg.EndSeconds,
		arg.SizeBytes,
		arg.HasCaption,
		arg.StorageKey,
		arg.ContentType,
		arg.Source,
		arg.Prompt,
	)
	return scanArtifact(row)
}

const getArtifact = `-- name: GetArtifact :one
SELECT ` + artifactColumns + ` FROM artifacts WHERE id = $1`

func (q *Queries) GetArtifact(ctx context.Context, id pgtype.UUID) (*Artifact, error) {
	return scanArtifact(q.db.QueryRow(ctx, getArtifact, id))
}

const listRecentArtifacts = `-- name: ListRecentArtifacts :many
SELECT ` + artifactColumns + ` FROM artifacts ORDER BY created_at DESC LIMIT $1`

func (q *Queries) ListRecentArtifacts(ctx context.Context, limit int32) ([]*Artifact, error) {
	rows, err := q.db.Query(ctx, listRecentArtifacts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Artifact{}
	for rows.Next() {
		i, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteArtifact = `-- name: DeleteArtifact :exec
DELETE FROM artifacts WHERE id = $1`

func (q *Queries) DeleteArtifact(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteArtifact, id)
	return err
}
