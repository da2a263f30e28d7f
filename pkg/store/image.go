package store

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// ImageCreate records an image row pointing at an already-written
// blob.
func ImageCreate(ctx context.Context, db DBTX, mimeType, blobKey string) (sonar.Image, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO image (mime_type, blob_key) VALUES (?, ?)`, mimeType, blobKey)
	if err != nil {
		return sonar.Image{}, dbErr("create image", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Image{}, dbErr("create image", err)
	}
	return ImageGet(ctx, db, sonar.ImageID(rowID))
}

// ImageGet returns one image row or NotFound.
func ImageGet(ctx context.Context, db DBTX, id sonar.ImageID) (sonar.Image, error) {
	var img sonar.Image
	var rowID int64
	err := db.QueryRowContext(ctx,
		`SELECT id, mime_type, blob_key FROM image WHERE id = ?`, int64(id)).
		Scan(&rowID, &img.MimeType, &img.BlobKey)
	if err != nil {
		return sonar.Image{}, getErr("image", id, err)
	}
	img.ID = sonar.ImageID(rowID)
	return img, nil
}

// ImageDelete removes the image row. The caller deletes the blob.
func ImageDelete(ctx context.Context, db DBTX, id sonar.ImageID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM image WHERE id = ?`, int64(id))
	return dbErr("delete image", err)
}
