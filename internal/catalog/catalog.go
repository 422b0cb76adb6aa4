package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jbsn-app/file-service/internal/models"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no file record matches the requested id.
var ErrNotFound = errors.New("file not found")

// Catalog is the metadata store for file records and their tags. It is
// opened once at startup and passed by handle to everything that needs it.
type Catalog struct {
	db     *sql.DB
	driver string
}

// Open connects to the catalog database, verifies the connection and
// creates the schema if it does not exist yet. driver is "sqlite" or
// "postgres".
func Open(driver, dsn string) (*Catalog, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer; funnel everything through one
		// connection to serialize writes.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	c := &Catalog{db: db, driver: driver}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return c, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createTables() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if c.driver == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS files (
		id %s,
		filename TEXT NOT NULL UNIQUE,
		original_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		file_hash TEXT NOT NULL,
		upload_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'uploaded',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS file_tags (
		id %s,
		file_id BIGINT NOT NULL,
		tag TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_upload_date ON files(upload_date DESC);
	CREATE INDEX IF NOT EXISTS idx_file_tags_file_id ON file_tags(file_id);
	`, idColumn, idColumn)

	_, err := c.db.Exec(query)
	return err
}

// rebind rewrites ? placeholders to the $n form expected by postgres.
func (c *Catalog) rebind(query string) string {
	if c.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const insertQuery = `
	INSERT INTO files (filename, original_name, file_type, file_size, file_hash, upload_date, status, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Insert persists a new file record and returns its assigned id. The
// record's ID field is updated in place. Status defaults to "uploaded"
// when the caller leaves it empty.
func (c *Catalog) Insert(ctx context.Context, rec *models.FileRecord) (int64, error) {
	if rec.Status == "" {
		rec.Status = "uploaded"
	}

	args := []interface{}{
		rec.StoredName,
		rec.OriginalName,
		rec.FileType,
		rec.FileSize,
		rec.FileHash,
		rec.UploadDate,
		rec.Status,
		rec.Notes,
	}

	var id int64
	if c.driver == "postgres" {
		err := c.db.QueryRowContext(ctx, c.rebind(insertQuery+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert file record: %w", err)
		}
	} else {
		res, err := c.db.ExecContext(ctx, insertQuery, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert file record: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read inserted id: %w", err)
		}
	}

	rec.ID = id
	return id, nil
}

const selectColumns = `id, filename, original_name, file_type, file_size, file_hash, upload_date, status, notes`

// List returns all file records, most recent upload first. Ties on the
// upload date fall back to descending id so the order is stable.
func (c *Catalog) List(ctx context.Context) ([]models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files ORDER BY upload_date DESC, id DESC`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := []models.FileRecord{}
	for rows.Next() {
		var rec models.FileRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		files = append(files, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := c.attachTags(ctx, files); err != nil {
		return nil, err
	}
	return files, nil
}

// Get returns the file record with the given id, or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, id int64) (models.FileRecord, error) {
	query := c.rebind(`SELECT ` + selectColumns + ` FROM files WHERE id = ?`)

	var rec models.FileRecord
	row := c.db.QueryRowContext(ctx, query, id)
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FileRecord{}, ErrNotFound
		}
		return models.FileRecord{}, fmt.Errorf("failed to get file record: %w", err)
	}

	tags, err := c.TagsFor(ctx, id)
	if err != nil {
		return models.FileRecord{}, err
	}
	rec.Tags = tags
	return rec, nil
}

// Delete removes the file record and its tag rows. The record row is
// removed first; the tag cleanup is attempted even though orphaned tags
// cannot be reached once the record is gone.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM files WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM file_tags WHERE file_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete file tags: %w", err)
	}
	return nil
}

// Stats returns the row count, total stored bytes and a per-type count
// for the types currently present.
func (c *Catalog) Stats(ctx context.Context) (models.Stats, error) {
	stats := models.Stats{ByType: map[string]int64{}}

	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return models.Stats{}, fmt.Errorf("failed to count files: %w", err)
	}

	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(file_size), 0) FROM files`).Scan(&stats.TotalSize); err != nil {
		return models.Stats{}, fmt.Errorf("failed to sum file sizes: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT file_type, COUNT(*) FROM files GROUP BY file_type`)
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to count files by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileType string
		var count int64
		if err := rows.Scan(&fileType, &count); err != nil {
			return models.Stats{}, err
		}
		stats.ByType[fileType] = count
	}
	return stats, rows.Err()
}

// SetTags replaces the tag rows for a file record.
func (c *Catalog) SetTags(ctx context.Context, id int64, tags []string) error {
	if _, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM file_tags WHERE file_id = ?`), id); err != nil {
		return fmt.Errorf("failed to clear file tags: %w", err)
	}
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, err := c.db.ExecContext(ctx, c.rebind(`INSERT INTO file_tags (file_id, tag) VALUES (?, ?)`), id, tag); err != nil {
			return fmt.Errorf("failed to insert file tag: %w", err)
		}
	}
	return nil
}

// TagsFor returns the tags attached to a file record, in insertion order.
func (c *Catalog) TagsFor(ctx context.Context, id int64) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(`SELECT tag FROM file_tags WHERE file_id = ? ORDER BY id`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query file tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateStatus sets the lifecycle status of a file record.
func (c *Catalog) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := c.db.ExecContext(ctx, c.rebind(`UPDATE files SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Catalog) attachTags(ctx context.Context, files []models.FileRecord) error {
	if len(files) == 0 {
		return nil
	}

	rows, err := c.db.QueryContext(ctx, `SELECT file_id, tag FROM file_tags ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query file tags: %w", err)
	}
	defer rows.Close()

	tagsByID := map[int64][]string{}
	for rows.Next() {
		var fileID int64
		var tag string
		if err := rows.Scan(&fileID, &tag); err != nil {
			return err
		}
		tagsByID[fileID] = append(tagsByID[fileID], tag)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range files {
		files[i].Tags = tagsByID[files[i].ID]
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner, rec *models.FileRecord) error {
	return s.Scan(
		&rec.ID,
		&rec.StoredName,
		&rec.OriginalName,
		&rec.FileType,
		&rec.FileSize,
		&rec.FileHash,
		&rec.UploadDate,
		&rec.Status,
		&rec.Notes,
	)
}
