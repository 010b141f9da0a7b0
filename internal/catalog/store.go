package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"storyboard/internal/config"
)

// Store manages script, sentence, and image persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies the schema.
// Foreign-key enforcement is switched on explicitly so the script→sentence and
// sentence→image cascades actually fire.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns all scripts with their sentences and images, keyed by id at
// every level. Scripts are read in name order and sentences in insertion
// (rowid) order, matching the display order the frontend expects.
func (s *Store) Snapshot(ctx context.Context) (map[string]*Script, error) {
	scripts := make(map[string]*Script)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM scripts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		script := &Script{Sentences: make(map[string]*Sentence)}
		if err := rows.Scan(&script.ID, &script.Name); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		scripts[script.ID] = script
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}

	sentences := make(map[string]*Sentence)
	sentenceRows, err := s.db.QueryContext(ctx,
		`SELECT id, script_id, text, main_image_id FROM sentences ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	defer sentenceRows.Close()
	for sentenceRows.Next() {
		sentence := &Sentence{Images: make(map[string]*Image)}
		var mainImageID sql.NullString
		if err := sentenceRows.Scan(&sentence.ID, &sentence.ScriptID, &sentence.Text, &mainImageID); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		if mainImageID.Valid {
			sentence.MainImageID = &mainImageID.String
		}
		sentences[sentence.ID] = sentence
		if script, ok := scripts[sentence.ScriptID]; ok {
			script.Sentences[sentence.ID] = sentence
		}
	}
	if err := sentenceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentences: %w", err)
	}

	imageRows, err := s.db.QueryContext(ctx, `SELECT id, sentence_id, filename FROM images`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer imageRows.Close()
	for imageRows.Next() {
		image := &Image{}
		if err := imageRows.Scan(&image.ID, &image.SentenceID, &image.Filename); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		if sentence, ok := sentences[image.SentenceID]; ok {
			sentence.Images[image.ID] = image
		}
	}
	if err := imageRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return scripts, nil
}

// CreateScript inserts a new script with a generated id and no sentences.
func (s *Store) CreateScript(ctx context.Context, name string) (*Script, error) {
	script := &Script{
		ID:        uuid.NewString(),
		Name:      name,
		Sentences: make(map[string]*Sentence),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO scripts (id, name) VALUES (?, ?)`, script.ID, script.Name); err != nil {
		return nil, fmt.Errorf("insert script: %w", err)
	}
	return script, nil
}

// RenameScript updates a script's name. Unknown ids are a successful no-op.
func (s *Store) RenameScript(ctx context.Context, id, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE scripts SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("update script: %w", err)
	}
	return nil
}

// DeleteScript removes a script; the cascade removes its sentences and images.
// It returns the filenames of every image that lived under the script so the
// caller can clean the asset store after the delete commits.
func (s *Store) DeleteScript(ctx context.Context, id string) ([]string, error) {
	filenames, err := s.collectFilenames(ctx,
		`SELECT images.filename FROM images
         JOIN sentences ON images.sentence_id = sentences.id
         WHERE sentences.script_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete script: %w", err)
	}
	return filenames, nil
}

// CreateSentence inserts a new sentence under the given script with no images
// and no main image.
func (s *Store) CreateSentence(ctx context.Context, scriptID, text string) (*Sentence, error) {
	sentence := &Sentence{
		ID:       uuid.NewString(),
		ScriptID: scriptID,
		Text:     text,
		Images:   make(map[string]*Image),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sentences (id, script_id, text) VALUES (?, ?, ?)`,
		sentence.ID, sentence.ScriptID, sentence.Text); err != nil {
		return nil, fmt.Errorf("insert sentence: %w", err)
	}
	return sentence, nil
}

// UpdateSentence edits a sentence's text. Unknown ids are a successful no-op.
func (s *Store) UpdateSentence(ctx context.Context, id, text string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE sentences SET text = ? WHERE id = ?`, text, id); err != nil {
		return fmt.Errorf("update sentence: %w", err)
	}
	return nil
}

// DeleteSentence removes a sentence (the cascade removes its images) and
// returns the filenames of those images for asset cleanup.
func (s *Store) DeleteSentence(ctx context.Context, id string) ([]string, error) {
	filenames, err := s.collectFilenames(ctx,
		`SELECT filename FROM images WHERE sentence_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sentences WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete sentence: %w", err)
	}
	return filenames, nil
}

// SentenceExists reports whether a sentence id is present.
func (s *Store) SentenceExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sentences WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check sentence: %w", err)
	}
	return true, nil
}

// AddImage records an uploaded file as an image of the given sentence and
// guarantees the sentence ends up with a main image.
func (s *Store) AddImage(ctx context.Context, sentenceID, filename string) (*Image, error) {
	image := &Image{
		ID:         uuid.NewString(),
		SentenceID: sentenceID,
		Filename:   filename,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, sentence_id, filename) VALUES (?, ?, ?)`,
		image.ID, image.SentenceID, image.Filename); err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	if err := s.ensureMainImage(ctx, sentenceID); err != nil {
		return nil, err
	}
	return image, nil
}

// ensureMainImage assigns some image of the sentence as main when none is set.
func (s *Store) ensureMainImage(ctx context.Context, sentenceID string) error {
	var current sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT main_image_id FROM sentences WHERE id = ?`, sentenceID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read main image: %w", err)
	}
	if current.Valid {
		return nil
	}

	var candidate string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM images WHERE sentence_id = ? LIMIT 1`, sentenceID).Scan(&candidate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pick main image: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE sentences SET main_image_id = ? WHERE id = ?`, candidate, sentenceID); err != nil {
		return fmt.Errorf("assign main image: %w", err)
	}
	return nil
}

// DeleteImage removes an image row and returns its filename for asset cleanup.
// When the deleted image was its sentence's main image, the reference moves to
// any remaining image of the sentence, or to NULL when none remain. Returns
// ErrImageNotFound for unknown ids.
func (s *Store) DeleteImage(ctx context.Context, id string) (string, error) {
	var filename, sentenceID string
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, sentence_id FROM images WHERE id = ?`, id).Scan(&filename, &sentenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrImageNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get image: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete image: %w", err)
	}

	var current sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT main_image_id FROM sentences WHERE id = ?`, sentenceID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read main image: %w", err)
	}
	if current.Valid && current.String == id {
		var replacement sql.NullString
		err = s.db.QueryRowContext(ctx,
			`SELECT id FROM images WHERE sentence_id = ? LIMIT 1`, sentenceID).Scan(&replacement)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("pick replacement image: %w", err)
		}
		var value any
		if replacement.Valid {
			value = replacement.String
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sentences SET main_image_id = ? WHERE id = ?`, value, sentenceID); err != nil {
			return "", fmt.Errorf("reassign main image: %w", err)
		}
	}

	return filename, nil
}

// SetMainImage designates the image as its sentence's main image, overwriting
// any previous designation. Returns ErrImageNotFound for unknown ids.
func (s *Store) SetMainImage(ctx context.Context, id string) error {
	var sentenceID string
	err := s.db.QueryRowContext(ctx,
		`SELECT sentence_id FROM images WHERE id = ?`, id).Scan(&sentenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrImageNotFound
	}
	if err != nil {
		return fmt.Errorf("get image: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE sentences SET main_image_id = ? WHERE id = ?`, id, sentenceID); err != nil {
		return fmt.Errorf("set main image: %w", err)
	}
	return nil
}

// Filenames returns every filename referenced by an image row. The orphan
// sweep compares this set against the upload directory contents.
func (s *Store) Filenames(ctx context.Context) ([]string, error) {
	return s.collectFilenames(ctx, `SELECT filename FROM images`)
}

// Stats returns per-script sentence and image counts in name order.
func (s *Store) Stats(ctx context.Context) ([]ScriptStats, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT scripts.id, scripts.name,
               COUNT(DISTINCT sentences.id),
               COUNT(images.id)
        FROM scripts
        LEFT JOIN sentences ON sentences.script_id = scripts.id
        LEFT JOIN images ON images.sentence_id = sentences.id
        GROUP BY scripts.id
        ORDER BY scripts.name`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats []ScriptStats
	for rows.Next() {
		var entry ScriptStats
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Sentences, &entry.Images); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, entry)
	}
	return stats, rows.Err()
}

func (s *Store) collectFilenames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query filenames: %w", err)
	}
	defer rows.Close()

	var filenames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		filenames = append(filenames, name)
	}
	return filenames, rows.Err()
}
