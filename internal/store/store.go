// Package store is the SQLite-backed corpus: translations, books and verse
// text, read by the search engine and written only by ingestion.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/core/sqlite"
)

//go:embed schema.sql
var schema string

// Store is a corpus database. It implements search.Corpus.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool

	mu          sync.Mutex
	fingerprint string
}

var _ search.Corpus = (*Store)(nil)

// Open opens or creates the corpus database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return initStore(ctx, db, path, false)
}

// OpenReadOnly opens an existing corpus database without write access.
func OpenReadOnly(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	s := &Store{db: db, path: path, readOnly: true}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	return s, nil
}

// OpenMemory creates an empty in-memory corpus.
func OpenMemory(ctx context.Context) (*Store, error) {
	db, err := sqlite.OpenMemory()
	if err != nil {
		return nil, errors.NewIO("open", ":memory:", err)
	}
	return initStore(ctx, db, ":memory:", false)
}

func initStore(ctx context.Context, db *sql.DB, path string, readOnly bool) (*Store, error) {
	s := &Store{db: db, path: path, readOnly: readOnly}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// migrate creates the schema and seeds the canon.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO books (code, osis, name, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range canon.Books() {
		if _, err := stmt.ExecContext(ctx, b.Code, b.OSIS, b.Name, b.Order); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// GetVerse implements search.Corpus.
func (s *Store) GetVerse(ctx context.Context, translation, book string, chapter, verse int) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM verses WHERE translation = ? AND book = ? AND chapter = ? AND verse = ?`,
		translation, book, chapter, verse).Scan(&text)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// ReadChapter implements search.Corpus.
func (s *Store) ReadChapter(ctx context.Context, translation, book string, chapter, first, last int, fn func(search.Verse) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT verse, text FROM verses
		WHERE translation = ? AND book = ? AND chapter = ? AND verse >= ? AND (? < 1 OR verse <= ?)
		ORDER BY verse`, translation, book, chapter, first, last, last)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v := search.Verse{Coordinate: search.Coordinate{Translation: translation, Book: book, Chapter: chapter}}
		if err := rows.Scan(&v.Verse, &v.Text); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// EnabledTranslations implements search.Corpus.
func (s *Store) EnabledTranslations(ctx context.Context) ([]search.Translation, error) {
	all, err := s.Translations(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}

// Translations lists every translation in rank order, enabled or not.
func (s *Store) Translations(ctx context.Context) ([]search.Translation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, enabled, rank FROM translations ORDER BY rank, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []search.Translation
	for rows.Next() {
		var t search.Translation
		if err := rows.Scan(&t.ID, &t.Name, &t.Enabled, &t.Rank); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// BookOrder implements search.Corpus.
func (s *Store) BookOrder() []string {
	return canon.Order()
}

// CanonicalBookName implements search.Corpus.
func (s *Store) CanonicalBookName(book string) string {
	return canon.Name(book)
}

// LookupBook implements search.Corpus.
func (s *Store) LookupBook(token string) (string, bool) {
	return canon.Lookup(token)
}

// Scan implements search.Corpus.
func (s *Store) Scan(ctx context.Context, translation string, fn func(search.Verse) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.book, v.chapter, v.verse, v.text
		FROM verses v JOIN books b ON b.code = v.book
		WHERE v.translation = ?
		ORDER BY b.position, v.chapter, v.verse`, translation)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v := search.Verse{Coordinate: search.Coordinate{Translation: translation}}
		if err := rows.Scan(&v.Book, &v.Chapter, &v.Verse, &v.Text); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// PutTranslation inserts or updates translation metadata. New translations
// rank after every existing one unless t.Rank is set.
func (s *Store) PutTranslation(ctx context.Context, t search.Translation) error {
	if err := ValidateTranslationID(t.ID); err != nil {
		return err
	}
	rank := t.Rank
	if rank == 0 {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COALESCE((SELECT rank FROM translations WHERE id = ?), COALESCE(MAX(rank), 0) + 1) FROM translations`,
			t.ID).Scan(&rank); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO translations (id, name, enabled, rank) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, rank = excluded.rank`,
		t.ID, t.Name, true, rank)
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// SetEnabled toggles whether a translation is searched by default.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE translations SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("translation", id)
	}
	s.invalidate()
	return nil
}

// SetOrder assigns ranks 1..n to ids in the given order. Translations not
// listed keep their relative order after them.
func (s *Store) SetOrder(ctx context.Context, ids []string) error {
	all, err := s.Translations(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(all))
	for _, t := range all {
		known[t.ID] = true
	}
	order := make([]string, 0, len(all))
	listed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return errors.NewNotFound("translation", id)
		}
		if !listed[id] {
			listed[id] = true
			order = append(order, id)
		}
	}
	for _, t := range all {
		if !listed[t.ID] {
			order = append(order, t.ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, id := range order {
		if _, err := tx.ExecContext(ctx, `UPDATE translations SET rank = ? WHERE id = ?`, i+1, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// DeleteTranslation removes a translation and its verses.
func (s *Store) DeleteTranslation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("translation", id)
	}
	s.invalidate()
	return nil
}

// ReplaceVerses atomically replaces every verse of a translation. The
// translation must exist.
func (s *Store) ReplaceVerses(ctx context.Context, translation string, verses []search.Verse) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM verses WHERE translation = ?`, translation); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO verses (translation, book, chapter, verse, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, v := range verses {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, translation, v.Book, v.Chapter, v.Verse, v.Text); err != nil {
			return 0, errors.Wrapf(err, "insert %s %d:%d", v.Book, v.Chapter, v.Verse)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.invalidate()
	return len(verses), nil
}

// Stats summarizes the corpus.
type Stats struct {
	Translations int `json:"translations"`
	Verses       int `json:"verses"`
}

// Stats counts translations and verses.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM translations), (SELECT COUNT(*) FROM verses)`).
		Scan(&st.Translations, &st.Verses)
	return st, err
}

// VerseCount returns the number of verses stored for a translation.
func (s *Store) VerseCount(ctx context.Context, translation string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses WHERE translation = ?`, translation).Scan(&n)
	return n, err
}

// Fingerprint returns a BLAKE3 digest of the corpus contents and
// translation metadata. It changes whenever a write changes the corpus.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fingerprint != "" {
		return s.fingerprint, nil
	}

	h := blake3.New()
	translations, err := s.Translations(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range translations {
		fmt.Fprintf(h, "T\x00%s\x00%s\x00%t\x00%d\n", t.ID, t.Name, t.Enabled, t.Rank)
		err := s.Scan(ctx, t.ID, func(v search.Verse) error {
			_, err := fmt.Fprintf(h, "V\x00%s\x00%d\x00%d\x00%s\n", v.Book, v.Chapter, v.Verse, v.Text)
			return err
		})
		if err != nil {
			return "", err
		}
	}
	s.fingerprint = hex.EncodeToString(h.Sum(nil))
	return s.fingerprint, nil
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.fingerprint = ""
	s.mu.Unlock()
}

// ValidateTranslationID checks the three-letter translation id rule.
func ValidateTranslationID(id string) error {
	if len(id) != 3 {
		return errors.NewValidation("translation", fmt.Sprintf("id %q must be exactly 3 letters", id))
	}
	for _, r := range id {
		if !('A' <= r && r <= 'Z' || 'a' <= r && r <= 'z') {
			return errors.NewValidation("translation", fmt.Sprintf("id %q must be exactly 3 letters", id))
		}
	}
	return nil
}

// NormalizeTranslationID upper-cases an id and cuts it to three letters.
func NormalizeTranslationID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) > 3 {
		id = id[:3]
	}
	return id
}
