package content

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/validation"
)

// ImportResult describes one ImportFile call.
type ImportResult struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Rows        int    `json:"rows"`
	Skipped     bool   `json:"skipped"` // already imported
}

// ImportFile loads a tab-separated verse file (book, chapter, verse, text)
// into the store. xz-compressed files are detected by content and
// decompressed; other binary formats are rejected. Lines starting
// with "#" are comments. A file whose BLAKE3 fingerprint was already
// imported is skipped. Book codes are canonicalized.
func (s *Store) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	fp, err := fingerprintFile(path)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{Path: path, Fingerprint: fp}

	var seen int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM imports WHERE fingerprint = ?`, fp).Scan(&seen)
	if err != nil {
		return nil, errors.NewIO("query imports", s.path, err)
	}
	if seen > 0 {
		res.Skipped = true
		return res, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	kind, err := validation.SniffImport(br, path)
	if err != nil {
		return nil, errors.NewParse("TSV", path, err.Error())
	}

	var r io.Reader = br
	if kind == validation.FileTypeXZ {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
	}

	n, err := s.importTSV(ctx, r, path, fp)
	if err != nil {
		return nil, err
	}
	res.Rows = n
	return res, nil
}

// importTSV inserts every row and records the fingerprint in one
// transaction.
func (s *Store) importTSV(ctx context.Context, r io.Reader, path, fingerprint string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewIO("begin import", s.path, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO verses (book, chapter, verse, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.NewIO("prepare import", s.path, err)
	}
	defer stmt.Close()

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = 4
	cr.ReuseRecord = true

	rows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.NewParse("TSV", path, err.Error())
		}

		line, _ := cr.FieldPos(0)
		v, err := parseVerseRow(rec)
		if err != nil {
			return 0, errors.NewParse("TSV", path, fmt.Sprintf("line %d: %v", line, err))
		}
		if _, err := stmt.ExecContext(ctx, v.book, v.chapter, v.verse, v.text); err != nil {
			return 0, errors.NewIO("insert", s.path, err)
		}
		rows++
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO imports (fingerprint, path, rows, imported_at) VALUES (?, ?, ?, ?)`,
		fingerprint, path, rows, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, errors.NewIO("record import", s.path, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewIO("commit import", s.path, err)
	}
	return rows, nil
}

type verseRow struct {
	book    string
	chapter int
	verse   int
	text    string
}

func parseVerseRow(rec []string) (verseRow, error) {
	book := strings.TrimSpace(rec[0])
	if book == "" {
		return verseRow{}, fmt.Errorf("empty book code")
	}
	chapter, err := strconv.Atoi(strings.TrimSpace(rec[1]))
	if err != nil || chapter < 1 {
		return verseRow{}, fmt.Errorf("invalid chapter %q", rec[1])
	}
	verse, err := strconv.Atoi(strings.TrimSpace(rec[2]))
	if err != nil || verse < 1 {
		return verseRow{}, fmt.Errorf("invalid verse %q", rec[2])
	}
	return verseRow{
		book:    refparse.CanonicalCode(book),
		chapter: chapter,
		verse:   verse,
		text:    rec[3],
	}, nil
}

// fingerprintFile returns the hex BLAKE3 digest of the file as stored.
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
