package content

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
)

const sampleTSV = `# book	chapter	verse	text
Jn	3	16	For God so loved the world
Jn	3	17	For God sent not his Son
jn	3	18	He that believeth on him
Jn	4	1	When therefore the Lord knew
Mt	5	3	Blessed are the poor in spirit
`

// parseRefs returns the references of query against the default registry.
func parseRefs(t *testing.T, query string) []refparse.Reference {
	t.Helper()
	res := refparse.Parse(query, refparse.DefaultRegistry(), refparse.Options{})
	if res.Empty() {
		t.Fatalf("Parse(%q) found no references", query)
	}
	return res.References
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "verses.db"))
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestStoreImportAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	res, err := s.ImportFile(ctx, writeFile(t, "sample.tsv", sampleTSV))
	if err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}
	if res.Rows != 5 || res.Skipped {
		t.Errorf("ImportFile() = %+v, want 5 rows", res)
	}
	if len(res.Fingerprint) != 64 {
		t.Errorf("Fingerprint = %q, want 64 hex chars", res.Fingerprint)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"Jn 3:16", []string{"For God so loved the world"}},
		{"Jn 3:17-18", []string{"For God sent not his Son", "He that believeth on him"}},
		{"Jn 3:16-99", []string{"For God so loved the world", "For God sent not his Son", "He that believeth on him"}},
		{"Jn 4", []string{"When therefore the Lord knew"}},
		{"Mt 5:3", []string{"Blessed are the poor in spirit"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ref := parseRefs(t, tt.query)[0]
			got, err := s.Lookup(ctx, ref)
			if err != nil {
				t.Fatalf("Lookup() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%s) = %q, want %q", ref, got, tt.want)
			}
		})
	}
}

func TestStoreLookupNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Lookup(context.Background(), parseRefs(t, "Mc 1:1")[0])
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Lookup() error = %v, want ErrNotFound", err)
	}
}

func TestOpenStoreReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "verses.db")

	if _, err := OpenStoreReadOnly(ctx, path); err == nil {
		t.Fatal("OpenStoreReadOnly() on missing database should fail")
	}

	s, err := OpenStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	if _, err := s.ImportFile(ctx, writeFile(t, "sample.tsv", sampleTSV)); err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}
	s.Close()

	ro, err := OpenStoreReadOnly(ctx, path)
	if err != nil {
		t.Fatalf("OpenStoreReadOnly() error: %v", err)
	}
	defer ro.Close()

	got, err := ro.Lookup(ctx, parseRefs(t, "Mt 5:3")[0])
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if len(got) != 1 || got[0] != "Blessed are the poor in spirit" {
		t.Errorf("Lookup() = %q", got)
	}
}

func TestStoreImportSkipsKnownFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	path := writeFile(t, "sample.tsv", sampleTSV)

	if _, err := s.ImportFile(ctx, path); err != nil {
		t.Fatalf("first ImportFile() error: %v", err)
	}
	res, err := s.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("second ImportFile() error: %v", err)
	}
	if !res.Skipped || res.Rows != 0 {
		t.Errorf("second ImportFile() = %+v, want skipped", res)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}
}

func TestStoreImportXZ(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "sample.tsv.xz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz.NewWriter() error: %v", err)
	}
	if _, err := w.Write([]byte(sampleTSV)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	res, err := s.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}
	if res.Rows != 5 {
		t.Errorf("Rows = %d, want 5", res.Rows)
	}

	got, err := s.Lookup(ctx, parseRefs(t, "Jn 3:18")[0])
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if len(got) != 1 || got[0] != "He that believeth on him" {
		t.Errorf("Lookup() = %q", got)
	}
}

func TestStoreImportRejectsBadRows(t *testing.T) {
	tests := map[string]string{
		"missing column": "Jn\t3\tFor God\n",
		"bad chapter":    "Jn\tthree\t16\tFor God\n",
		"zero verse":     "Jn\t3\t0\tFor God\n",
		"empty book":     "\t3\t16\tFor God\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.ImportFile(context.Background(), writeFile(t, "bad.tsv", data))
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Fatalf("ImportFile() error = %v, want ErrInvalidInput", err)
			}

			// A failed import leaves nothing behind
			n, _ := s.Count(context.Background())
			if n != 0 {
				t.Errorf("Count() = %d after failed import", n)
			}
		})
	}
}

func TestStoreImportRejectsWrongFileType(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"gzip", "\x1f\x8b\x08\x00\x00\x00"},
		{"sqlite", "SQLite format 3\x00"},
		{"binary", "\x00\x01\x02\x03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.ImportFile(context.Background(), writeFile(t, "verses.tsv", tt.data))
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("ImportFile() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	s := newTestStore(t)
	_, err := s.ImportFile(context.Background(), writeFile(t, "plain.tsv.xz", sampleTSV))
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ImportFile() on uncompressed .xz error = %v, want ErrInvalidInput", err)
	}
}

func TestStoreImportMissingFile(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.tsv"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("ImportFile() error = %v, want *IOError", err)
	}
}
