package library

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populate builds a store with books, members, current loans, history,
// ratings and a fine.
func populate(t *testing.T, p Persister) *Store {
	t.Helper()
	s, err := NewStore(p)
	require.NoError(t, err)
	clock := newFakeClock()
	l := NewLending(s, DefaultPolicy(), clock.Now)

	mustAddBook(t, s, "222", "Emma", "Classic", 2)
	mustAddBook(t, s, "111", "Dune", "Sci-Fi", 3)
	mustAddBook(t, s, "333", "Beloved", "Fiction", 1)
	alice := mustRegister(t, s, "Alice")
	bob := mustRegister(t, s, "Bob")

	require.NoError(t, l.Borrow(alice, "111"))
	require.NoError(t, l.Borrow(bob, "111"))
	clock.advanceDays(20)
	_, err = l.ReturnBook(alice, "111")
	require.NoError(t, err)
	require.NoError(t, l.RateBook(alice, "111", 4))
	require.NoError(t, l.Borrow(bob, "222"))
	return s
}

func TestJSONFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := populate(t, NewJSONFiles(dir))

	reloaded, err := NewStore(NewJSONFiles(dir))
	require.NoError(t, err)
	assert.Equal(t, original.Snapshot(), reloaded.Snapshot())

	for _, b := range reloaded.ListBooks() {
		assert.GreaterOrEqual(t, b.AvailableCopies, 0)
	}
	assert.Equal(t, []string{"222", "111", "333"}, isbnsOf(reloaded.ListBooks()))
}

func TestJSONFilesMissingIsEmpty(t *testing.T) {
	p := NewJSONFiles(filepath.Join(t.TempDir(), "not-yet"))
	snap, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Books)
	assert.Empty(t, snap.Members)

	// first save creates the directory
	require.NoError(t, p.Save(&Snapshot{}))
	_, err = os.Stat(p.BooksPath)
	require.NoError(t, err)
}

func TestJSONFilesReadsKeyedDocuments(t *testing.T) {
	dir := t.TempDir()
	books := `{
    "222": {"title": "Emma", "author": "Austen", "isbn": "222", "category": "Classic",
            "total_copies": 1, "available_copies": 0, "borrowers": ["12345"], "ratings": [5]},
    "111": {"title": "Dune", "author": "Herbert", "isbn": "111", "category": "Sci-Fi",
            "total_copies": 2, "available_copies": 2, "borrowers": [], "ratings": []}
}`
	members := `{
    "12345": {"name": "Alice", "member_id": "12345",
              "borrowed_books": {"222": "2024-02-20"},
              "history": [{"isbn": "111", "title": "Dune", "borrow_date": "2024-01-01",
                           "return_date": "2024-01-20", "fine": 5.0}],
              "fines": 5.0}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(books), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MembersFile), []byte(members), 0o644))

	s, err := NewStore(NewJSONFiles(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, isbnsOf(s.ListBooks()))

	m, err := s.FindMember("12345")
	require.NoError(t, err)
	assert.Equal(t, Dollars(5), m.Fines)
	assert.Equal(t, NewDate(2024, 2, 20), m.CurrentLoans["222"])
	require.Len(t, m.History, 1)
	assert.Equal(t, NewDate(2024, 1, 20), m.History[0].ReturnDate)
	assert.Equal(t, Dollars(5), m.History[0].Fine)
}

func TestJSONFilesRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(`[{"isbn": `), 0o644))

	_, err := NewStore(NewJSONFiles(dir))
	require.Error(t, err)
}

func TestJSONFilesRejectsInconsistentState(t *testing.T) {
	dune := func(avail int, borrowers string) string {
		return `[{"isbn": "111", "title": "Dune", "author": "Herbert", "category": "Sci-Fi",
            "total_copies": 1, "available_copies": ` + strconv.Itoa(avail) + `, "borrowers": ` + borrowers + `, "ratings": []}]`
	}
	alice := func(loans, fines string) string {
		return `[{"member_id": "12345", "name": "Alice", "current_loans": ` + loans + `, "history": [], "fines": ` + fines + `}]`
	}

	tests := []struct {
		name    string
		books   string
		members string
	}{
		{"loan missing from borrowers", dune(1, `[]`), alice(`{"111": "2024-03-01"}`, "0")},
		{"borrower without loan", dune(0, `["12345"]`), alice(`{}`, "0")},
		{"more available than total", dune(2, `[]`), alice(`{}`, "0")},
		{"negative available", `[{"isbn": "111", "title": "Dune", "total_copies": 0, "available_copies": -1, "borrowers": [], "ratings": []}]`, `[]`},
		{"loan of unknown book", `[]`, alice(`{"999": "2024-03-01"}`, "0")},
		{"negative fines", dune(1, `[]`), alice(`{}`, "-2.50")},
		{"returned before borrowed", `[]`, `[{"member_id": "12345", "name": "Alice", "current_loans": {}, "fines": 0,
            "history": [{"isbn": "111", "title": "Dune", "borrow_date": "2024-03-10", "return_date": "2024-03-01", "fine": 0}]}]`},
		{"rating out of range", `[{"isbn": "111", "title": "Dune", "total_copies": 1, "available_copies": 1, "borrowers": [], "ratings": [9]}]`, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(tt.books), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, MembersFile), []byte(tt.members), 0o644))

			_, err := NewStore(NewJSONFiles(dir))
			require.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestJSONFilesFailedSaveKeepsBothDocuments(t *testing.T) {
	dir := t.TempDir()
	populate(t, NewJSONFiles(dir))
	before, err := os.ReadFile(filepath.Join(dir, BooksFile))
	require.NoError(t, err)

	// a regular file where the members directory should be
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	p := &JSONFiles{
		BooksPath:   filepath.Join(dir, BooksFile),
		MembersPath: filepath.Join(blocker, MembersFile),
	}
	require.Error(t, p.Save(&Snapshot{}))

	after, err := os.ReadFile(filepath.Join(dir, BooksFile))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestJSONFilesWritesDatesAndAmounts(t *testing.T) {
	dir := t.TempDir()
	populate(t, NewJSONFiles(dir))

	data, err := os.ReadFile(filepath.Join(dir, MembersFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"borrow_date": "2024-03-01"`)
	assert.Contains(t, string(data), `"fines": 6.00`)
	assert.Contains(t, string(data), `"111": "2024-03-01"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")
}

func isbnsOf(books []*Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ISBN)
	}
	return out
}
