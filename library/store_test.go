package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBookExistingISBNAddsCopies(t *testing.T) {
	_, s, _ := newTestLending(t)

	created, err := s.AddBook("Dune", "Herbert", "111", "Sci-Fi", 2)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddBook("Ignored Title", "Someone", "111", "Other", 3)
	require.NoError(t, err)
	assert.False(t, created)

	b, err := s.FindBook("111")
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, 5, b.TotalCopies)
	assert.Equal(t, 5, b.AvailableCopies)
}

func TestAddBookValidation(t *testing.T) {
	_, s, _ := newTestLending(t)

	_, err := s.AddBook("Dune", "Herbert", "111", "Sci-Fi", -1)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.AddBook("Dune", "Herbert", "  ", "Sci-Fi", 1)
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = s.AddBook("Zero", "Nobody", "000", "Misc", 0)
	require.NoError(t, err)
	assert.Len(t, s.ListBooks(), 1)
}

func TestFindMissing(t *testing.T) {
	_, s, _ := newTestLending(t)

	_, err := s.FindBook("nope")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindMember("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindReturnsCopies(t *testing.T) {
	_, s, _ := newTestLending(t)
	mustAddBook(t, s, "111", "Dune", "Sci-Fi", 1)

	b, _ := s.FindBook("111")
	b.AvailableCopies = 99
	b.Borrowers = append(b.Borrowers, "intruder")

	again, _ := s.FindBook("111")
	assert.Equal(t, 1, again.AvailableCopies)
	assert.Empty(t, again.Borrowers)
}

func TestSearchBooks(t *testing.T) {
	_, s, _ := newTestLending(t)
	mustAddBook(t, s, "3", "The Hobbit", "Fantasy", 1)
	mustAddBook(t, s, "1", "Dune", "Sci-Fi", 1)
	mustAddBook(t, s, "2", "The Two Towers", "Fantasy", 1)

	res, err := s.SearchBooks("THE", ByTitle)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "3", res[0].ISBN)
	assert.Equal(t, "2", res[1].ISBN)

	res, err = s.SearchBooks("fant", ByCategory)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = s.SearchBooks("author of dune", ByAuthor)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "1", res[0].ISBN)

	res, err = s.SearchBooks("zzz", ByTitle)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = s.SearchBooks("x", SearchField("isbn"))
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestParseSearchField(t *testing.T) {
	f, err := ParseSearchField(" Author ")
	require.NoError(t, err)
	assert.Equal(t, ByAuthor, f)

	_, err = ParseSearchField("year")
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestRegisterMemberSkipsTakenIDs(t *testing.T) {
	_, s, _ := newTestLending(t)
	ids := []string{"11111", "11111", "11111", "22222"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := s.RegisterMember("Alice")
	require.NoError(t, err)
	second, err := s.RegisterMember("Bob")
	require.NoError(t, err)

	assert.Equal(t, "11111", first)
	assert.Equal(t, "22222", second)

	m, err := s.FindMember(second)
	require.NoError(t, err)
	assert.Equal(t, "Bob", m.Name)
	assert.Zero(t, m.Fines)
	assert.Empty(t, m.CurrentLoans)
	assert.Empty(t, m.History)
}

func TestRegisterMemberGivesUp(t *testing.T) {
	_, s, _ := newTestLending(t)
	s.newID = func() string { return "11111" }

	_, err := s.RegisterMember("Alice")
	require.NoError(t, err)
	_, err = s.RegisterMember("Bob")
	require.Error(t, err)
	assert.Len(t, s.ListMembers(), 1)
}

func TestRandomMemberIDShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := randomMemberID()
		require.Len(t, id, 5)
		assert.GreaterOrEqual(t, id, "10000")
		assert.LessOrEqual(t, id, "99999")
	}
}

func TestEveryMutationPersists(t *testing.T) {
	p := NewMemoryPersister()
	s, err := NewStore(p)
	require.NoError(t, err)
	l := NewLending(s, DefaultPolicy(), newFakeClock().Now)

	mustAddBook(t, s, "111", "Dune", "Sci-Fi", 1)
	mustAddBook(t, s, "111", "Dune", "Sci-Fi", 1)
	m := mustRegister(t, s, "Alice")
	require.NoError(t, l.Borrow(m, "111"))
	_, err = l.ReturnBook(m, "111")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Saves)

	// rejected operations do not save
	require.Error(t, l.Borrow("nobody", "111"))
	assert.Equal(t, 5, p.Saves)
}
