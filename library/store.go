package library

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const maxIDAttempts = 1000

// SearchField selects which book attribute SearchBooks matches against.
type SearchField string

const (
	ByTitle    SearchField = "title"
	ByAuthor   SearchField = "author"
	ByCategory SearchField = "category"
)

// ParseSearchField accepts title, author or category in any case.
func ParseSearchField(s string) (SearchField, error) {
	switch f := SearchField(strings.ToLower(strings.TrimSpace(s))); f {
	case ByTitle, ByAuthor, ByCategory:
		return f, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidField, s)
}

// Store is the catalog and membership store. It owns every Book and Member,
// keeps insertion order, and saves the whole state through its Persister
// after each successful mutation.
type Store struct {
	mu sync.Mutex

	books       map[string]*Book
	bookOrder   []string
	members     map[string]*Member
	memberOrder []string

	persister Persister
	newID     func() string
}

// NewStore loads the state held by p.
func NewStore(p Persister) (*Store, error) {
	snap, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load library state: %w", err)
	}
	s := &Store{persister: p, newID: randomMemberID}
	if err := s.restore(snap); err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

func randomMemberID() string {
	return strconv.Itoa(10000 + rand.IntN(90000))
}

// ------------------ Catalog ------------------

// AddBook adds copies of a title. An existing ISBN keeps its metadata and
// gains copies; a new ISBN creates the book. It reports whether the book was new.
// Zero copies is accepted and registers a title with nothing to lend.
func (s *Store) AddBook(title, author, isbn, category string, copies int) (bool, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return false, fmt.Errorf("%w: isbn must not be empty", ErrInvalidReference)
	}
	if copies < 0 {
		return false, fmt.Errorf("%w: copies must not be negative, got %d", ErrInvalidAmount, copies)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	err := s.commit(func() error {
		if b, ok := s.books[isbn]; ok {
			b.TotalCopies += copies
			b.AvailableCopies += copies
			return nil
		}
		s.books[isbn] = &Book{
			ISBN:            isbn,
			Title:           title,
			Author:          author,
			Category:        category,
			TotalCopies:     copies,
			AvailableCopies: copies,
			Borrowers:       []string{},
			Ratings:         []int{},
		}
		s.bookOrder = append(s.bookOrder, isbn)
		created = true
		return nil
	})
	return created, err
}

// FindBook returns a copy of the book with the given ISBN.
func (s *Store) FindBook(isbn string) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[isbn]
	if !ok {
		return nil, fmt.Errorf("book %q: %w", isbn, ErrNotFound)
	}
	return b.clone(), nil
}

// ListBooks returns copies of all books in insertion order.
func (s *Store) ListBooks() []*Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Book, 0, len(s.bookOrder))
	for _, isbn := range s.bookOrder {
		out = append(out, s.books[isbn].clone())
	}
	return out
}

// SearchBooks returns books whose field contains query, ignoring case, in
// insertion order.
func (s *Store) SearchBooks(query string, field SearchField) ([]*Book, error) {
	if _, err := ParseSearchField(string(field)); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*Book
	for _, isbn := range s.bookOrder {
		b := s.books[isbn]
		var v string
		switch field {
		case ByTitle:
			v = b.Title
		case ByAuthor:
			v = b.Author
		case ByCategory:
			v = b.Category
		}
		if strings.Contains(strings.ToLower(v), q) {
			results = append(results, b.clone())
		}
	}
	return results, nil
}

// ------------------ Membership ------------------

// RegisterMember creates a member under a freshly generated ID and returns it.
func (s *Store) RegisterMember(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ""
	for i := 0; i < maxIDAttempts; i++ {
		candidate := s.newID()
		if _, taken := s.members[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("no free member ID after %d attempts", maxIDAttempts)
	}

	err := s.commit(func() error {
		s.members[id] = &Member{
			ID:           id,
			Name:         strings.TrimSpace(name),
			CurrentLoans: map[string]Date{},
			History:      []LoanRecord{},
		}
		s.memberOrder = append(s.memberOrder, id)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// FindMember returns a copy of the member with the given ID.
func (s *Store) FindMember(id string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %q: %w", id, ErrNotFound)
	}
	return m.clone(), nil
}

// ListMembers returns copies of all members in registration order.
func (s *Store) ListMembers() []*Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Member, 0, len(s.memberOrder))
	for _, id := range s.memberOrder {
		out = append(out, s.members[id].clone())
	}
	return out
}

// ------------------ State ------------------

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// update runs fn against the live entries under the store lock and persists
// the result. fn must return an error before mutating anything it rejects.
func (s *Store) update(fn func(books map[string]*Book, members map[string]*Member) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(func() error { return fn(s.books, s.members) })
}

// commit applies fn and saves. On any failure the state from before fn is
// restored. Callers hold s.mu.
func (s *Store) commit(fn func() error) error {
	before := s.snapshot()
	if err := fn(); err != nil {
		_ = s.restore(before)
		return err
	}
	if err := s.persister.Save(s.snapshot()); err != nil {
		_ = s.restore(before)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) snapshot() *Snapshot {
	snap := &Snapshot{
		Books:   make([]*Book, 0, len(s.bookOrder)),
		Members: make([]*Member, 0, len(s.memberOrder)),
	}
	for _, isbn := range s.bookOrder {
		snap.Books = append(snap.Books, s.books[isbn].clone())
	}
	for _, id := range s.memberOrder {
		snap.Members = append(snap.Members, s.members[id].clone())
	}
	return snap
}

func (s *Store) restore(snap *Snapshot) error {
	books := make(map[string]*Book, len(snap.Books))
	bookOrder := make([]string, 0, len(snap.Books))
	for _, b := range snap.Books {
		if _, dup := books[b.ISBN]; dup {
			return fmt.Errorf("%w: duplicate book %q", ErrCorruptState, b.ISBN)
		}
		c := b.clone()
		books[c.ISBN] = c
		bookOrder = append(bookOrder, c.ISBN)
	}

	members := make(map[string]*Member, len(snap.Members))
	memberOrder := make([]string, 0, len(snap.Members))
	for _, m := range snap.Members {
		if _, dup := members[m.ID]; dup {
			return fmt.Errorf("%w: duplicate member %q", ErrCorruptState, m.ID)
		}
		c := m.clone()
		members[c.ID] = c
		memberOrder = append(memberOrder, c.ID)
	}

	s.books, s.bookOrder = books, bookOrder
	s.members, s.memberOrder = members, memberOrder
	return nil
}

// check verifies loaded state: copy counts, borrower lists matching the
// members' current loans, valid ratings, and non-negative fines.
func (s *Store) check() error {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
	}

	holders := make(map[string][]string, len(s.books))
	for _, id := range s.memberOrder {
		m := s.members[id]
		if m.Fines < 0 {
			return corrupt("member %s owes negative fines %s", id, m.Fines)
		}
		for isbn := range m.CurrentLoans {
			if _, ok := s.books[isbn]; !ok {
				return corrupt("member %s holds unknown book %s", id, isbn)
			}
			holders[isbn] = append(holders[isbn], id)
		}
		for _, rec := range m.History {
			if rec.Fine < 0 || rec.BorrowDate.IsZero() || rec.ReturnDate.Before(rec.BorrowDate) {
				return corrupt("member %s has an invalid loan record for %s", id, rec.ISBN)
			}
		}
	}

	for _, isbn := range s.bookOrder {
		b := s.books[isbn]
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			return corrupt("book %s has %d of %d copies available", isbn, b.AvailableCopies, b.TotalCopies)
		}
		if len(b.Borrowers) != b.TotalCopies-b.AvailableCopies {
			return corrupt("book %s lists %d borrowers for %d copies out", isbn, len(b.Borrowers), b.TotalCopies-b.AvailableCopies)
		}
		if !slices.Equal(slices.Sorted(slices.Values(b.Borrowers)), slices.Sorted(slices.Values(holders[isbn]))) {
			return corrupt("borrowers of book %s do not match member loans", isbn)
		}
		for _, r := range b.Ratings {
			if r < 1 || r > 5 {
				return corrupt("book %s has rating %d", isbn, r)
			}
		}
	}
	return nil
}
