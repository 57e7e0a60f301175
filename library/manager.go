package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// LibraryManager is a thin façade over the Store and the Lending workflow,
// keeping CLI code simple. Every operation is logged.
type LibraryManager struct {
	store     *Store
	lending   *Lending
	persister Persister
	log       *slog.Logger
}

type managerOptions struct {
	logger *slog.Logger
	clock  func() time.Time
}

// Option customises a LibraryManager.
type Option func(*managerOptions)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *managerOptions) { o.logger = l }
}

// WithClock replaces time.Now for loan and return dates.
func WithClock(now func() time.Time) Option {
	return func(o *managerOptions) { o.clock = now }
}

// NewLibraryManager opens the persister selected by cfg and loads its state.
func NewLibraryManager(cfg Config, opts ...Option) (*LibraryManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := cfg.OpenPersister()
	if err != nil {
		return nil, err
	}
	lm, err := NewLibraryManagerWithPersister(p, cfg.Policy, opts...)
	if err != nil {
		if c, ok := p.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	lm.log.Debug("library opened", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	return lm, nil
}

// NewLibraryManagerWithPersister loads state from p and runs policy against it.
func NewLibraryManagerWithPersister(p Persister, policy Policy, opts ...Option) (*LibraryManager, error) {
	o := managerOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	store, err := NewStore(p)
	if err != nil {
		return nil, err
	}
	for _, m := range store.ListMembers() {
		if len(m.CurrentLoans) > policy.MaxLoans {
			return nil, fmt.Errorf("%w: member %s holds %d books, limit is %d", ErrCorruptState, m.ID, len(m.CurrentLoans), policy.MaxLoans)
		}
	}
	return &LibraryManager{
		store:     store,
		lending:   NewLending(store, policy, o.clock),
		persister: p,
		log:       o.logger,
	}, nil
}

// Close closes the persister when it holds resources.
func (lm *LibraryManager) Close() error {
	if c, ok := lm.persister.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (lm *LibraryManager) Policy() Policy { return lm.lending.Policy() }

// logResult records the outcome of op. Rule rejections are expected traffic
// and log at info; persistence failures log at error.
func (lm *LibraryManager) logResult(op string, err error, attrs ...any) {
	switch {
	case err == nil:
		lm.log.Info(op, attrs...)
	case errors.Is(err, ErrPersist):
		lm.log.Error(op+" failed", append(attrs, "err", err)...)
	default:
		lm.log.Info(op+" rejected", append(attrs, "err", err)...)
	}
}

// ------------------ Book helpers ------------------

// AddBook adds copies of a title and reports whether the ISBN was new.
func (lm *LibraryManager) AddBook(title, author, isbn, category string, copies int) (bool, error) {
	created, err := lm.store.AddBook(title, author, isbn, category, copies)
	lm.logResult("add book", err, "isbn", isbn, "copies", copies, "new", created)
	return created, err
}

func (lm *LibraryManager) GetBook(isbn string) (*Book, error) { return lm.store.FindBook(isbn) }
func (lm *LibraryManager) GetAllBooks() []*Book              { return lm.store.ListBooks() }

// ------------------ Member helpers ------------------

func (lm *LibraryManager) RegisterMember(name string) (string, error) {
	id, err := lm.store.RegisterMember(name)
	lm.logResult("register member", err, "member_id", id)
	return id, err
}

func (lm *LibraryManager) GetMember(id string) (*Member, error) { return lm.store.FindMember(id) }
func (lm *LibraryManager) GetAllMembers() []*Member             { return lm.store.ListMembers() }

func (lm *LibraryManager) MemberDetails(id string) (*MemberReport, error) {
	return lm.lending.MemberDetails(id)
}

// ------------------ Search ------------------

func (lm *LibraryManager) SearchBooks(query string, field SearchField) ([]*Book, error) {
	books, err := lm.store.SearchBooks(query, field)
	lm.log.Debug("search books", "query", query, "field", string(field), "results", len(books))
	return books, err
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(memberID, isbn string) error {
	err := lm.lending.Borrow(memberID, isbn)
	lm.logResult("borrow", err, "member_id", memberID, "isbn", isbn)
	return err
}

// ReturnBook returns the member's copy and reports the fine charged.
func (lm *LibraryManager) ReturnBook(memberID, isbn string) (*ReturnReceipt, error) {
	receipt, err := lm.lending.ReturnBook(memberID, isbn)
	attrs := []any{"member_id", memberID, "isbn", isbn}
	if receipt != nil {
		attrs = append(attrs, "days_held", receipt.DaysHeld, "fine", receipt.Fine.String())
	}
	lm.logResult("return", err, attrs...)
	return receipt, err
}

// PayFine pays down the member's balance and returns what is still owed.
func (lm *LibraryManager) PayFine(memberID string, amount Amount) (Amount, error) {
	remaining, err := lm.lending.PayFine(memberID, amount)
	lm.logResult("pay fine", err, "member_id", memberID, "amount", amount.String())
	return remaining, err
}

// ------------------ Ratings & recommendations ------------------

func (lm *LibraryManager) RateBook(memberID, isbn string, rating int) error {
	err := lm.lending.RateBook(memberID, isbn, rating)
	lm.logResult("rate book", err, "member_id", memberID, "isbn", isbn, "rating", rating)
	return err
}

func (lm *LibraryManager) Recommend(memberID string, limit int) ([]*Book, error) {
	return lm.lending.Recommend(memberID, limit)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-15s %-30s %-25s %-15s %3d/%-3d", b.ISBN, truncate(b.Title, 30), truncate(b.Author, 25), truncate(b.Category, 15), b.AvailableCopies, b.TotalCopies)
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
