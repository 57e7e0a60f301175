package library

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid book or member ID")
	ErrBookUnavailable  = errors.New("book not available")
	ErrLoanLimitReached = errors.New("maximum borrow limit reached")
	ErrOutstandingFine  = errors.New("outstanding fine must be cleared")
	ErrAlreadyBorrowed  = errors.New("book already borrowed by this member")
	ErrNotBorrowed      = errors.New("book not borrowed by this member")
	ErrOverPayment      = errors.New("payment amount exceeds fine")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrInvalidField     = errors.New("search field must be title, author or category")
	ErrCorruptState     = errors.New("corrupt library state")

	// ErrPersist wraps failures of the persistence boundary. The in-memory
	// state is rolled back before it is returned.
	ErrPersist = errors.New("persist library state")
)
