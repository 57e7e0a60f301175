package library

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Policy holds the lending rules.
type Policy struct {
	LoanPeriodDays int    // days a copy may be held before fines accrue
	FinePerDay     Amount // charged per overdue day
	MaxLoans       int    // concurrent loans per member
}

// DefaultPolicy is two weeks, 1.00 per overdue day, three loans.
func DefaultPolicy() Policy {
	return Policy{LoanPeriodDays: 14, FinePerDay: Dollars(1), MaxLoans: 3}
}

// MaxFinePerDay is the highest daily fine a Policy may charge.
const MaxFinePerDay = Amount(100_000_000) // 1,000,000.00

// Fine returns the charge for a copy held daysHeld days, with the overdue day
// count. The charge saturates at MaxAmount instead of overflowing.
func (p Policy) Fine(daysHeld int) (overdue int, fine Amount) {
	overdue = max(0, daysHeld-p.LoanPeriodDays)
	if overdue == 0 || p.FinePerDay <= 0 {
		return overdue, 0
	}
	if Amount(overdue) > MaxAmount/p.FinePerDay {
		return overdue, MaxAmount
	}
	return overdue, Amount(overdue) * p.FinePerDay
}

// Lending runs the borrow / return / fine workflow against a Store.
type Lending struct {
	store  *Store
	policy Policy
	now    func() time.Time
}

// NewLending returns a workflow over store. A nil clock means time.Now.
func NewLending(store *Store, policy Policy, clock func() time.Time) *Lending {
	if clock == nil {
		clock = time.Now
	}
	return &Lending{store: store, policy: policy, now: clock}
}

func (l *Lending) Policy() Policy { return l.policy }

func (l *Lending) today() Date { return DateOf(l.now()) }

// Borrow lends one copy of isbn to the member.
//
// Checks run in order: both IDs resolve, the member does not already hold
// the ISBN, a copy is available, the member is under the loan limit, and the
// member owes nothing.
func (l *Lending) Borrow(memberID, isbn string) error {
	today := l.today()
	return l.store.update(func(books map[string]*Book, members map[string]*Member) error {
		book, member, err := resolve(books, members, memberID, isbn)
		if err != nil {
			return err
		}
		if _, held := member.CurrentLoans[isbn]; held {
			return fmt.Errorf("%w: member %s already holds %s", ErrAlreadyBorrowed, memberID, isbn)
		}
		if book.AvailableCopies <= 0 {
			return fmt.Errorf("%w: %q has no free copies", ErrBookUnavailable, book.Title)
		}
		if len(member.CurrentLoans) >= l.policy.MaxLoans {
			return fmt.Errorf("%w: member %s holds %d books", ErrLoanLimitReached, memberID, len(member.CurrentLoans))
		}
		if member.Fines > 0 {
			return fmt.Errorf("%w: please clear outstanding fine of $%s", ErrOutstandingFine, member.Fines)
		}

		book.AvailableCopies--
		book.Borrowers = append(book.Borrowers, memberID)
		member.CurrentLoans[isbn] = today
		return nil
	})
}

// ReturnBook takes back the member's copy of isbn, charges any overdue fine
// and appends the loan to the member's history.
func (l *Lending) ReturnBook(memberID, isbn string) (*ReturnReceipt, error) {
	today := l.today()
	var receipt *ReturnReceipt
	err := l.store.update(func(books map[string]*Book, members map[string]*Member) error {
		book, member, err := resolve(books, members, memberID, isbn)
		if err != nil {
			return err
		}
		borrowed, held := member.CurrentLoans[isbn]
		if !held {
			return fmt.Errorf("%w: member %s does not hold %s", ErrNotBorrowed, memberID, isbn)
		}

		daysHeld := max(0, today.DaysSince(borrowed))
		overdue, fine := l.policy.Fine(daysHeld)

		book.AvailableCopies++
		if i := slices.Index(book.Borrowers, memberID); i >= 0 {
			book.Borrowers = slices.Delete(book.Borrowers, i, i+1)
		}
		delete(member.CurrentLoans, isbn)
		rec := LoanRecord{
			ID:         uuid.NewString(),
			ISBN:       isbn,
			Title:      book.Title,
			BorrowDate: borrowed,
			ReturnDate: today,
			Fine:       fine,
		}
		member.History = append(member.History, rec)
		member.Fines = member.Fines.plus(fine)

		receipt = &ReturnReceipt{Record: rec, DaysHeld: daysHeld, OverdueDays: overdue, Fine: fine}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// PayFine reduces the member's outstanding balance by amount and returns the
// remaining balance. Paying more than is owed is rejected.
func (l *Lending) PayFine(memberID string, amount Amount) (Amount, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: payment must be positive, got %s", ErrInvalidAmount, amount)
	}
	var remaining Amount
	err := l.store.update(func(_ map[string]*Book, members map[string]*Member) error {
		member, ok := members[memberID]
		if !ok {
			return fmt.Errorf("%w: member %q", ErrInvalidReference, memberID)
		}
		if amount > member.Fines {
			return fmt.Errorf("%w: paying %s against %s", ErrOverPayment, amount, member.Fines)
		}
		member.Fines -= amount
		remaining = member.Fines
		return nil
	})
	return remaining, err
}

// MemberDetails returns the member with their outstanding loans resolved to titles.
func (l *Lending) MemberDetails(memberID string) (*MemberReport, error) {
	member, err := l.store.FindMember(memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	today := l.today()

	report := &MemberReport{
		ID:      member.ID,
		Name:    member.Name,
		Fines:   member.Fines,
		History: member.History,
	}
	for isbn, borrowed := range member.CurrentLoans {
		title := ""
		if b, err := l.store.FindBook(isbn); err == nil {
			title = b.Title
		}
		due := borrowed.AddDays(l.policy.LoanPeriodDays)
		report.CurrentLoans = append(report.CurrentLoans, CurrentLoan{
			ISBN:          isbn,
			Title:         title,
			BorrowDate:    borrowed,
			DueDate:       due,
			DaysRemaining: due.DaysSince(today),
		})
	}
	slices.SortFunc(report.CurrentLoans, func(a, b CurrentLoan) int {
		if c := a.BorrowDate.t.Compare(b.BorrowDate.t); c != 0 {
			return c
		}
		return strings.Compare(a.ISBN, b.ISBN)
	})
	return report, nil
}

// RateBook records a 1-5 rating from a member who has returned the book.
func (l *Lending) RateBook(memberID, isbn string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return l.store.update(func(books map[string]*Book, members map[string]*Member) error {
		book, member, err := resolve(books, members, memberID, isbn)
		if err != nil {
			return err
		}
		if !member.hasReturned(isbn) {
			return fmt.Errorf("%w: only members who have returned %s may rate it", ErrNotBorrowed, isbn)
		}
		book.Ratings = append(book.Ratings, rating)
		return nil
	})
}

func resolve(books map[string]*Book, members map[string]*Member, memberID, isbn string) (*Book, *Member, error) {
	member, ok := members[memberID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: member %q", ErrInvalidReference, memberID)
	}
	book, ok := books[isbn]
	if !ok {
		return nil, nil, fmt.Errorf("%w: book %q", ErrInvalidReference, isbn)
	}
	return book, member, nil
}
