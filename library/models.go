package library

// Book represents a catalog title and the state of its copies.
// Borrowers holds one member ID per copy currently out, in lending order.
type Book struct {
	ISBN            string   `json:"isbn"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Category        string   `json:"category"`
	TotalCopies     int      `json:"total_copies"`
	AvailableCopies int      `json:"available_copies"`
	Borrowers       []string `json:"borrowers"`
	Ratings         []int    `json:"ratings"`
}

// AverageRating returns the mean of the collected ratings, or 0 when unrated.
func (b *Book) AverageRating() float64 {
	if len(b.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range b.Ratings {
		sum += r
	}
	return float64(sum) / float64(len(b.Ratings))
}

func (b *Book) clone() *Book {
	c := *b
	c.Borrowers = append([]string{}, b.Borrowers...)
	c.Ratings = append([]int{}, b.Ratings...)
	return &c
}

// Member represents a registered library member.
type Member struct {
	ID           string          `json:"member_id"`
	Name         string          `json:"name"`
	CurrentLoans map[string]Date `json:"current_loans"` // ISBN -> borrow date
	History      []LoanRecord    `json:"history"`
	Fines        Amount          `json:"fines"`
}

func (m *Member) clone() *Member {
	c := *m
	c.CurrentLoans = make(map[string]Date, len(m.CurrentLoans))
	for isbn, d := range m.CurrentLoans {
		c.CurrentLoans[isbn] = d
	}
	c.History = append([]LoanRecord{}, m.History...)
	return &c
}

// hasReturned reports whether the member has a completed loan of isbn.
func (m *Member) hasReturned(isbn string) bool {
	for _, rec := range m.History {
		if rec.ISBN == isbn {
			return true
		}
	}
	return false
}

// LoanRecord is a completed loan. Records are appended on return and never modified.
type LoanRecord struct {
	ID         string `json:"loan_id"`
	ISBN       string `json:"isbn"`
	Title      string `json:"title"`
	BorrowDate Date   `json:"borrow_date"`
	ReturnDate Date   `json:"return_date"`
	Fine       Amount `json:"fine"`
}

// CurrentLoan is a read-only view of an outstanding loan.
type CurrentLoan struct {
	ISBN          string
	Title         string
	BorrowDate    Date
	DueDate       Date
	DaysRemaining int // negative once overdue
}

// MemberReport is the detailed view of a member shown to operators.
type MemberReport struct {
	ID           string
	Name         string
	Fines        Amount
	CurrentLoans []CurrentLoan
	History      []LoanRecord
}

// ReturnReceipt describes a completed return.
type ReturnReceipt struct {
	Record      LoanRecord
	DaysHeld    int
	OverdueDays int
	Fine        Amount
}
