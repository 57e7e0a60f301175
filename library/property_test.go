package library

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// checkInvariants asserts the book and member invariants over the whole store.
func checkInvariants(t *rapid.T, s *Store, maxLoans int) {
	held := map[string]int{}
	for _, m := range s.ListMembers() {
		if len(m.CurrentLoans) > maxLoans {
			t.Fatalf("member %s holds %d loans", m.ID, len(m.CurrentLoans))
		}
		if m.Fines < 0 {
			t.Fatalf("member %s has negative fines %s", m.ID, m.Fines)
		}
		for isbn := range m.CurrentLoans {
			held[isbn]++
		}
	}
	for _, b := range s.ListBooks() {
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			t.Fatalf("book %s: available %d of %d", b.ISBN, b.AvailableCopies, b.TotalCopies)
		}
		if len(b.Borrowers) != b.TotalCopies-b.AvailableCopies {
			t.Fatalf("book %s: %d borrowers for %d lent copies", b.ISBN, len(b.Borrowers), b.TotalCopies-b.AvailableCopies)
		}
		if held[b.ISBN] != len(b.Borrowers) {
			t.Fatalf("book %s: members hold %d, borrowers %d", b.ISBN, held[b.ISBN], len(b.Borrowers))
		}
	}
}

func TestLendingInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store, err := NewStore(NewMemoryPersister())
		if err != nil {
			t.Fatal(err)
		}
		clock := newFakeClock()
		policy := DefaultPolicy()
		l := NewLending(store, policy, clock.Now)

		isbns := []string{"a", "b", "c", "d", "e"}
		for _, isbn := range isbns {
			copies := rapid.IntRange(0, 3).Draw(t, "copies-"+isbn)
			if _, err := store.AddBook("T"+isbn, "A", isbn, "C", copies); err != nil {
				t.Fatal(err)
			}
		}
		var members []string
		for i := 0; i < 3; i++ {
			id, err := store.RegisterMember(fmt.Sprintf("m%d", i))
			if err != nil {
				t.Fatal(err)
			}
			members = append(members, id)
		}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			m := rapid.SampledFrom(members).Draw(t, "member")
			isbn := rapid.SampledFrom(isbns).Draw(t, "isbn")
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0, 1:
				_ = l.Borrow(m, isbn)
			case 2:
				_, _ = l.ReturnBook(m, isbn)
			case 3:
				cents := rapid.Int64Range(-100, 3000).Draw(t, "pay")
				_, _ = l.PayFine(m, Amount(cents))
			case 4:
				clock.advanceDays(rapid.IntRange(0, 20).Draw(t, "days"))
			}
			checkInvariants(t, store, policy.MaxLoans)
		}
	})
}

func TestBorrowReturnRestoresAvailability(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store, _ := NewStore(NewMemoryPersister())
		l := NewLending(store, DefaultPolicy(), newFakeClock().Now)
		copies := rapid.IntRange(1, 10).Draw(t, "copies")
		if _, err := store.AddBook("Dune", "Herbert", "111", "Sci-Fi", copies); err != nil {
			t.Fatal(err)
		}
		m, _ := store.RegisterMember("Alice")

		if err := l.Borrow(m, "111"); err != nil {
			t.Fatal(err)
		}
		receipt, err := l.ReturnBook(m, "111")
		if err != nil {
			t.Fatal(err)
		}
		if receipt.Fine != 0 {
			t.Fatalf("same-day return charged %s", receipt.Fine)
		}
		b, _ := store.FindBook("111")
		if b.AvailableCopies != copies {
			t.Fatalf("available %d, want %d", b.AvailableCopies, copies)
		}
	})
}

func TestFineMatchesPolicy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Policy{
			LoanPeriodDays: rapid.IntRange(0, 30).Draw(t, "period"),
			FinePerDay:     Amount(rapid.Int64Range(0, 500).Draw(t, "rate")),
			MaxLoans:       3,
		}
		days := rapid.IntRange(0, 400).Draw(t, "days")
		overdue, fine := p.Fine(days)
		require.GreaterOrEqual(t, overdue, 0)
		require.Equal(t, Amount(max(0, days-p.LoanPeriodDays))*p.FinePerDay, fine)
	})
}

func TestFineNearConfiguredMaximum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Policy{
			LoanPeriodDays: 14,
			FinePerDay:     Amount(rapid.Int64Range(int64(MaxFinePerDay)-1000, int64(MaxFinePerDay)).Draw(t, "rate")),
			MaxLoans:       3,
		}
		// roughly eight millennia overdue
		days := rapid.IntRange(0, 3_000_000).Draw(t, "days")
		overdue, fine := p.Fine(days)
		require.GreaterOrEqual(t, fine, Amount(0))
		require.Equal(t, Amount(overdue)*p.FinePerDay, fine)
	})

	_, fine := Policy{LoanPeriodDays: 0, FinePerDay: MaxAmount / 3}.Fine(4)
	require.Equal(t, MaxAmount, fine)
}
