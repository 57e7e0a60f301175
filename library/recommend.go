package library

import (
	"cmp"
	"fmt"
	"slices"
)

const defaultRecommendations = 5

// Recommend suggests up to limit available books the member has neither
// borrowed nor currently holds. Members with any loan get books from the
// categories they have borrowed; new members get the best rated titles.
// Results are ordered by average rating, ties by catalog order.
func (l *Lending) Recommend(memberID string, limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = defaultRecommendations
	}
	member, err := l.store.FindMember(memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	books := l.store.ListBooks()

	seen := make(map[string]bool, len(member.History)+len(member.CurrentLoans))
	for isbn := range member.CurrentLoans {
		seen[isbn] = true
	}
	for _, rec := range member.History {
		seen[rec.ISBN] = true
	}

	byISBN := make(map[string]*Book, len(books))
	for _, b := range books {
		byISBN[b.ISBN] = b
	}
	categories := map[string]bool{}
	for isbn := range seen {
		if b, ok := byISBN[isbn]; ok {
			categories[b.Category] = true
		}
	}

	var picks []*Book
	for _, b := range books {
		if seen[b.ISBN] || b.AvailableCopies <= 0 {
			continue
		}
		if len(seen) > 0 && !categories[b.Category] {
			continue
		}
		picks = append(picks, b)
	}

	slices.SortStableFunc(picks, func(a, b *Book) int {
		return cmp.Compare(b.AverageRating(), a.AverageRating())
	})
	if len(picks) > limit {
		picks = picks[:limit]
	}
	return picks, nil
}
