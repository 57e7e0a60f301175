package main

import (
	"fmt"
	"io"
	"strings"

	"library-lending/library"
)

func printBooks(w io.Writer, books []*library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-15s %-30s %-25s %-15s %s\n", "ISBN", "Title", "Author", "Category", "Avail")
	fmt.Fprintln(w, strings.Repeat("-", 95))
	for _, b := range books {
		fmt.Fprintln(w, library.PrettyBook(b))
	}
}

func printMembers(w io.Writer, members []*library.Member) {
	if len(members) == 0 {
		fmt.Fprintln(w, "No members registered.")
		return
	}
	fmt.Fprintf(w, "%-8s %-30s %-6s %s\n", "ID", "Name", "Loans", "Fines")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	for _, m := range members {
		fmt.Fprintf(w, "%-8s %-30s %-6d $%s\n", m.ID, m.Name, len(m.CurrentLoans), m.Fines)
	}
}

func printReport(w io.Writer, r *library.MemberReport) {
	fmt.Fprintf(w, "Member: %s (ID %s)\n", r.Name, r.ID)
	fmt.Fprintf(w, "Outstanding fines: $%s\n", r.Fines)

	fmt.Fprintln(w, "Current loans:")
	if len(r.CurrentLoans) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, l := range r.CurrentLoans {
		status := fmt.Sprintf("%d day(s) remaining", l.DaysRemaining)
		if l.DaysRemaining < 0 {
			status = fmt.Sprintf("overdue by %d day(s)", -l.DaysRemaining)
		}
		fmt.Fprintf(w, "  %-15s %-30s borrowed %s, due %s, %s\n", l.ISBN, l.Title, l.BorrowDate, l.DueDate, status)
	}

	fmt.Fprintln(w, "History:")
	if len(r.History) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, h := range r.History {
		fmt.Fprintf(w, "  %-15s %-30s %s -> %s  fine $%s\n", h.ISBN, h.Title, h.BorrowDate, h.ReturnDate, h.Fine)
	}
}

func printReceipt(w io.Writer, r *library.ReturnReceipt) {
	fmt.Fprintf(w, "Returned '%s' after %d day(s).\n", r.Record.Title, r.DaysHeld)
	if r.OverdueDays > 0 {
		fmt.Fprintf(w, "Overdue by %d day(s), fine charged: $%s\n", r.OverdueDays, r.Fine)
	}
}
