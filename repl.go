package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-lending/library"

	"golang.org/x/term"
)

// repl reads one command per line and asks for its arguments on the
// following lines. Prompts are only shown when a person is typing.
type repl struct {
	sc          *bufio.Scanner
	out         io.Writer
	mgr         *library.LibraryManager
	interactive bool
}

func (a *app) runREPL() error {
	r := &repl{
		sc:          bufio.NewScanner(a.in),
		out:         a.out,
		mgr:         a.mgr,
		interactive: isTerminal(a.in),
	}
	return r.run()
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *repl) run() error {
	if r.interactive {
		fmt.Fprintln(r.out, "Welcome to the Library Lending System!")
		r.help()
	}

	for {
		if r.interactive {
			fmt.Fprint(r.out, "\n> ")
		}
		if !r.sc.Scan() {
			return r.sc.Err()
		}
		cmd := strings.ToLower(strings.TrimSpace(r.sc.Text()))

		switch cmd {
		case "":
			continue
		case "add book":
			r.handleAddBook()
		case "register member":
			r.handleRegister()
		case "borrow":
			r.handleBorrow()
		case "return":
			r.handleReturn()
		case "search":
			r.handleSearch()
		case "member details":
			r.handleMemberDetails()
		case "pay fine":
			r.handlePayFine()
		case "list books":
			printBooks(r.out, r.mgr.GetAllBooks())
		case "list members":
			printMembers(r.out, r.mgr.GetAllMembers())
		case "rate book":
			r.handleRate()
		case "recommend":
			r.handleRecommend()
		case "help":
			r.help()
		case "exit", "quit":
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintf(r.out, "Unknown command %q. Type 'help' for the list of commands.\n", cmd)
		}
	}
}

func (r *repl) help() {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out, "  Catalog: add book, list books, search")
	fmt.Fprintln(r.out, "  Members: register member, list members, member details, pay fine")
	fmt.Fprintln(r.out, "  Circulation: borrow, return, rate book, recommend")
	fmt.Fprintln(r.out, "  System: help, exit")
}

// ask prints label when interactive and returns the next trimmed line.
// ok is false once input is exhausted.
func (r *repl) ask(label string) (string, bool) {
	if r.interactive {
		fmt.Fprint(r.out, label)
	}
	if !r.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.sc.Text()), true
}

// askAll reads several answers in order, stopping at end of input.
func (r *repl) askAll(labels ...string) ([]string, bool) {
	answers := make([]string, 0, len(labels))
	for _, l := range labels {
		v, ok := r.ask(l)
		if !ok {
			return nil, false
		}
		answers = append(answers, v)
	}
	return answers, true
}

func (r *repl) fail(err error) {
	fmt.Fprintf(r.out, "Error: %v\n", err)
}

func (r *repl) handleAddBook() {
	in, ok := r.askAll("Title: ", "Author: ", "ISBN: ", "Category: ", "Copies: ")
	if !ok {
		return
	}
	copies, err := strconv.Atoi(in[4])
	if err != nil {
		fmt.Fprintf(r.out, "Invalid number of copies: %s\n", in[4])
		return
	}
	created, err := r.mgr.AddBook(in[0], in[1], in[2], in[3], copies)
	if err != nil {
		r.fail(err)
		return
	}
	if created {
		fmt.Fprintf(r.out, "Added '%s' (ISBN %s) with %d copies\n", in[0], in[2], copies)
	} else {
		fmt.Fprintf(r.out, "Added %d copies to ISBN %s\n", copies, in[2])
	}
}

func (r *repl) handleRegister() {
	name, ok := r.ask("Name: ")
	if !ok {
		return
	}
	id, err := r.mgr.RegisterMember(name)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Registered %s with member ID %s\n", name, id)
}

func (r *repl) handleBorrow() {
	in, ok := r.askAll("Member ID: ", "ISBN: ")
	if !ok {
		return
	}
	if err := r.mgr.Borrow(in[0], in[1]); err != nil {
		r.fail(err)
		return
	}
	book, err := r.mgr.GetBook(in[1])
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "'%s' lent to member %s, due in %d days\n", book.Title, in[0], r.mgr.Policy().LoanPeriodDays)
}

func (r *repl) handleReturn() {
	in, ok := r.askAll("Member ID: ", "ISBN: ")
	if !ok {
		return
	}
	receipt, err := r.mgr.ReturnBook(in[0], in[1])
	if err != nil {
		r.fail(err)
		return
	}
	printReceipt(r.out, receipt)
}

func (r *repl) handleSearch() {
	in, ok := r.askAll("Search by (title/author/category): ", "Query: ")
	if !ok {
		return
	}
	field, err := library.ParseSearchField(in[0])
	if err != nil {
		r.fail(err)
		return
	}
	books, err := r.mgr.SearchBooks(in[1], field)
	if err != nil {
		r.fail(err)
		return
	}
	if len(books) == 0 {
		fmt.Fprintf(r.out, "No books found matching '%s'.\n", in[1])
		return
	}
	fmt.Fprintf(r.out, "Found %d book(s) matching '%s':\n", len(books), in[1])
	printBooks(r.out, books)
}

func (r *repl) handleMemberDetails() {
	id, ok := r.ask("Member ID: ")
	if !ok {
		return
	}
	report, err := r.mgr.MemberDetails(id)
	if err != nil {
		r.fail(err)
		return
	}
	printReport(r.out, report)
}

func (r *repl) handlePayFine() {
	in, ok := r.askAll("Member ID: ", "Amount: ")
	if !ok {
		return
	}
	amount, err := library.ParseAmount(in[1])
	if err != nil {
		r.fail(err)
		return
	}
	left, err := r.mgr.PayFine(in[0], amount)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Paid $%s, remaining balance $%s\n", amount, left)
}

func (r *repl) handleRate() {
	in, ok := r.askAll("Member ID: ", "ISBN: ", "Rating (1-5): ")
	if !ok {
		return
	}
	rating, err := strconv.Atoi(in[2])
	if err != nil {
		fmt.Fprintf(r.out, "Invalid rating: %s\n", in[2])
		return
	}
	if err := r.mgr.RateBook(in[0], in[1], rating); err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Thanks! Rated %s with %d\n", in[1], rating)
}

func (r *repl) handleRecommend() {
	id, ok := r.ask("Member ID: ")
	if !ok {
		return
	}
	books, err := r.mgr.Recommend(id, 0)
	if err != nil {
		r.fail(err)
		return
	}
	if len(books) == 0 {
		fmt.Fprintln(r.out, "Nothing to recommend right now.")
		return
	}
	fmt.Fprintln(r.out, "You might enjoy:")
	printBooks(r.out, books)
}
