package main

import (
	"fmt"
	"strconv"

	"library-lending/library"

	"github.com/spf13/cobra"
)

func (a *app) addBookCmd() *cobra.Command {
	var copies int
	cmd := &cobra.Command{
		Use:   "add-book TITLE AUTHOR ISBN CATEGORY",
		Short: "Add copies of a book to the catalog",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.mgr.AddBook(args[0], args[1], args[2], args[3], copies)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(a.out, "Added '%s' (ISBN %s) with %d copies\n", args[0], args[2], copies)
			} else {
				fmt.Fprintf(a.out, "Added %d copies to ISBN %s\n", copies, args[2])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&copies, "copies", 1, "number of copies")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register NAME",
		Short: "Register a member and print their ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.mgr.RegisterMember(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s with member ID %s\n", args[0], id)
			return nil
		},
	}
}

func (a *app) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow MEMBER_ID ISBN",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.Borrow(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Book %s lent to member %s for %d days\n", args[1], args[0], a.mgr.Policy().LoanPeriodDays)
			return nil
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return MEMBER_ID ISBN",
		Short: "Return a borrowed book, charging any overdue fine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receipt, err := a.mgr.ReturnBook(args[0], args[1])
			if err != nil {
				return err
			}
			printReceipt(a.out, receipt)
			return nil
		},
	}
}

func (a *app) payFineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay-fine MEMBER_ID AMOUNT",
		Short: "Pay towards a member's outstanding fines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := library.ParseAmount(args[1])
			if err != nil {
				return err
			}
			left, err := a.mgr.PayFine(args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Paid $%s, remaining balance $%s\n", amount, left)
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find books whose title, author or category contains QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := library.ParseSearchField(by)
			if err != nil {
				return err
			}
			books, err := a.mgr.SearchBooks(args[0], field)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintf(a.out, "No books found matching '%s'.\n", args[0])
				return nil
			}
			printBooks(a.out, books)
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "title", "field to search: title, author or category")
	return cmd
}

func (a *app) memberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "member MEMBER_ID",
		Short: "Show a member's loans, history and fines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.mgr.MemberDetails(args[0])
			if err != nil {
				return err
			}
			printReport(a.out, report)
			return nil
		},
	}
}

func (a *app) booksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBooks(a.out, a.mgr.GetAllBooks())
			return nil
		},
	}
}

func (a *app) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List registered members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printMembers(a.out, a.mgr.GetAllMembers())
			return nil
		},
	}
}

func (a *app) rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate MEMBER_ID ISBN RATING",
		Short: "Rate a returned book from 1 to 5",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("%w: rating %q", library.ErrInvalidRating, args[2])
			}
			if err := a.mgr.RateBook(args[0], args[1], rating); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Rated %s with %d\n", args[1], rating)
			return nil
		},
	}
}

func (a *app) recommendCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend MEMBER_ID",
		Short: "Suggest available books for a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.mgr.Recommend(args[0], limit)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintln(a.out, "Nothing to recommend right now.")
				return nil
			}
			printBooks(a.out, books)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum suggestions (0 for the default)")
	return cmd
}

func (a *app) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run the interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL()
		},
	}
}
