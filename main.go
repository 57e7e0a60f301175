package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"library-lending/library"

	"github.com/spf13/cobra"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg      library.Config
	fineRate string
	envErr   error

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	mgr *library.LibraryManager
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command line and always closes the library afterwards.
func run(args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}
	a.cfg, a.envErr = library.LoadConfig()

	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Lend books to members, track loans and fines",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	f := root.PersistentFlags()
	f.StringVar(&a.cfg.DataDir, "data-dir", a.cfg.DataDir, "directory holding the library data")
	f.StringVar(&a.cfg.Backend, "backend", a.cfg.Backend, "storage backend: json, sqlite or memory")
	f.StringVar(&a.cfg.DBFile, "db-file", a.cfg.DBFile, "SQLite file name inside the data directory")
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error")
	f.IntVar(&a.cfg.Policy.LoanPeriodDays, "loan-period", a.cfg.Policy.LoanPeriodDays, "days a book may be kept without a fine")
	f.StringVar(&a.fineRate, "fine-rate", a.cfg.Policy.FinePerDay.String(), "fine per overdue day")
	f.IntVar(&a.cfg.Policy.MaxLoans, "max-loans", a.cfg.Policy.MaxLoans, "books a member may hold at once")

	root.AddCommand(
		a.addBookCmd(),
		a.registerCmd(),
		a.borrowCmd(),
		a.returnCmd(),
		a.payFineCmd(),
		a.searchCmd(),
		a.memberCmd(),
		a.booksCmd(),
		a.membersCmd(),
		a.rateCmd(),
		a.recommendCmd(),
		a.replCmd(),
	)
	return root
}

func (a *app) open() error {
	if a.envErr != nil {
		return fmt.Errorf("environment: %w", a.envErr)
	}
	rate, err := library.ParseAmount(a.fineRate)
	if err != nil {
		return fmt.Errorf("--fine-rate: %w", err)
	}
	a.cfg.Policy.FinePerDay = rate

	level, err := library.ParseLogLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	mgr, err := library.NewLibraryManager(a.cfg, library.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}
