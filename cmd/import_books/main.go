package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"library-lending/library"

	"github.com/spf13/cobra"
)

var header = []string{"title", "author", "isbn", "category", "copies"}

func main() {
	if err := newCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd(out, errOut io.Writer) *cobra.Command {
	cfg, envErr := library.LoadConfig()
	var reset bool

	cmd := &cobra.Command{
		Use:           "import_books FILE.csv",
		Short:         "Bulk add books from a CSV file (title,author,isbn,category,copies)",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return fmt.Errorf("environment: %w", envErr)
			}
			if reset {
				resetData(out, cfg)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			level, err := library.ParseLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
			mgr, err := library.NewLibraryManager(cfg, library.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("opening library: %w", err)
			}
			defer mgr.Close()

			ok, failed, err := importCSV(f, mgr, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d rows\n", ok)
			fmt.Fprintf(out, "Errors: %d\n", failed)

			if ok > 0 {
				fmt.Fprintln(out, "\nCatalog:")
				for _, b := range mgr.GetAllBooks() {
					fmt.Fprintln(out, library.PrettyBook(b))
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the library data")
	f.StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: json or sqlite")
	f.StringVar(&cfg.DBFile, "db-file", cfg.DBFile, "SQLite file name inside the data directory")
	f.BoolVar(&reset, "reset", false, "remove existing library data before importing")
	return cmd
}

// resetData removes whatever the selected backend keeps on disk.
func resetData(out io.Writer, cfg library.Config) {
	var files []string
	switch cfg.Backend {
	case library.BackendJSON:
		files = []string{library.BooksFile, library.MembersFile}
	case library.BackendSQLite:
		files = []string{cfg.DBFile, cfg.DBFile + "-shm", cfg.DBFile + "-wal"}
	}
	fmt.Fprintln(out, "Cleaning up existing library data...")
	for _, name := range files {
		path := filepath.Join(cfg.DataDir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "Warning: Could not remove %s: %v\n", path, err)
		}
	}
}

// importCSV adds one book per row and reports each outcome. A first row
// matching the column names is skipped. Only an unreadable file is fatal.
func importCSV(r io.Reader, mgr *library.LibraryManager, out io.Writer) (ok, failed int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ok, failed, nil
		}
		if err != nil {
			return ok, failed, fmt.Errorf("reading csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) != len(header) {
			fmt.Fprintf(out, "line %d: ERROR - want %d fields, got %d\n", line, len(header), len(rec))
			failed++
			continue
		}

		title, author, isbn, category := rec[0], rec[1], rec[2], rec[3]
		copies, err := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - copies %q is not a number\n", line, rec[4])
			failed++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		created, err := mgr.AddBook(title, author, isbn, category, copies)
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			failed++
			continue
		}
		if created {
			fmt.Fprintf(out, "SUCCESS (ISBN %s)\n", isbn)
		} else {
			fmt.Fprintf(out, "SUCCESS (+%d copies of ISBN %s)\n", copies, isbn)
		}
		ok++
	}
}

func isHeader(rec []string) bool {
	if len(rec) != len(header) {
		return false
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), col) {
			return false
		}
	}
	return true
}
