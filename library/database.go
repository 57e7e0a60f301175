package library

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database persists library snapshots in SQLite.
type Database struct {
	db *sqlx.DB

	insertBookStmt     *sqlx.Stmt
	insertBorrowerStmt *sqlx.Stmt
	insertRatingStmt   *sqlx.Stmt
	insertMemberStmt   *sqlx.Stmt
	insertLoanStmt     *sqlx.Stmt
	insertHistoryStmt  *sqlx.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares the statements used by Save.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps PRAGMAs and the write transaction on the same handle.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sqlx.Stmt{
		d.insertBookStmt, d.insertBorrowerStmt, d.insertRatingStmt,
		d.insertMemberStmt, d.insertLoanStmt, d.insertHistoryStmt,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            seq INTEGER NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            category TEXT NOT NULL,
            total_copies INTEGER NOT NULL CHECK (total_copies >= 0),
            available_copies INTEGER NOT NULL CHECK (available_copies BETWEEN 0 AND total_copies)
        );`,
		`CREATE TABLE IF NOT EXISTS book_borrowers (
            isbn TEXT NOT NULL REFERENCES books(isbn) ON DELETE CASCADE,
            pos INTEGER NOT NULL,
            member_id TEXT NOT NULL,
            PRIMARY KEY (isbn, pos)
        );`,
		`CREATE TABLE IF NOT EXISTS book_ratings (
            isbn TEXT NOT NULL REFERENCES books(isbn) ON DELETE CASCADE,
            pos INTEGER NOT NULL,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            PRIMARY KEY (isbn, pos)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            member_id TEXT PRIMARY KEY,
            seq INTEGER NOT NULL,
            name TEXT NOT NULL,
            fines_cents INTEGER NOT NULL CHECK (fines_cents >= 0)
        );`,
		`CREATE TABLE IF NOT EXISTS current_loans (
            member_id TEXT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
            isbn TEXT NOT NULL,
            borrow_date TEXT NOT NULL,
            PRIMARY KEY (member_id, isbn)
        );`,
		`CREATE TABLE IF NOT EXISTS loan_history (
            loan_id TEXT NOT NULL,
            member_id TEXT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
            pos INTEGER NOT NULL,
            isbn TEXT NOT NULL,
            title TEXT NOT NULL,
            borrow_date TEXT NOT NULL,
            return_date TEXT NOT NULL,
            fine_cents INTEGER NOT NULL,
            PRIMARY KEY (member_id, pos)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertBookStmt, err = d.db.Preparex(`INSERT INTO books(isbn,seq,title,author,category,total_copies,available_copies) VALUES(?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertBorrowerStmt, err = d.db.Preparex(`INSERT INTO book_borrowers(isbn,pos,member_id) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.insertRatingStmt, err = d.db.Preparex(`INSERT INTO book_ratings(isbn,pos,rating) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.insertMemberStmt, err = d.db.Preparex(`INSERT INTO members(member_id,seq,name,fines_cents) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	if d.insertLoanStmt, err = d.db.Preparex(`INSERT INTO current_loans(member_id,isbn,borrow_date) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.insertHistoryStmt, err = d.db.Preparex(`INSERT INTO loan_history(loan_id,member_id,pos,isbn,title,borrow_date,return_date,fine_cents) VALUES(?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Snapshot persistence
// ---------------------------------------------------------------------------

// Save replaces every stored row with the snapshot in one transaction.
func (d *Database) Save(s *Snapshot) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Child rows go with their parents through ON DELETE CASCADE.
	if _, err := tx.Exec(`DELETE FROM members`); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}

	insertBook := tx.Stmtx(d.insertBookStmt)
	insertBorrower := tx.Stmtx(d.insertBorrowerStmt)
	insertRating := tx.Stmtx(d.insertRatingStmt)
	insertMember := tx.Stmtx(d.insertMemberStmt)
	insertLoan := tx.Stmtx(d.insertLoanStmt)
	insertHistory := tx.Stmtx(d.insertHistoryStmt)

	for seq, b := range s.Books {
		if _, err := insertBook.Exec(b.ISBN, seq, b.Title, b.Author, b.Category, b.TotalCopies, b.AvailableCopies); err != nil {
			return fmt.Errorf("save book %s: %w", b.ISBN, err)
		}
		for pos, memberID := range b.Borrowers {
			if _, err := insertBorrower.Exec(b.ISBN, pos, memberID); err != nil {
				return fmt.Errorf("save borrower of %s: %w", b.ISBN, err)
			}
		}
		for pos, rating := range b.Ratings {
			if _, err := insertRating.Exec(b.ISBN, pos, rating); err != nil {
				return fmt.Errorf("save rating of %s: %w", b.ISBN, err)
			}
		}
	}

	for seq, m := range s.Members {
		if _, err := insertMember.Exec(m.ID, seq, m.Name, int64(m.Fines)); err != nil {
			return fmt.Errorf("save member %s: %w", m.ID, err)
		}
		for isbn, borrowed := range m.CurrentLoans {
			if _, err := insertLoan.Exec(m.ID, isbn, borrowed.String()); err != nil {
				return fmt.Errorf("save loan of %s: %w", m.ID, err)
			}
		}
		for pos, rec := range m.History {
			if _, err := insertHistory.Exec(rec.ID, m.ID, pos, rec.ISBN, rec.Title,
				rec.BorrowDate.String(), rec.ReturnDate.String(), int64(rec.Fine)); err != nil {
				return fmt.Errorf("save history of %s: %w", m.ID, err)
			}
		}
	}

	return tx.Commit()
}

type bookRow struct {
	ISBN            string `db:"isbn"`
	Title           string `db:"title"`
	Author          string `db:"author"`
	Category        string `db:"category"`
	TotalCopies     int    `db:"total_copies"`
	AvailableCopies int    `db:"available_copies"`
}

type memberRow struct {
	ID         string `db:"member_id"`
	Name       string `db:"name"`
	FinesCents int64  `db:"fines_cents"`
}

type loanRow struct {
	MemberID   string `db:"member_id"`
	ISBN       string `db:"isbn"`
	BorrowDate string `db:"borrow_date"`
}

type historyRow struct {
	LoanID     string `db:"loan_id"`
	MemberID   string `db:"member_id"`
	ISBN       string `db:"isbn"`
	Title      string `db:"title"`
	BorrowDate string `db:"borrow_date"`
	ReturnDate string `db:"return_date"`
	FineCents  int64  `db:"fine_cents"`
}

// Load reads the whole state back in insertion order.
func (d *Database) Load() (*Snapshot, error) {
	snap := &Snapshot{}

	var books []bookRow
	if err := d.db.Select(&books, `SELECT isbn,title,author,category,total_copies,available_copies FROM books ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	byISBN := make(map[string]*Book, len(books))
	for _, r := range books {
		b := &Book{
			ISBN:            r.ISBN,
			Title:           r.Title,
			Author:          r.Author,
			Category:        r.Category,
			TotalCopies:     r.TotalCopies,
			AvailableCopies: r.AvailableCopies,
			Borrowers:       []string{},
			Ratings:         []int{},
		}
		byISBN[b.ISBN] = b
		snap.Books = append(snap.Books, b)
	}

	var borrowers []struct {
		ISBN     string `db:"isbn"`
		MemberID string `db:"member_id"`
	}
	if err := d.db.Select(&borrowers, `SELECT isbn,member_id FROM book_borrowers ORDER BY isbn,pos`); err != nil {
		return nil, fmt.Errorf("load borrowers: %w", err)
	}
	for _, r := range borrowers {
		b := byISBN[r.ISBN]
		b.Borrowers = append(b.Borrowers, r.MemberID)
	}

	var ratings []struct {
		ISBN   string `db:"isbn"`
		Rating int    `db:"rating"`
	}
	if err := d.db.Select(&ratings, `SELECT isbn,rating FROM book_ratings ORDER BY isbn,pos`); err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	for _, r := range ratings {
		b := byISBN[r.ISBN]
		b.Ratings = append(b.Ratings, r.Rating)
	}

	var members []memberRow
	if err := d.db.Select(&members, `SELECT member_id,name,fines_cents FROM members ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	byID := make(map[string]*Member, len(members))
	for _, r := range members {
		m := &Member{
			ID:           r.ID,
			Name:         r.Name,
			CurrentLoans: map[string]Date{},
			History:      []LoanRecord{},
			Fines:        Amount(r.FinesCents),
		}
		byID[m.ID] = m
		snap.Members = append(snap.Members, m)
	}

	var loans []loanRow
	if err := d.db.Select(&loans, `SELECT member_id,isbn,borrow_date FROM current_loans`); err != nil {
		return nil, fmt.Errorf("load current loans: %w", err)
	}
	for _, r := range loans {
		borrowed, err := ParseDate(r.BorrowDate)
		if err != nil {
			return nil, fmt.Errorf("load current loans: %w", err)
		}
		byID[r.MemberID].CurrentLoans[r.ISBN] = borrowed
	}

	var history []historyRow
	if err := d.db.Select(&history, `SELECT loan_id,member_id,isbn,title,borrow_date,return_date,fine_cents FROM loan_history ORDER BY member_id,pos`); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, r := range history {
		borrowed, err := ParseDate(r.BorrowDate)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		returned, err := ParseDate(r.ReturnDate)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		m := byID[r.MemberID]
		m.History = append(m.History, LoanRecord{
			ID:         r.LoanID,
			ISBN:       r.ISBN,
			Title:      r.Title,
			BorrowDate: borrowed,
			ReturnDate: returned,
			Fine:       Amount(r.FineCents),
		})
	}

	return snap, nil
}
