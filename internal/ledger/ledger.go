// Package ledger is the durable, append-only record of completed orders:
// a flat CSV file, one row per export, header written exactly once.
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/money"
)

// Header is the first row of a freshly created ledger file.
var Header = []string{"User ID", "Username", "Date", "Channel", "Items", "Total"}

const (
	itemDelimiter = " | "
	itemSeparator = " - "
	dateLayout    = "02/01/06 15:04"
)

// Record is one completed-order export. Items hold "<title> - <priceText>"
// fragments in cart order.
type Record struct {
	UserID    string
	UserName  string
	Timestamp time.Time
	Channel   string
	Items     []string
	Total     decimal.Decimal
}

// ItemFragment renders one ledger item sub-field.
func ItemFragment(title, priceText string) string {
	return title + itemSeparator + priceText
}

// Store appends and reads ledger rows. In-process writers serialize on the
// mutex; cross-process writers serialize on the Lock. Append never rewrites
// existing rows, so a crash can at worst leave a dangling header.
type Store struct {
	path string
	lock Lock

	mu sync.Mutex
}

// NewStore builds a ledger store at the given path. lock may be nil when the
// process is the only writer.
func NewStore(path string, lock Lock) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path required")
	}
	if lock == nil {
		lock = NoopLock{}
	}
	return &Store{path: path, lock: lock}, nil
}

// Path returns the backing file location, used by the download command.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether any ledger file has been written yet.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Append writes one record, creating the file with its header on first use.
// The header-check-then-write sequence runs under the exclusive lock so a
// concurrent writer cannot interleave.
func (s *Store) Append(ctx context.Context, record Record) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring ledger lock")
	}
	if !locked {
		return pkgerrors.New(pkgerrors.CodeDependency, "ledger is busy, try again")
	}
	defer func() { _ = s.lock.Release(ctx) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	info, statErr := os.Stat(s.path)
	writeHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening ledger")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(Header); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing ledger header")
		}
	}
	row := []string{
		record.UserID,
		record.UserName,
		record.Timestamp.UTC().Format(dateLayout),
		record.Channel,
		strings.Join(record.Items, itemDelimiter),
		money.Format(record.Total),
	}
	if err := w.Write(row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing ledger row")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flushing ledger")
	}
	return nil
}

// ReadAll returns every record in file order. Malformed Items fields read
// as zero sub-items and malformed prices as zero; a headerless or empty
// file reads as no records.
func (s *Store) ReadAll(ctx context.Context) ([]Record, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening ledger")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading ledger")
	}

	var records []Record
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		if len(row) < 4 {
			continue
		}
		record := Record{
			UserID:   row[0],
			UserName: row[1],
			Channel:  row[3],
		}
		if ts, err := time.Parse(dateLayout, row[2]); err == nil {
			record.Timestamp = ts.UTC()
		}
		if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
			record.Items = strings.Split(row[4], itemDelimiter)
		}
		if len(row) > 5 {
			record.Total = money.Parse(row[5])
		}
		records = append(records, record)
	}
	return records, nil
}

// SplitItem partitions an Items sub-field into title and price text. A
// fragment with no separator reads as an unpriced title.
func SplitItem(fragment string) (title, priceText string) {
	title, priceText, _ = strings.Cut(fragment, itemSeparator)
	return title, priceText
}

func isHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, field := range row {
		if field != Header[i] {
			return false
		}
	}
	return true
}
