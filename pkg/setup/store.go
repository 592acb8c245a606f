package setup

import (
	"errors"
	"time"
)

// ErrDuplicate is returned by Store.Save when every (symbol, trigger) pair in
// the setup is already stored for the trading day.
var ErrDuplicate = errors.New("setup: duplicate setup")

// Stored is a persisted ticker setup. The store assigns the ID.
type Stored struct {
	ID       string
	Day      time.Time
	Source   string
	Setup    *TickerSetup
	StoredAt time.Time
}

// Store persists parsed setups. Save must enforce the write-time invariant
// that a (symbol, trigger) pair is stored at most once per trading day:
// signals whose trigger is already stored for that day and symbol are
// dropped, and ErrDuplicate is returned when nothing new remains.
type Store interface {
	Save(day time.Time, source string, ts *TickerSetup) (*Stored, error)
	List(day time.Time) ([]*Stored, error)
	BySymbol(day time.Time, symbol string) ([]*Stored, error)
	Close() error
}
