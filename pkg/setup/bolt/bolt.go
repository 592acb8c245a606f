// Package bolt stores parsed setups in a BoltDB file. The trigger index
// bucket enforces at write time that a (symbol, trigger) pair is stored at
// most once per trading day.
package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/martxel/setra/pkg/setup"
)

var (
	setupsBucket   = []byte("setups")
	triggersBucket = []byte("triggers")
)

const dayFormat = "2006-01-02"

type Store struct {
	db *bolt.DB
}

func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt: couldn't open bolt db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(setupsBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(triggersBucket); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one ticker setup for a trading day. Signals whose trigger is
// already indexed for that day and symbol are dropped before writing; when
// nothing new remains the whole setup is rejected with setup.ErrDuplicate.
func (s *Store) Save(day time.Time, source string, ts *setup.TickerSetup) (*setup.Stored, error) {
	stored := &setup.Stored{
		ID:       uuid.NewString(),
		Day:      setup.Day(day),
		Source:   source,
		StoredAt: time.Now().UTC(),
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		triggers := tx.Bucket(triggersBucket)
		kept := &setup.TickerSetup{
			Symbol:     ts.Symbol,
			Raw:        ts.Raw,
			Bias:       ts.Bias,
			Support:    ts.Support,
			Resistance: ts.Resistance,
		}
		var keys [][]byte
		for _, sig := range ts.Signals {
			key := triggerKey(stored.Day, ts.Symbol, sig)
			if triggers.Get(key) != nil {
				continue
			}
			kept.Signals = append(kept.Signals, sig)
			keys = append(keys, key)
		}
		if len(kept.Signals) == 0 {
			if len(ts.Signals) > 0 {
				return setup.ErrDuplicate
			}
			// Commentary-only setups carry no trigger, dedupe per symbol.
			key := triggerKey(stored.Day, ts.Symbol, nil)
			if triggers.Get(key) != nil {
				return setup.ErrDuplicate
			}
			keys = append(keys, key)
		}
		stored.Setup = kept
		for _, key := range keys {
			if err := triggers.Put(key, []byte(stored.ID)); err != nil {
				return err
			}
		}
		byt, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("couldn't encode: %w", err)
		}
		return tx.Bucket(setupsBucket).Put(setupKey(stored), byt)
	}); err != nil {
		if err == setup.ErrDuplicate {
			return nil, err
		}
		return nil, fmt.Errorf("bolt: couldn't save setup %s: %w", ts.Symbol, err)
	}
	return stored, nil
}

func (s *Store) List(day time.Time) ([]*setup.Stored, error) {
	prefix := []byte(setup.Day(day).Format(dayFormat) + "/")
	return s.scan(prefix)
}

func (s *Store) BySymbol(day time.Time, symbol string) ([]*setup.Stored, error) {
	prefix := []byte(setup.Day(day).Format(dayFormat) + "/" + symbol + "/")
	return s.scan(prefix)
}

func (s *Store) scan(prefix []byte) ([]*setup.Stored, error) {
	var out []*setup.Stored
	if err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(setupsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var st setup.Stored
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("couldn't decode: %w", err)
			}
			out = append(out, &st)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't query: %w", err)
	}
	return out, nil
}

func setupKey(st *setup.Stored) []byte {
	return []byte(fmt.Sprintf("%s/%s/%s", st.Day.Format(dayFormat), st.Setup.Symbol, st.ID))
}

// triggerKey builds the uniqueness key for one signal, or the symbol-wide
// key when sig is nil.
func triggerKey(day time.Time, symbol string, sig *setup.Signal) []byte {
	trigger := ""
	if sig != nil {
		trigger = sig.Trigger.String()
		if sig.Comparison == setup.Range {
			trigger = fmt.Sprintf("%s-%s", sig.Trigger, sig.TriggerHigh)
		}
	}
	return []byte(fmt.Sprintf("%s/%s/%s", day.Format(dayFormat), symbol, trigger))
}
