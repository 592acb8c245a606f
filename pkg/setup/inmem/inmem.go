// Package inmem is an in-memory setup store used by tests and dry runs.
package inmem

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/martxel/setra/pkg/setup"
)

type Store struct {
	mu       sync.Mutex
	setups   []*setup.Stored
	triggers map[string]struct{}
}

func New() *Store {
	return &Store{
		triggers: make(map[string]struct{}),
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Save(day time.Time, source string, ts *setup.TickerSetup) (*setup.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := setup.Day(day)
	kept := &setup.TickerSetup{
		Symbol:     ts.Symbol,
		Raw:        ts.Raw,
		Bias:       ts.Bias,
		Support:    ts.Support,
		Resistance: ts.Resistance,
	}
	var keys []string
	for _, sig := range ts.Signals {
		key := triggerKey(d, ts.Symbol, sig)
		if _, ok := s.triggers[key]; ok {
			continue
		}
		kept.Signals = append(kept.Signals, sig)
		keys = append(keys, key)
	}
	if len(kept.Signals) == 0 {
		if len(ts.Signals) > 0 {
			return nil, setup.ErrDuplicate
		}
		key := triggerKey(d, ts.Symbol, nil)
		if _, ok := s.triggers[key]; ok {
			return nil, setup.ErrDuplicate
		}
		keys = append(keys, key)
	}
	stored := &setup.Stored{
		ID:       uuid.NewString(),
		Day:      d,
		Source:   source,
		Setup:    kept,
		StoredAt: time.Now().UTC(),
	}
	for _, key := range keys {
		s.triggers[key] = struct{}{}
	}
	s.setups = append(s.setups, stored)
	return stored, nil
}

func (s *Store) List(day time.Time) ([]*setup.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := setup.Day(day)
	var out []*setup.Stored
	for _, st := range s.setups {
		if st.Day.Equal(d) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) BySymbol(day time.Time, symbol string) ([]*setup.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := setup.Day(day)
	var out []*setup.Stored
	for _, st := range s.setups {
		if st.Day.Equal(d) && st.Setup.Symbol == symbol {
			out = append(out, st)
		}
	}
	return out, nil
}

func triggerKey(day time.Time, symbol string, sig *setup.Signal) string {
	trigger := ""
	if sig != nil {
		trigger = sig.Trigger.String()
		if sig.Comparison == setup.Range {
			trigger = fmt.Sprintf("%s-%s", sig.Trigger, sig.TriggerHigh)
		}
	}
	return fmt.Sprintf("%s/%s/%s", day.Format("2006-01-02"), symbol, trigger)
}
