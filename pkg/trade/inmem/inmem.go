package inmem

import (
	"sync"
	"time"

	"github.com/martxel/setra/pkg/trade"
)

type Store struct {
	trades sync.Map
}

func (s *Store) List(from time.Time, to time.Time, finished bool) ([]*trade.Trade, error) {
	var trades []*trade.Trade
	s.trades.Range(func(key interface{}, value interface{}) bool {
		t := value.(*trade.Trade)
		if t.StartTime.Before(from) {
			return true
		}
		if t.StartTime.After(to) {
			return true
		}
		if t.Finished() != finished {
			return true
		}
		trades = append(trades, t)
		return true
	})
	return trades, nil
}

func (s *Store) Update(t *trade.Trade) error {
	s.trades.Store(t.StartTime, t)
	return nil
}

func (s *Store) Delete(t *trade.Trade) error {
	s.trades.Delete(t.StartTime)
	return nil
}
