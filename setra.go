package setra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/martxel/setra/pkg/broker"
	"github.com/martxel/setra/pkg/broker/alpaca"
	"github.com/martxel/setra/pkg/dashboard"
	"github.com/martxel/setra/pkg/metrics"
	"github.com/martxel/setra/pkg/mtproto"
	"github.com/martxel/setra/pkg/setup"
	setupbolt "github.com/martxel/setra/pkg/setup/bolt"
	"github.com/martxel/setra/pkg/setup/parser"
	"github.com/martxel/setra/pkg/telegram"
	"github.com/martxel/setra/pkg/trade"
	tradebolt "github.com/martxel/setra/pkg/trade/bolt"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var version = "v260824a"

// Config wires the bot together. Alert messages arrive from the signal chat,
// notifications and commands go through the control chat.
type Config struct {
	Logger        zerolog.Logger
	SetupsDB      string
	TradesDB      string
	APIKey        string
	APISecret     string
	Token         string
	ControlChatID int
	AlertChatID   int
	Source        string
	ParserName    string
	DashboardAddr string
	MaxTrades     int
	RiskRatio     float64
	AutoTrade     bool
	Dry           bool
	Debug         bool

	// Optional mtproto listener for alert channels the bot API can't join.
	MTProtoID      int
	MTProtoHash    string
	MTProtoPhone   string
	MTProtoSession string
	MTProtoFromID  int64
	MTProtoCode    func(context.Context) string
}

type Bot struct {
	run       func(context.Context) error
	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
	log       func(v ...interface{})
	broker    broker.Broker
	parser    setup.Parser
	source    string
	maxTrades int
	riskRatio float64
	autoTrade bool
	dry       bool
	watchers  map[string]*trade.Watcher
	lock      sync.Mutex
	setups    setup.Store
	trades    trade.Store
	metrics   *metrics.Recorder
	dashboard *dashboard.Server
	listener  interface {
		Listen(ctx context.Context) error
	}
}

func NewBot(cfg Config) (*Bot, error) {
	tgbot, err := telegram.New(cfg.Token, cfg.ControlChatID)
	if err != nil {
		return nil, fmt.Errorf("setra: couldn't create telegram bot: %w", err)
	}
	log := tgbot.Print

	var b broker.Broker
	if cfg.Dry {
		b = alpaca.NewDry(log, cfg.APIKey, cfg.APISecret, cfg.Debug)
	} else {
		b = alpaca.New(log, cfg.APIKey, cfg.APISecret, cfg.Debug)
	}

	name := cfg.ParserName
	if name == "" {
		name = "alerts"
	}
	p, err := parser.New(name)
	if err != nil {
		return nil, fmt.Errorf("setra: couldn't create parser %q: %w", name, err)
	}
	setups, err := setupbolt.New(cfg.SetupsDB)
	if err != nil {
		return nil, fmt.Errorf("setra: couldn't create setups db: %w", err)
	}
	trades, err := tradebolt.New(cfg.TradesDB)
	if err != nil {
		return nil, fmt.Errorf("setra: couldn't create trades db: %w", err)
	}

	bot := &Bot{
		ctx:       context.TODO(),
		run:       tgbot.Run,
		logger:    cfg.Logger,
		log:       log,
		broker:    b,
		parser:    p,
		source:    cfg.Source,
		maxTrades: cfg.MaxTrades,
		riskRatio: cfg.RiskRatio,
		autoTrade: cfg.AutoTrade,
		dry:       cfg.Dry,
		watchers:  make(map[string]*trade.Watcher),
		setups:    setups,
		trades:    trades,
		metrics:   metrics.New(),
	}
	if cfg.DashboardAddr != "" {
		bot.dashboard = dashboard.New(log, cfg.DashboardAddr, setups, trades)
	}
	if cfg.MTProtoID != 0 {
		bot.listener = mtproto.New(cfg.MTProtoID, cfg.MTProtoHash, cfg.MTProtoPhone,
			cfg.MTProtoSession, cfg.MTProtoFromID, log, bot.handle, cfg.MTProtoCode)
	}

	tgbot.HandleAlerts(int64(cfg.AlertChatID), true, func(msg string, at time.Time) {
		bot.handle(msg, at)
	})
	tgbot.HandleCommand("status", func(_ string) {
		bot.status()
	})
	tgbot.HandleCommand("setups", func(_ string) {
		bot.todaySetups()
	})
	tgbot.HandleCommand("close", func(msg string) {
		bot.close(strings.ToUpper(strings.TrimSpace(msg)))
	})
	tgbot.HandleCommand("shutdown", func(_ string) {
		bot.log("shutting down")
		bot.shutdown()
	})
	return bot, nil
}

func (b *Bot) Run(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.log(fmt.Sprintf("🤖 setra bot running\n- version: %s\n- dry mode: %t\n- auto trade: %t", version, b.dry, b.autoTrade))
	defer b.log("🛑 setra bot stopped")
	if err := b.resume(); err != nil {
		b.log(err)
	}
	g, ctx := errgroup.WithContext(b.ctx)
	g.Go(func() error {
		return b.run(ctx)
	})
	if b.dashboard != nil {
		g.Go(func() error {
			return b.dashboard.Run(ctx)
		})
	}
	if b.listener != nil {
		g.Go(func() error {
			return b.listener.Listen(ctx)
		})
	}
	return g.Wait()
}

// handle parses one alert message and stores whatever setups it carries.
// Setups whose inferred day no longer applies to the receipt day are
// ignored, and duplicate (symbol, trigger) pairs are rejected by the store.
func (b *Bot) handle(text string, at time.Time) {
	b.metrics.Message(b.source)
	batch, err := b.parser.Parse(text, at, b.source)
	if err != nil {
		b.log(err)
		return
	}
	b.metrics.Batch(b.source)
	if len(batch.Tickers) == 0 {
		return
	}
	if !setup.RelevantForDay(batch.Date, at) {
		b.logger.Debug().
			Time("date", batch.Date).
			Time("received", at).
			Msg("setups no longer relevant")
		return
	}
	for _, ts := range batch.Tickers {
		stored, err := b.setups.Save(batch.Date, b.source, ts)
		if errors.Is(err, setup.ErrDuplicate) {
			b.metrics.Duplicate(ts.Symbol)
			b.logger.Debug().Str("symbol", ts.Symbol).Msg("duplicate setup skipped")
			continue
		}
		if err != nil {
			b.log(err)
			continue
		}
		b.metrics.Stored(stored.Setup.Symbol)
		b.announce(stored)
		if !b.autoTrade {
			continue
		}
		for _, sig := range stored.Setup.Signals {
			if err := b.open(stored.Setup, sig); err != nil {
				b.log(err)
			}
		}
	}
}

// announce posts a one-line summary per stored setup to the control chat.
func (b *Bot) announce(st *setup.Stored) {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "📣 %s (%s)", st.Setup.Symbol, st.Day.Format("Jan 2"))
	for _, sig := range st.Setup.Signals {
		trigger := sig.Trigger.String()
		if sig.Comparison == setup.Range {
			trigger = fmt.Sprintf("%s-%s", sig.Trigger, sig.TriggerHigh)
		}
		fmt.Fprintf(sb, "\n- %s %s %s", sig.Category, sig.Comparison, trigger)
		if len(sig.Targets) > 0 {
			var targets []string
			for _, t := range sig.Targets {
				targets = append(targets, t.String())
			}
			fmt.Fprintf(sb, " → %s", strings.Join(targets, ", "))
		}
		if sig.Aggressiveness != setup.None {
			fmt.Fprintf(sb, " (%s)", sig.Aggressiveness)
		}
	}
	if bias := st.Setup.Bias; bias != nil {
		fmt.Fprintf(sb, "\n- %s bias %s %s", bias.Direction, bias.Condition, bias.Price)
		if bias.Flip != nil {
			fmt.Fprintf(sb, ", flips %s at %s", bias.Flip.Direction, bias.Flip.Price)
		}
	}
	b.log(sb.String())
}

// open starts a watcher for one signal. Position size is the configured
// slice of account cash divided across the trade budget.
func (b *Bot) open(ts *setup.TickerSetup, sig *setup.Signal) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.watchers) >= b.maxTrades {
		return fmt.Errorf("maximum number of trades running: %d", len(b.watchers))
	}
	key := watcherKey(ts.Symbol, sig.Trigger)
	if _, ok := b.watchers[key]; ok {
		return fmt.Errorf("there is already a running trade for %s", key)
	}

	cash, err := b.broker.Cash(b.ctx)
	if err != nil {
		return fmt.Errorf("couldn't get cash balance: %w", err)
	}
	qty := cash.
		Mul(decimal.NewFromFloat(b.riskRatio)).
		Div(decimal.NewFromInt(int64(b.maxTrades))).
		Div(sig.Trigger).
		Round(0)
	if qty.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("setra: not enough cash for one share of %s", ts.Symbol)
	}

	var stop decimal.Decimal
	if ts.Bias != nil && ts.Bias.Flip != nil {
		stop = ts.Bias.Flip.Price
	}
	tr := trade.New(ts.Symbol, sig, stop, qty)
	w := trade.NewWatcher(b.log, b.broker, tr, 5*time.Second, b.trades.Update)
	w.OnPrice(b.metrics.Price)
	b.watchers[key] = w
	go func() {
		b.watch(key, w)
	}()
	return nil
}

func (b *Bot) watch(key string, w *trade.Watcher) {
	defer func() {
		b.lock.Lock()
		delete(b.watchers, key)
		b.lock.Unlock()
	}()
	b.metrics.TradeOpened(w.Symbol)
	b.log(fmt.Sprintf("⚙️ watching %s", key))
	err := w.Run(b.ctx)
	if err != nil {
		b.log(err)
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, broker.ErrOrderCanceled) {
		b.log(fmt.Sprintf("⚠️ %s finished with error because order was canceled, it will be removed from database", key))
		if err := b.trades.Delete(w.Trade); err != nil {
			b.log(fmt.Errorf("setra: couldn't delete trade: %w", err))
		}
		return
	}
	b.metrics.TradeClosed(w.Symbol)
	if !w.Finished() {
		return
	}
	profit, perc, elapsed := w.Status()
	emoji := "💰"
	if profit.LessThan(decimal.Zero) {
		emoji = "❌"
	}
	b.log(emoji, fmt.Sprintf("finished %s %s%% %s %s", key, perc.Mul(decimal.NewFromInt(100)).StringFixed(2), profit.StringFixed(2), elapsed.Round(time.Second)))
}

// resume restarts watchers for unfinished trades after a reboot.
func (b *Bot) resume() error {
	to := time.Now().UTC().Add(24 * time.Hour)
	from := time.Now().UTC().Add(-365 * 24 * time.Hour)
	trades, err := b.trades.List(from, to, false)
	if err != nil {
		return fmt.Errorf("setra: couldn't get trades from db: %w", err)
	}
	for _, tr := range trades {
		tr := tr
		w := trade.NewWatcher(b.log, b.broker, tr, 5*time.Second, b.trades.Update)
		w.OnPrice(b.metrics.Price)
		key := watcherKey(tr.Symbol, tr.Trigger)
		b.lock.Lock()
		b.watchers[key] = w
		b.lock.Unlock()
		go func() {
			b.watch(key, w)
		}()
	}
	return nil
}

func (b *Bot) status() {
	b.lock.Lock()
	watchers := make([]*trade.Watcher, 0, len(b.watchers))
	for _, w := range b.watchers {
		watchers = append(watchers, w)
	}
	b.lock.Unlock()
	if len(watchers) == 0 {
		b.log("no trades running")
		return
	}

	// Sort watchers by start time
	sort.Slice(watchers, func(i, j int) bool {
		return watchers[i].StartTime.Before(watchers[j].StartTime)
	})

	sb := &strings.Builder{}
	totalProfit := decimal.Zero
	for _, w := range watchers {
		if !w.Entered() {
			fmt.Fprintf(sb, "⏳ %s waiting for %s %s\n", w.Symbol, w.Comparison, w.Trigger)
			continue
		}
		profit, perc, elapsed := w.Status()
		totalProfit = totalProfit.Add(profit)
		emoji := "📈"
		if profit.LessThan(decimal.Zero) {
			emoji = "📉"
		}
		fmt.Fprintf(sb, "%s %s %s%% %s %s\n", emoji, w.Symbol, perc.Mul(decimal.NewFromInt(100)).StringFixed(2), profit.StringFixed(2), elapsed.Round(time.Second))
	}
	fmt.Fprintf(sb, "Total: %s", totalProfit.StringFixed(2))
	b.log(sb.String())
}

func (b *Bot) todaySetups() {
	stored, err := b.setups.List(time.Now().UTC())
	if err != nil {
		b.log(fmt.Errorf("setra: couldn't list setups: %w", err))
		return
	}
	if len(stored) == 0 {
		b.log("no setups stored for today")
		return
	}
	for _, st := range stored {
		b.announce(st)
	}
}

// close force-closes every watcher of a symbol.
func (b *Bot) close(symbol string) {
	b.lock.Lock()
	var found []*trade.Watcher
	for key, w := range b.watchers {
		if w.Symbol == symbol {
			b.log(fmt.Sprintf("closing %s", key))
			found = append(found, w)
		}
	}
	b.lock.Unlock()
	if len(found) == 0 {
		b.log(fmt.Sprintf("no running trade for %s", symbol))
		return
	}
	for _, w := range found {
		w.Close()
	}
}

func (b *Bot) shutdown() {
	b.cancel()
}

func watcherKey(symbol string, trigger decimal.Decimal) string {
	return fmt.Sprintf("%s@%s", symbol, trigger)
}
