package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/martxel/setra"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/rs/zerolog"
)

func main() {
	// Create signal based context
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, os.Kill)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			cancel()
		}
		signal.Stop(c)
	}()

	// Local .env files override nothing, they only fill missing vars
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	// Launch command
	cmd := newCommand(logger)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("setra stopped")
	}
}

func newCommand(logger zerolog.Logger) *ffcli.Command {
	fs := flag.NewFlagSet("setra", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "setra [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newRunCommand(logger),
		},
	}
}

func newRunCommand(logger zerolog.Logger) *ffcli.Command {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	db := fs.String("db", "setra.db", "database path, trades go to a sibling file")
	key := fs.String("broker-key", "", "alpaca api key")
	secret := fs.String("broker-secret", "", "alpaca api secret")
	token := fs.String("telegram-token", "", "telegram token")
	controlChat := fs.Int("telegram-control-chat", 0, "telegram chat id for logs and commands")
	alertChat := fs.Int("telegram-alert-chat", 0, "telegram chat id to read setup alerts")
	source := fs.String("source", "alerts", "label recorded as the setups' source")
	parserName := fs.String("parser", "alerts", "parser to use: alerts or json")
	dashboardAddr := fs.String("dashboard-addr", "", "dashboard listen address, empty to disable")
	maxTrades := fs.Int("max-trades", 5, "max simultaneous trades")
	risk := fs.Float64("risk-ratio", 0.5, "fraction of cash split across the trade budget")
	autoTrade := fs.Bool("auto-trade", false, "open paper trades for stored setups")
	dry := fs.Bool("dry", false, "enable dry mode")
	debug := fs.Bool("debug", false, "enable debug mode")
	mtprotoID := fs.Int("mtproto-id", 0, "mtproto app id, 0 to disable the listener")
	mtprotoHash := fs.String("mtproto-hash", "", "mtproto app hash")
	mtprotoPhone := fs.String("mtproto-phone", "", "mtproto account phone number")
	mtprotoSession := fs.String("mtproto-session", "mtproto.session", "mtproto session file")
	mtprotoFrom := fs.Int64("mtproto-from", 0, "peer id of the alert channel to listen to")

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "setra run [flags]",
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("SETRA"),
		},
		ShortHelp: "run setra bot",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			if *db == "" {
				return errors.New("missing db path")
			}
			if *dry && !strings.HasSuffix(*db, ".dry.db") {
				*db = fmt.Sprintf("%s.dry.db", strings.TrimSuffix(*db, ".db"))
			}
			if *key == "" {
				return errors.New("missing broker api key")
			}
			if *secret == "" {
				return errors.New("missing broker api secret")
			}
			if *token == "" {
				return errors.New("missing telegram token")
			}
			if *controlChat == 0 {
				return errors.New("missing telegram control chat")
			}
			if *alertChat == 0 {
				return errors.New("missing telegram alert chat")
			}
			if *mtprotoID != 0 && (*mtprotoHash == "" || *mtprotoPhone == "" || *mtprotoFrom == 0) {
				return errors.New("mtproto listener needs hash, phone and from peer")
			}
			bot, err := setra.NewBot(setra.Config{
				Logger:        logger,
				SetupsDB:      *db,
				TradesDB:      fmt.Sprintf("%s.trades.db", strings.TrimSuffix(*db, ".db")),
				APIKey:        *key,
				APISecret:     *secret,
				Token:         *token,
				ControlChatID: *controlChat,
				AlertChatID:   *alertChat,
				Source:        *source,
				ParserName:    *parserName,
				DashboardAddr: *dashboardAddr,
				MaxTrades:     *maxTrades,
				RiskRatio:     *risk,
				AutoTrade:     *autoTrade,
				Dry:           *dry,
				Debug:         *debug,

				MTProtoID:      *mtprotoID,
				MTProtoHash:    *mtprotoHash,
				MTProtoPhone:   *mtprotoPhone,
				MTProtoSession: *mtprotoSession,
				MTProtoFromID:  *mtprotoFrom,
				MTProtoCode:    askCode,
			})
			if err != nil {
				return err
			}
			return bot.Run(ctx)
		},
	}
}

// askCode prompts for the telegram login code on stdin during the mtproto
// authentication flow.
func askCode(ctx context.Context) string {
	fmt.Print("telegram code: ")
	code, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(code)
}
