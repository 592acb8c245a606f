package alerts

import (
	"regexp"
	"strings"
)

// section is one contiguous span of message text belonging to a ticker.
type section struct {
	symbol string
	text   string
}

var (
	blockSplit = regexp.MustCompile(`\n[ \t]*\n`)
	symbolRe   = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// symbolScanWindow is how deep into a block a ticker symbol may appear.
// Symbols come first in real alerts, possibly behind a checkmark glyph,
// a "1)" / "2." numbering prefix or a dollar sign.
const symbolScanWindow = 15

// stopwords are uppercase tokens that look like tickers but never are.
var stopwords = map[string]struct{}{
	"A": {}, "I": {}, "ALL": {}, "AND": {}, "ARE": {}, "BE": {}, "BIG": {},
	"BUY": {}, "DAY": {}, "EOD": {}, "ET": {}, "EST": {}, "FOR": {},
	"GO": {}, "HOLD": {}, "IF": {}, "IN": {}, "IS": {}, "IT": {}, "KEY": {},
	"LONG": {}, "NEAR": {}, "NEW": {}, "NO": {}, "NOT": {}, "NOTE": {},
	"OF": {}, "ON": {}, "OR": {}, "OUT": {}, "PLAN": {}, "PM": {}, "AM": {},
	"RISK": {}, "SELL": {}, "SHORT": {}, "SO": {}, "STOP": {}, "THE": {},
	"TO": {}, "TOP": {}, "TRADE": {}, "UP": {}, "VS": {}, "WATCH": {},
	"WE": {}, "WITH": {},
}

// sections splits the message body on blank lines and assigns each block to
// the first recognizable ticker symbol near its start. Blocks with no
// recognizable symbol are dropped, and a symbol that already owns a section
// keeps its first one.
func sections(text string) []section {
	var out []section
	seen := map[string]struct{}{}
	for _, block := range blockSplit.Split(text, -1) {
		block = strings.Trim(block, " \t\r\n")
		if block == "" {
			continue
		}
		sym, ok := blockSymbol(block)
		if !ok {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, section{symbol: sym, text: block})
	}
	return out
}

// blockSymbol finds the ticker a block belongs to: the first 1-5 letter
// uppercase token within the scan window that isn't a stopword.
func blockSymbol(block string) (string, bool) {
	head := block
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	runes := []rune(head)
	if len(runes) > symbolScanWindow {
		head = string(runes[:symbolScanWindow])
	}
	for _, m := range symbolRe.FindAllString(head, -1) {
		if _, stop := stopwords[m]; stop {
			continue
		}
		return m, true
	}
	return "", false
}
