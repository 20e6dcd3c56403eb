// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpret

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMarkets/pkg/validation"
)

// phraseSymbol maps a spoken name onto its trading symbol. Tables of these
// are ordered slices, not maps: matches accumulate in table order so the
// result is deterministic.
type phraseSymbol struct {
	phrase string
	symbol string
}

// metalSymbols resolves named precious metals to their forex-style symbols.
var metalSymbols = []phraseSymbol{
	{"gold", "XAU/USD"},
	{"silver", "XAG/USD"},
	{"platinum", "XPT/USD"},
	{"palladium", "XPD/USD"},
}

// cryptoSymbols resolves cryptocurrency names and short codes.
var cryptoSymbols = []phraseSymbol{
	{"bitcoin", "BTC/USD"},
	{"btc", "BTC/USD"},
	{"ethereum", "ETH/USD"},
	{"eth", "ETH/USD"},
	{"litecoin", "LTC/USD"},
	{"ltc", "LTC/USD"},
}

// companySymbols resolves well-known company names to tickers.
var companySymbols = []phraseSymbol{
	{"apple", "AAPL"},
	{"microsoft", "MSFT"},
	{"google", "GOOGL"},
	{"alphabet", "GOOGL"},
	{"amazon", "AMZN"},
	{"meta", "META"},
	{"facebook", "META"},
	{"nvidia", "NVDA"},
	{"tesla", "TSLA"},
	{"jpmorgan", "JPM"},
	{"jp morgan", "JPM"},
	{"walmart", "WMT"},
	{"johnson", "JNJ"},
	{"exxon", "XOM"},
	{"chevron", "CVX"},
}

// forexPairs are the major pairs recognized in both slashed ("EUR/USD") and
// collapsed ("EURUSD") form.
var forexPairs = []string{
	"EUR/USD", "GBP/USD", "USD/JPY", "USD/CHF", "AUD/USD", "USD/CAD",
	"NZD/USD", "EUR/GBP", "EUR/JPY", "GBP/JPY",
}

// commonStocks is the whitelist of tickers accepted as bare uppercase words.
var commonStocks = map[string]bool{
	"AAPL": true, "MSFT": true, "GOOGL": true, "GOOG": true, "AMZN": true,
	"META": true, "NVDA": true, "TSLA": true, "JPM": true, "V": true,
	"MA": true, "UNH": true, "JNJ": true, "WMT": true, "PG": true,
	"XOM": true, "CVX": true, "BAC": true,
}

// excludedWords keeps English stop-words, indicator acronyms, bare currency
// codes and time units from being mis-read as tickers.
var excludedWords = map[string]bool{
	"THE": true, "IS": true, "OF": true, "TO": true, "FOR": true, "AT": true,
	"BY": true, "IN": true, "ON": true, "AN": true, "IT": true,
	"WHAT": true, "HOW": true, "SHOW": true, "GET": true, "GIVE": true,
	"ME": true, "AND": true, "OR": true, "WITH": true,
	"PRICE": true, "COST": true, "WORTH": true, "VALUE": true, "RATE": true,
	"DATA": true, "QUOTE": true,
	"LAST": true, "PAST": true, "TODAY": true, "NOW": true, "CURRENT": true,
	"DAILY": true, "WEEKLY": true,
	"SMA": true, "EMA": true, "RSI": true, "MACD": true, "ADX": true,
	"ATR": true, "CCI": true, "OBV": true, "ROC": true,
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"AUD": true, "CAD": true, "NZD": true,
	"DAY": true, "WEEK": true, "MONTH": true, "YEAR": true, "HOUR": true,
	"MIN": true,
	"CAN": true, "YOU": true, "TELL": true, "ABOUT": true, "THIS": true,
	"THAT": true, "FROM": true, "ITS": true, "SAME": true, "ALSO": true,
	"TOO": true,
	"GOLD": true, "SILVER": true, "PLATINUM": true, "BITCOIN": true,
	"ETHEREUM": true,
	"JOKE": true, "FUNNY": true, "HELP": true, "HELLO": true, "HI": true,
	"BYE": true, "THANKS": true, "PLEASE": true,
	"STOCK": true, "STOCKS": true, "MARKET": true, "TRADING": true,
	"TRADE": true, "TRADES": true,
	"INFO": true, "KNOW": true, "WANT": true, "NEED": true, "LIKE": true,
}

// financialIntentPhrases gate the speculative-ticker fallback: a bare
// uppercase word is only treated as a ticker when the query sounds like a
// market question at all.
var financialIntentPhrases = []string{
	"price", "quote", "cost", "worth", "value", "trading at",
	"buy", "sell", "invest", "stock", "share", "ticker",
	"chart", "history", "historical", "candle", "ohlc",
	"indicator", "sma", "ema", "rsi", "macd",
}

var (
	tickerWordPattern   = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	explicitPairPattern = regexp.MustCompile(`\b([A-Z]{2,6}/[A-Z]{2,6})\b`)
)

// extractSymbols resolves trading symbols from the query text.
//
// # Description
//
// Resolution walks fixed phases in order, accumulating unique symbols:
// named metals, cryptocurrencies, company names, known forex pairs (slashed
// or collapsed), whitelisted tickers, then arbitrary PAIR/PAIR syntax. Only
// when all of that finds nothing AND the query carries a financial-intent
// phrase does the fallback accept the first unexcluded uppercase 2-5 letter
// word as a speculative ticker.
//
// Name matching is substring-based, so "golden" resolves the gold symbol;
// that looseness is intentional and covered by the excluded-words set where
// it bites.
func extractSymbols(query string) []string {
	var symbols []string
	seen := make(map[string]bool)
	// Every candidate passes the symbol validator before it can reach a
	// cache key or an upstream tool argument.
	add := func(symbol string) {
		if validation.ValidateSymbol(symbol) != nil {
			return
		}
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}

	upper := strings.ToUpper(query)
	lower := strings.ToLower(query)

	for _, entry := range metalSymbols {
		if strings.Contains(lower, entry.phrase) {
			add(entry.symbol)
		}
	}

	for _, entry := range cryptoSymbols {
		if strings.Contains(lower, entry.phrase) {
			add(entry.symbol)
		}
	}

	for _, entry := range companySymbols {
		if strings.Contains(lower, entry.phrase) {
			add(entry.symbol)
		}
	}

	for _, pair := range forexPairs {
		if strings.Contains(upper, pair) || strings.Contains(upper, strings.ReplaceAll(pair, "/", "")) {
			add(pair)
		}
	}

	// The word list is reused by the fallback below.
	words := tickerWordPattern.FindAllString(upper, -1)
	for _, word := range words {
		if commonStocks[word] && !excludedWords[word] {
			add(word)
		}
	}

	for _, match := range explicitPairPattern.FindAllStringSubmatch(upper, -1) {
		add(match[1])
	}

	if len(symbols) == 0 && containsAny(lower, financialIntentPhrases) {
		for _, word := range words {
			if !excludedWords[word] && len(word) >= 2 {
				add(word)
				break // only the first candidate counts
			}
		}
	}

	return symbols
}
