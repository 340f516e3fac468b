package services

import (
	"unicode"
	"unicode/utf8"
)

type pauseClass int

const (
	pauseNone pauseClass = iota
	pauseClause
	pauseTerminal
)

// Uthmani script marks pauses with small high signs rather than Latin punctuation.
var pauseMarks = map[rune]pauseClass{
	'.':      pauseTerminal,
	'!':      pauseTerminal,
	'?':      pauseTerminal,
	'…':      pauseTerminal,
	'。':      pauseTerminal,
	'！':      pauseTerminal,
	'？':      pauseTerminal,
	'\u061F': pauseTerminal, // arabic question mark
	'\u06D4': pauseTerminal, // arabic full stop
	'\u06D7': pauseTerminal, // qaf-lam: stopping preferred
	'\u06D8': pauseTerminal, // meem: compulsory stop
	'\u06DD': pauseTerminal, // end of ayah

	',':      pauseClause,
	';':      pauseClause,
	':':      pauseClause,
	'\u060C': pauseClause, // arabic comma
	'\u061B': pauseClause, // arabic semicolon
	'\u06D6': pauseClause, // sad-lam: continuing preferred
	'\u06DA': pauseClause, // jeem: permissible stop
	'\u06DB': pauseClause, // three dots: paired stop
	'\u06DC': pauseClause, // seen: brief pause
}

func classify(r rune) pauseClass {
	return pauseMarks[r]
}

// closers may trail a clause mark without hiding it ("word."" or "word.)").
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’':
		return true
	}
	return false
}

// trailingPause returns the pause class a token ends with.
func trailingPause(token string) pauseClass {
	for len(token) > 0 {
		r, size := utf8.DecodeLastRuneInString(token)
		if isCloser(r) {
			token = token[:len(token)-size]
			continue
		}
		return classify(r)
	}
	return pauseNone
}

// hasWordContent reports whether token holds a letter or digit, so
// stand-alone pause marks are not counted as words.
func hasWordContent(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
