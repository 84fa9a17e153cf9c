package csvimport

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// Escaped characters that encoding/csv would otherwise interpret are parked
// on private-use runes while the record is split, then restored per field.
const (
	escQuote     = '\uE000'
	escDelimiter = '\uE001'
	escNewline   = '\uE002'
	escReturn    = '\uE003'
)

type escapeTransformer struct {
	transform.NopResetter
	delimiter rune
}

func newEscapeTransformer(delimiter rune) transform.Transformer {
	return escapeTransformer{delimiter: delimiter}
}

func (t escapeTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	var buf [utf8.UTFMax]byte
	for nSrc < len(src) {
		if src[nSrc] != '\\' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = src[nSrc]
			nDst++
			nSrc++
			continue
		}

		if nSrc+1 >= len(src) {
			if !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			// A trailing backslash is kept as is.
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = '\\'
			nDst++
			nSrc++
			continue
		}

		next, size := utf8.DecodeRune(src[nSrc+1:])
		if next == utf8.RuneError && size <= 1 && !atEOF && !utf8.FullRune(src[nSrc+1:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		switch next {
		case '"':
			next = escQuote
		case t.delimiter:
			next = escDelimiter
		case '\n':
			next = escNewline
		case '\r':
			next = escReturn
		}
		n := utf8.EncodeRune(buf[:], next)
		if nDst+n > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		copy(dst[nDst:], buf[:n])
		nDst += n
		nSrc += 1 + size
	}
	return nDst, nSrc, nil
}

func restoreEscaped(s string, delimiter rune) string {
	if !strings.ContainsAny(s, string([]rune{escQuote, escDelimiter, escNewline, escReturn})) {
		return s
	}
	return strings.NewReplacer(
		string(escQuote), `"`,
		string(escDelimiter), string(delimiter),
		string(escNewline), "\n",
		string(escReturn), "\r",
	).Replace(s)
}
