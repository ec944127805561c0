package retriever

import (
	"strings"
	"unicode"
)

// minTokenLen is the minimum significant-token length in runes.
const minTokenLen = 3

// stopwords covers generic intent words in the three supported languages so
// that "do you have panadol" reduces to just "panadol".
var stopwords = map[string]struct{}{
	// english
	"the": {}, "and": {}, "you": {}, "have": {}, "has": {}, "are": {}, "is": {},
	"any": {}, "for": {}, "need": {}, "want": {}, "please": {}, "price": {},
	"stock": {}, "available": {}, "availability": {}, "what": {}, "about": {},
	"can": {}, "get": {}, "buy": {}, "there": {}, "does": {}, "sell": {},
	"much": {}, "how": {}, "with": {}, "from": {}, "this": {}, "that": {},
	// french
	"les": {}, "des": {}, "une": {}, "est": {}, "vous": {}, "avez": {},
	"veux": {}, "prix": {}, "pour": {}, "disponible": {}, "bonjour": {},
	"est-ce": {}, "que": {}, "chez": {}, "acheter": {}, "combien": {},
	// arabic
	"هل": {}, "عندكم": {}, "يوجد": {}, "لديكم": {}, "من": {}, "في": {},
	"على": {}, "سعر": {}, "اريد": {}, "أريد": {}, "متوفر": {}, "عندك": {},
}

// SignificantTokens lowercases, splits on non-letter/digit runes and drops
// stopwords and tokens shorter than three runes. Arabic stopwords are exempt
// from the length floor since many are two runes long.
func SignificantTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		if len([]rune(f)) < minTokenLen && !isArabicToken(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// LongestToken returns the single longest significant token, the strongest
// keyword signal for substring matching.
func LongestToken(query string) string {
	longest := ""
	for _, tok := range SignificantTokens(query) {
		if len([]rune(tok)) > len([]rune(longest)) {
			longest = tok
		}
	}
	return longest
}

// IsShortQuery reports whether the query carries at most two significant
// tokens. Short queries retrieve sparser, noisier candidates and therefore
// use a lower acceptance floor.
func IsShortQuery(query string) bool {
	return len(SignificantTokens(query)) <= 2
}

func isArabicToken(tok string) bool {
	for _, r := range tok {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}
