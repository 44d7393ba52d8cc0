package memory

import (
	"strings"
)

// umlautReplacer folds umlaut spellings so that "Bäume" and "Baeume" map to
// the same canonical form.
var umlautReplacer = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// minStemLen guards the suffix heuristics: a rule only fires when the
// remaining stem keeps at least this many characters.
const minStemLen = 3

// Canonicalize maps a surface token to its canonical dictionary form:
// trimmed, terminal punctuation stripped, lowercased, umlauts folded, and
// singularized by German suffix heuristics. Singularization is iterated to
// a fixpoint, which makes the whole function idempotent:
// Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(token string) string {
	w := strings.TrimSpace(token)
	w = strings.Trim(w, `.,!?;:"'()`)
	w = strings.ToLower(w)
	w = umlautReplacer.Replace(w)

	for {
		next := singularizeOnce(w)
		if next == w {
			break
		}
		// Umlaut plurals fold back once their suffix is gone: the stem of
		// "baeume" is "baeum", whose dictionary form is "baum".
		w = strings.ReplaceAll(next, "aeu", "au")
	}
	return w
}

// singularizeOnce applies the highest-priority matching suffix rule.
// "-innen" collapses to "-in" (Lehrerinnen -> Lehrerin) before the generic
// "-en" rule can misfire; the bare "-n" rule is blocked for "-in" words so
// feminine agent nouns keep their suffix.
func singularizeOnce(w string) string {
	switch {
	case strings.HasSuffix(w, "innen") && len(w)-3 >= minStemLen:
		return w[:len(w)-3]
	case strings.HasSuffix(w, "en") && len(w)-2 >= minStemLen:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "e") && len(w)-1 >= minStemLen:
		return w[:len(w)-1]
	case strings.HasSuffix(w, "n") && !strings.HasSuffix(w, "in") && len(w)-1 >= minStemLen:
		return w[:len(w)-1]
	}
	return w
}

// functionWords are high-frequency words excluded from vocabulary reviews:
// articles, pronouns, common prepositions and auxiliaries carry no recall
// value of their own.
var functionWords = map[string]struct{}{
	"der": {}, "die": {}, "das": {}, "den": {}, "dem": {}, "des": {},
	"ein": {},
	"ich": {}, "du": {}, "er": {}, "sie": {}, "es": {}, "wir": {}, "ihr": {},
	"und": {}, "oder": {}, "aber": {}, "nicht": {}, "auch": {},
	"in": {}, "an": {}, "auf": {}, "mit": {}, "von": {}, "zu": {}, "bei": {},
	"hab": {}, "hast": {}, "hat": {}, "sein": {}, "bin": {}, "bist": {},
	"ist": {}, "sind": {}, "seid": {}, "war": {}, "wird": {}, "werd": {},
}

// IsFunctionWord reports whether the canonical form is a function word.
func IsFunctionWord(canonical string) bool {
	_, ok := functionWords[canonical]
	return ok
}
