// Package moderation screens chat messages for prohibited content before the
// broker commits and broadcasts them. It combines a banned-term filter (with
// leetspeak normalization) and spam-pattern heuristics.
package moderation

import "strings"

// defaultTerms is the built-in banned-term list. Single words are matched
// token-exact; multi-word entries are matched as phrases with word
// boundaries.
var defaultTerms = []string{
	"kill yourself",
	"kys",
	"go die",
	"neck yourself",
}

// leetReplacer maps common character substitutions back to letters before
// the second matching pass, so "b@dw0rd" is screened as "badword".
var leetReplacer = strings.NewReplacer(
	"@", "a",
	"$", "s",
	"!", "i",
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
)

// FilterResult is the outcome of screening one message.
type FilterResult struct {
	Blocked bool
	Reason  string // "blocked_keyword" or "spam_pattern"
	Term    string // the matched term or pattern name
}

// Filter holds the banned-term sets. It is immutable after construction and
// safe for concurrent use.
type Filter struct {
	words   map[string]struct{} // single-word terms, matched per token
	phrases []string            // multi-word terms, matched with boundaries
}

// NewFilter creates a Filter with the built-in term list.
func NewFilter() *Filter {
	return NewFilterWithTerms(defaultTerms)
}

// NewFilterWithTerms creates a Filter from an explicit term list. Terms
// containing whitespace are treated as phrases, everything else as single
// words. Terms are lowercased.
func NewFilterWithTerms(terms []string) *Filter {
	f := &Filter{words: make(map[string]struct{})}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.ContainsAny(term, " \t") {
			f.phrases = append(f.phrases, term)
		} else {
			f.words[term] = struct{}{}
		}
	}
	return f
}

// Check screens text and returns a blocking result on the first match. The
// banned-term pass runs twice: once on the lowercased text and once on its
// leetspeak-normalized form, so punctuation-only messages are not mangled
// before the first pass. Spam heuristics run last.
func (f *Filter) Check(text string) FilterResult {
	lower := strings.ToLower(text)

	if r := f.checkTerms(lower); r.Blocked {
		return r
	}
	if r := f.checkTerms(leetReplacer.Replace(lower)); r.Blocked {
		return r
	}
	return f.checkSpamPatterns(text)
}

// checkTerms matches single words per token and phrases with word boundaries
// against already-lowercased text.
func (f *Filter) checkTerms(lower string) FilterResult {
	for _, tok := range tokenize(lower) {
		if _, ok := f.words[tok]; ok {
			return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: tok}
		}
	}

	for _, phrase := range f.phrases {
		if containsPhrase(lower, phrase) {
			return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: phrase}
		}
	}
	return FilterResult{}
}

// tokenize splits text into alphanumeric runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
}

// containsPhrase reports whether phrase occurs in text delimited by word
// boundaries on both sides, so "kill yourself" does not match
// "kill yourselves".
func containsPhrase(text, phrase string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start

		beforeOK := i == 0 || !isWordRune(rune(text[i-1]))
		end := i + len(phrase)
		afterOK := end == len(text) || !isWordRune(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		start = i + 1
	}
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
