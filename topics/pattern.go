// Package topics implements parsing and matching of slash-delimited topic
// patterns, including the single-token wildcard "+" and the multi-token
// wildcard "*".
package topics

import (
	"errors"
	"strings"

	"github.com/lattixio/telemetry-mesh/wire"
)

// ErrEmptyPattern is returned when a pattern has no tokens after splitting.
var ErrEmptyPattern = errors.New("topics: pattern has no tokens")

// ErrEmptyToken is returned when a pattern contains a zero-length token.
var ErrEmptyToken = errors.New("topics: pattern contains an empty token")

// ErrAdjacentWildcards is returned when two wildcard tokens sit next to
// each other; the match algorithm cannot disambiguate their spans.
var ErrAdjacentWildcards = errors.New("topics: adjacent wildcard tokens")

const (
	// SingleWildcard matches exactly one token.
	SingleWildcard = "+"
	// MultiWildcard matches one or more tokens.
	MultiWildcard = "*"
)

// Pattern is an immutable, ordered sequence of topic tokens. Once
// constructed by Parse, the token slice is never mutated.
type Pattern struct {
	tokens []string
}

// Parse splits text on "/", discards empty segments produced by runs of
// separators, and validates the resulting token list. It rejects an empty
// token list, any individually empty token, and two adjacent wildcard
// tokens.
func Parse(text string) (Pattern, error) {
	var tokens []string
	for _, seg := range strings.Split(text, "/") {
		if seg == "" {
			continue
		}
		tokens = append(tokens, seg)
	}
	if len(tokens) == 0 {
		return Pattern{}, ErrEmptyPattern
	}
	for i, tok := range tokens {
		if tok == "" {
			return Pattern{}, ErrEmptyToken
		}
		if i > 0 && isWildcard(tok) && isWildcard(tokens[i-1]) {
			return Pattern{}, ErrAdjacentWildcards
		}
	}
	return Pattern{tokens: tokens}, nil
}

func isWildcard(tok string) bool {
	return tok == SingleWildcard || tok == MultiWildcard
}

// Tokens returns the pattern's token list. The caller must not mutate the
// returned slice.
func (p Pattern) Tokens() []string {
	return p.tokens
}

// String renders the pattern back to slash-delimited text.
func (p Pattern) String() string {
	return strings.Join(p.tokens, "/")
}

// Concrete reports whether the pattern contains no wildcard tokens, the
// precondition for it to be used as a publication topic rather than a
// subscription filter.
func (p Pattern) Concrete() bool {
	for _, tok := range p.tokens {
		if isWildcard(tok) {
			return false
		}
	}
	return true
}

// Equal reports token-wise equality.
func (p Pattern) Equal(o Pattern) bool {
	if len(p.tokens) != len(o.tokens) {
		return false
	}
	for i, tok := range p.tokens {
		if tok != o.tokens[i] {
			return false
		}
	}
	return true
}

// Hash returns a deterministic mix over the pattern's token hashes, stable
// across processes, suitable as a map key component or a registry bucket
// key alongside Equal.
func (p Pattern) Hash() uint64 {
	return wire.HashTokens(p.tokens)
}

// Match reports whether the concrete pattern other satisfies this pattern,
// which may itself contain wildcards. Calling Match with a wildcard token
// present in other is a programming error and panics, since "other" is
// defined to be a concrete topic.
func (p Pattern) Match(other Pattern) bool {
	for _, tok := range other.tokens {
		if isWildcard(tok) {
			panic("topics: Match called with a wildcard token in the concrete argument")
		}
	}
	return matchFrom(p.tokens, other.tokens, 0, 0)
}

// matchFrom explores (self_index, other_index) position pairs with
// backtracking: '*' is variable-width, so a plain greedy walk would miss
// valid matches where a later literal token needs some of the tokens a
// greedy '*' would have consumed.
func matchFrom(self, other []string, i, j int) bool {
	for {
		if i == len(self) {
			return j == len(other)
		}
		tok := self[i]

		switch tok {
		case SingleWildcard:
			if j == len(other) {
				return false
			}
			i++
			j++
			continue

		case MultiWildcard:
			// '*' must consume at least one token; try every split point
			// for how many tokens it absorbs before the remainder of the
			// pattern must match the remainder of other.
			for consumed := 1; j+consumed <= len(other); consumed++ {
				if matchFrom(self, other, i+1, j+consumed) {
					return true
				}
			}
			return false

		default:
			if j == len(other) || other[j] != tok {
				return false
			}
			i++
			j++
			continue
		}
	}
}
