package topics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattixio/telemetry-mesh/topics"
)

func mustParse(t *testing.T, text string) topics.Pattern {
	t.Helper()
	p, err := topics.Parse(text)
	require.NoError(t, err)
	return p
}

func TestParseTokenCount(t *testing.T) {
	p := mustParse(t, "a/b/c")
	assert.Equal(t, []string{"a", "b", "c"}, p.Tokens())
}

func TestParseCollapsesSeparatorRuns(t *testing.T) {
	p := mustParse(t, "/a//b/")
	assert.Equal(t, []string{"a", "b"}, p.Tokens())
}

func TestParseRejectsEmptyInput(t *testing.T) {
	_, err := topics.Parse("")
	assert.ErrorIs(t, err, topics.ErrEmptyPattern)

	_, err = topics.Parse("///")
	assert.ErrorIs(t, err, topics.ErrEmptyPattern)
}

func TestParseRejectsAdjacentWildcards(t *testing.T) {
	for _, text := range []string{"a/+/+", "a/+/*", "a/*/+", "a/*/*"} {
		_, err := topics.Parse(text)
		assert.ErrorIsf(t, err, topics.ErrAdjacentWildcards, "text=%q", text)
	}
}

func TestMatchReflexivity(t *testing.T) {
	for _, text := range []string{"a", "a/b/c", "sensors/floor1/room"} {
		p := mustParse(t, text)
		assert.True(t, p.Match(p), text)
	}
}

func TestMatchSingleWildcard(t *testing.T) {
	p := mustParse(t, "a/+/c")
	assert.True(t, p.Match(mustParse(t, "a/x/c")))
	assert.False(t, p.Match(mustParse(t, "a/c")))
	assert.False(t, p.Match(mustParse(t, "a/x/y/c")))
}

func TestMatchMultiWildcard(t *testing.T) {
	p := mustParse(t, "a/*/c")
	assert.True(t, p.Match(mustParse(t, "a/x/c")))
	assert.True(t, p.Match(mustParse(t, "a/x/y/c")))
	assert.True(t, p.Match(mustParse(t, "a/x/y/z/c")))
	assert.False(t, p.Match(mustParse(t, "a/c")))
}

func TestMatchTrailingMultiWildcard(t *testing.T) {
	p := mustParse(t, "temp/*")
	assert.True(t, p.Match(mustParse(t, "temp/floor1/room")))
	assert.True(t, p.Match(mustParse(t, "temp/floor1")))
	assert.False(t, p.Match(mustParse(t, "temp")))
}

func TestMatchPanicsOnWildcardOther(t *testing.T) {
	p := mustParse(t, "a/+")
	other := mustParse(t, "a/+")
	assert.Panics(t, func() { p.Match(other) })
}

func TestEqualAndHash(t *testing.T) {
	a := mustParse(t, "a/b/c")
	b := mustParse(t, "a/b/c")
	c := mustParse(t, "a/b/d")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
}
