package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileTags(t *testing.T) {
	compiled := CompileTags([]string{"equity/large cap", "equity/mid cap", "elss", "equity/large cap"})

	assert.Equal(t, map[string][]string{
		"equity": {"large cap", "mid cap"},
		"elss":   {},
	}, compiled)
}

func TestCompileTagsTrimsAndSkipsMalformed(t *testing.T) {
	compiled := CompileTags([]string{" equity / large cap ", "", "  ", "/orphan", "equity/"})

	assert.Equal(t, map[string][]string{"equity": {"large cap"}}, compiled)
}

func TestCompileTagsEmpty(t *testing.T) {
	assert.Empty(t, CompileTags(nil))
}
