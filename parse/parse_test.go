package parse

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtraString(t *testing.T) {
	re := regexp.MustCompile(`id=(\d+)`)
	assert.Equal(t, "42", ExtraString("a?id=42&b", re))
	assert.Equal(t, "", ExtraString("nothing here", re))
}
