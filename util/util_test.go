package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumToStr(t *testing.T) {
	assert.Equal(t, "42", NumToStr(42))
	assert.Equal(t, "-1001546229241", NumToStr(int64(-1001546229241)))
	assert.Equal(t, "18446744073709551615", NumToStr(uint64(18446744073709551615)))
	assert.Equal(t, "2.5", NumToStr(2.5))
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "gopher", TruncateName("gopher", 10))
	assert.Equal(t, "goph…", TruncateName("gophers", 5))
	// family emoji is a single grapheme cluster and must survive intact
	assert.Equal(t, "👨‍👩‍👧…", TruncateName("👨‍👩‍👧👨‍👩‍👧👨‍👩‍👧", 2))
}

func TestMention(t *testing.T) {
	assert.Equal(t, `<a href="tg://user?id=7">a&lt;b</a>`, Mention(7, "a<b"))
	assert.Equal(t, `<a href="tg://user?id=7">7</a>`, Mention(7, " "))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Rob Pike", FullName("Rob", "Pike"))
	assert.Equal(t, "Rob", FullName("Rob", ""))
}
