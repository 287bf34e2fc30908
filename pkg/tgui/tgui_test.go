package tgui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", TruncRunes("abc", 0))
	assert.Equal(t, "abc", TruncRunes("abc", 3))
	assert.Equal(t, "ab…", TruncRunes("abc", 2))
	assert.Equal(t, "При…", TruncRunes("Привет", 3))
}

func TestHTMLHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a &lt;b&gt; &amp; c", Esc("a <b> & c").String())
	assert.Equal(t, "<b>1 &lt; 2</b>", B("1 < 2").String())
	assert.Equal(t, "<pre><code>x &gt; y</code></pre>", Pre("x > y").String())
}

func TestInlineRows(t *testing.T) {
	t.Parallel()

	rm := NewInline().Row(Btn("Принять", "a"), Btn("Отклонить", "d")).Row(URLBtn("Сайт", "https://example.org")).Markup()
	require.Len(t, rm.InlineKeyboard, 2)
	assert.Equal(t, "a", rm.InlineKeyboard[0][0].Data)
	assert.Equal(t, "d", rm.InlineKeyboard[0][1].Data)
	assert.Equal(t, "https://example.org", rm.InlineKeyboard[1][0].URL)
}

func TestReplyKeyboard(t *testing.T) {
	t.Parallel()

	rm := Reply(true, []string{"Да", "Нет"})
	assert.True(t, rm.ResizeKeyboard)
	assert.True(t, rm.OneTimeKeyboard)
	require.Len(t, rm.ReplyKeyboard, 1)
	require.Len(t, rm.ReplyKeyboard[0], 2)
	assert.Equal(t, "Нет", rm.ReplyKeyboard[0][1].Text)

	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
