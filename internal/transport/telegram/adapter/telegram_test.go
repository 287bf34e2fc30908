package adapter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	kit "suggestbot/internal/transport"
)

func TestSplitTelegramTextShort(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"hello"}, splitTelegramText("hello", 10, ""))
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	got := splitTelegramText(s, 10, "")
	assert.Equal(t, []string{"aaaaaa", "bbbbbb"}, got)
}

func TestSplitTelegramTextRuneSafe(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("я", 25)
	got := splitTelegramText(s, 10, "")
	require.Len(t, got, 3)
	assert.Equal(t, s, strings.Join(got, ""))
	for _, c := range got {
		assert.LessOrEqual(t, len([]rune(c)), 10)
	}
}

func TestSplitTelegramTextKeepsTagsWhole(t *testing.T) {
	t.Parallel()

	s := "abcdefg<b>bold</b>"
	got := splitTelegramText(s, 9, tele.ModeHTML)
	require.NotEmpty(t, got)
	assert.Equal(t, "abcdefg", got[0])
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	m := &tele.Message{
		ID:     7,
		Text:   "hi",
		Chat:   &tele.Chat{ID: 42, Type: tele.ChatPrivate},
		Sender: &tele.User{ID: 42, FirstName: "Ann", Username: "ann"},
	}
	got := toMessage(m)
	require.NotNil(t, got)
	assert.Equal(t, "Ann", got.FromFullName)
	assert.Equal(t, "hi", got.Text)
	assert.False(t, got.IsGroup)
	assert.True(t, got.Media.IsZero())

	photo := &tele.Message{
		ID:      8,
		Caption: "look",
		Chat:    &tele.Chat{ID: -1, Type: tele.ChatSuperGroup},
		Sender:  &tele.User{ID: 5, FirstName: "Bo", LastName: "Li"},
		Photo:   &tele.Photo{File: tele.File{FileID: "file-1"}},
	}
	got = toMessage(photo)
	require.NotNil(t, got)
	assert.Equal(t, "Bo Li", got.FromFullName)
	assert.Equal(t, "look", got.Text)
	assert.True(t, got.IsGroup)
	assert.Equal(t, kit.Media{Kind: kit.MediaPhoto, Ref: "file-1"}, got.Media)

	doc := &tele.Message{
		Chat:     &tele.Chat{ID: 1, Type: tele.ChatPrivate},
		Sender:   &tele.User{ID: 1},
		Document: &tele.Document{File: tele.File{FileID: "d"}},
	}
	got = toMessage(doc)
	require.NotNil(t, got)
	assert.Equal(t, kit.MediaOther, got.Media.Kind)
	assert.False(t, got.Media.Supported())

	assert.Nil(t, toMessage(&tele.Message{Chat: &tele.Chat{ID: 1}}))
}

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError(nil))

	err := mapError(tele.ErrBlockedByUser)
	assert.ErrorIs(t, err, kit.ErrForbidden)
	assert.ErrorIs(t, err, tele.ErrBlockedByUser)

	assert.ErrorIs(t, mapError(errors.New("telegram: Forbidden: bot can't send messages (403)")), kit.ErrForbidden)

	other := errors.New("telegram: Bad Request: chat not found (400)")
	assert.NotErrorIs(t, mapError(other), kit.ErrForbidden)
}

func TestMenuHashChangesWithCommands(t *testing.T) {
	t.Parallel()

	a := menuHash([]kit.BotCommand{{Command: "start", Description: "Start"}})
	b := menuHash([]kit.BotCommand{{Command: "start", Description: "Начать"}})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, menuHash([]kit.BotCommand{{Command: "start", Description: "Start"}}))
}
