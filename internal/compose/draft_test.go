package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	"suggestbot/pkg/tgui"
)

func feed(t *testing.T, inputs ...Input) (Draft, []Prompt) {
	t.Helper()
	d, p := Start()
	prompts := []Prompt{p}
	for _, in := range inputs {
		d, p = Advance(d, in)
		prompts = append(prompts, p)
	}
	return d, prompts
}

func TestAllNoIsEmptyPost(t *testing.T) {
	t.Parallel()

	d, prompts := feed(t, Input{Text: "Нет"}, Input{Text: "Нет"}, Input{Text: "Нет"})
	require.True(t, d.Done())
	assert.True(t, d.Post.Empty())
	assert.Nil(t, d.Post.Button)
	assert.Equal(t, []string{texts.AskText, texts.AskMedia, texts.AskButton, ""}, promptTexts(prompts))
}

func TestFullFlow(t *testing.T) {
	t.Parallel()

	photo := kit.Media{Kind: kit.MediaPhoto, Ref: "ph"}
	d, prompts := feed(t,
		Input{Text: "Да"},
		Input{Text: "Привет, {name}"},
		Input{Text: "Да"},
		Input{Media: photo},
		Input{Text: "Да"},
		Input{Text: "Открыть"},
		Input{Text: "ftp://nope"},
		Input{Text: "https://t.me/channel"},
	)
	require.True(t, d.Done())
	assert.Equal(t, "Привет, {name}", d.Post.Text)
	assert.Equal(t, photo, d.Post.Media)
	require.NotNil(t, d.Post.Button)
	assert.Equal(t, "Открыть", d.Post.Button.Label)
	assert.Equal(t, "https://t.me/channel", d.Post.Button.URL)

	assert.Equal(t, []string{
		texts.AskText,
		texts.SendText,
		texts.AskMedia,
		texts.SendMedia,
		texts.AskButton,
		texts.SendButtonLabel,
		texts.SendButtonURL,
		texts.BadButtonURL,
		"",
	}, promptTexts(prompts))
	assert.Equal(t, YesNoKeyboard, prompts[2].Keyboard)
	assert.Equal(t, RemoveKeyboard, prompts[1].Keyboard)
}

func TestValueWithoutYes(t *testing.T) {
	t.Parallel()

	d, _ := feed(t, Input{Text: "Акция для {name}"}, Input{Media: kit.Media{Kind: kit.MediaVideo, Ref: "v"}}, Input{Text: "Нет"})
	require.True(t, d.Done())
	assert.Equal(t, "Акция для {name}", d.Post.Text)
	assert.Equal(t, kit.MediaVideo, d.Post.Media.Kind)
}

func TestUnsupportedAttachmentReprompts(t *testing.T) {
	t.Parallel()

	d, prompts := feed(t, Input{Text: "Нет"}, Input{Media: kit.Media{Kind: kit.MediaOther, Ref: "doc"}})
	assert.Equal(t, StepAttachment, d.Step)
	assert.Equal(t, texts.UnsupportedFile, prompts[len(prompts)-1].Text)

	d, p := Advance(d, Input{Text: "some text"})
	assert.Equal(t, StepAttachment, d.Step)
	assert.Equal(t, texts.UnsupportedFile, p.Text)

	d, p = Advance(d, Input{Media: kit.Media{Kind: kit.MediaPhoto, Ref: "p"}})
	assert.Equal(t, StepButtonLabel, d.Step)
	assert.Equal(t, texts.AskButton, p.Text)
}

func TestMediaAtTextStepReprompts(t *testing.T) {
	t.Parallel()

	d, _ := Start()
	d, p := Advance(d, Input{Media: kit.Media{Kind: kit.MediaPhoto, Ref: "p"}})
	assert.Equal(t, StepText, d.Step)
	assert.Equal(t, texts.SendText, p.Text)
}

func TestLongTextRefusesAttachment(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ж", tgui.MaxCaptionLen+1)
	d, prompts := feed(t, Input{Text: long}, Input{Media: kit.Media{Kind: kit.MediaVideo, Ref: "v"}})
	assert.Equal(t, StepAttachment, d.Step)
	assert.True(t, d.Post.Media.IsZero())
	assert.Equal(t, texts.CaptionTooLong(tgui.MaxCaptionLen), prompts[len(prompts)-1].Text)

	// text-only is still possible
	d, p := Advance(d, Input{Text: "Нет"})
	assert.Equal(t, StepButtonLabel, d.Step)
	assert.Equal(t, texts.AskButton, p.Text)
	assert.Equal(t, long, d.Post.Text)

	// exactly at the limit fits
	d, _ = feed(t, Input{Text: long[:len(long)-len("ж")]}, Input{Media: kit.Media{Kind: kit.MediaPhoto, Ref: "p"}})
	assert.Equal(t, StepButtonLabel, d.Step)
}

func TestValidButtonURL(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		"https://example.org":     true,
		"http://example.org/path": true,
		"tg://resolve?domain=bot": true,
		"HTTPS://EXAMPLE.ORG":     true,
		"example.org":             false,
		"ftp://example.org":       false,
		"https://":                false,
		"https://exa mple.org":    false,
		"":                        false,
		"javascript:alert(1)":     false,
	} {
		assert.Equal(t, want, ValidButtonURL(raw), raw)
	}
}

func promptTexts(ps []Prompt) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}
