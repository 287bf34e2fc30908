// Package compose runs the step-by-step broadcast builder an admin walks
// through after /send_ad without text.
//
// The flow is a small explicit state machine over Draft:
//
//	StepText -> StepAttachment -> StepButtonLabel -> StepButtonURL -> StepReady
//
// At each step the admin may answer "Да" (the bot asks for the value),
// "Нет" (the step is skipped) or send the value straight away.
package compose

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"suggestbot/internal/broadcast"
	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	"suggestbot/pkg/tgui"
)

type Step string

const (
	StepText        Step = "text"
	StepAttachment  Step = "attachment"
	StepButtonLabel Step = "button_label"
	StepButtonURL   Step = "button_url"
	StepReady       Step = "ready"
)

type Draft struct {
	Step Step                   `json:"step"`
	Post broadcast.Announcement `json:"post"`
}

func (d Draft) Done() bool { return d.Step == StepReady }

// Keyboard tells the caller which reply keyboard goes with a prompt.
type Keyboard int

const (
	KeepKeyboard Keyboard = iota
	YesNoKeyboard
	RemoveKeyboard
)

type Prompt struct {
	Text     string
	Keyboard Keyboard
}

// Input is one admin message while a draft is open.
type Input struct {
	Text  string
	Media kit.Media
}

// Start opens a fresh draft.
func Start() (Draft, Prompt) {
	return Draft{Step: StepText}, Prompt{Text: texts.AskText, Keyboard: YesNoKeyboard}
}

// Advance feeds one input into d. A returned draft with Done() is ready to
// broadcast and carries no prompt.
func Advance(d Draft, in Input) (Draft, Prompt) {
	answer := strings.TrimSpace(in.Text)

	switch d.Step {
	case StepText:
		switch {
		case answer == texts.Yes:
			return d, Prompt{Text: texts.SendText, Keyboard: RemoveKeyboard}
		case answer == texts.No:
			d.Post.Text = ""
		case answer != "" && in.Media.IsZero():
			d.Post.Text = in.Text
		default:
			return d, Prompt{Text: texts.SendText, Keyboard: RemoveKeyboard}
		}
		d.Step = StepAttachment
		return d, Prompt{Text: texts.AskMedia, Keyboard: YesNoKeyboard}

	case StepAttachment:
		switch {
		case in.Media.Supported() && utf8.RuneCountInString(d.Post.Text) > tgui.MaxCaptionLen:
			// the text would become the caption
			return d, Prompt{Text: texts.CaptionTooLong(tgui.MaxCaptionLen), Keyboard: YesNoKeyboard}
		case in.Media.Supported():
			d.Post.Media = in.Media
		case in.Media.IsZero() && answer == texts.Yes:
			return d, Prompt{Text: texts.SendMedia, Keyboard: RemoveKeyboard}
		case in.Media.IsZero() && answer == texts.No:
			d.Post.Media = kit.Media{}
		default:
			return d, Prompt{Text: texts.UnsupportedFile, Keyboard: RemoveKeyboard}
		}
		d.Step = StepButtonLabel
		return d, Prompt{Text: texts.AskButton, Keyboard: YesNoKeyboard}

	case StepButtonLabel:
		switch {
		case answer == texts.Yes:
			return d, Prompt{Text: texts.SendButtonLabel, Keyboard: RemoveKeyboard}
		case answer == texts.No:
			d.Post.Button = nil
			d.Step = StepReady
			return d, Prompt{}
		case answer == "":
			return d, Prompt{Text: texts.SendButtonLabel, Keyboard: RemoveKeyboard}
		}
		d.Post.Button = &broadcast.LinkButton{Label: answer}
		d.Step = StepButtonURL
		return d, Prompt{Text: texts.SendButtonURL, Keyboard: KeepKeyboard}

	case StepButtonURL:
		if !ValidButtonURL(answer) {
			return d, Prompt{Text: texts.BadButtonURL, Keyboard: KeepKeyboard}
		}
		if d.Post.Button == nil {
			d.Post.Button = &broadcast.LinkButton{}
		}
		d.Post.Button.URL = answer
		d.Step = StepReady
		return d, Prompt{}
	}

	return d, Prompt{}
}

// ValidButtonURL accepts absolute http, https and tg links.
func ValidButtonURL(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " \t\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "tg":
		return u.Host != ""
	}
	return false
}
