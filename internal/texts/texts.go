// Package texts holds every user-visible string the bot sends.
package texts

import "fmt"

const (
	Start = "Добро пожаловать!\nДля того, чтобы задать вопрос, отправьте текст или изображение."
	Help  = "Для того, чтобы задать вопрос, отправьте текст, изображение или видео"

	ThanksForQuestion    = "Спасибо за Ваш вопрос!\nВы получите уведомление, если Ваш вопрос будет рассмотрен."
	SubmissionFailed     = "Не удалось отправить вопрос. Попробуйте позже."
	EmptySubmission      = "Отправьте текст, изображение или видео."
	QuestionAccepted     = "✅ Вопрос принят"
	QuestionDeclined     = "❌ Вопрос отклонен"
	UserQuestionAccepted = "Ваш пост был опубликован!"
	AccessDenied         = "Отказано в доступе!"
	InvalidPayload       = "Некорректные данные"
	ActionFailed         = "Произошла ошибка, попробуйте позже"
	Busy                 = "Слишком много запросов, попробуйте позже"

	AcceptButton  = "✅"
	DeclineButton = "❌"

	AdminMenu       = "/send_ad - Отправить рассылку\n/stats - получить статистику бота\n"
	MenuBroadcast   = "Отправить рассылку"
	MenuStats       = "Посмотреть статистику"
	Yes             = "Да"
	No              = "Нет"
	AskText         = "Нужно ли добавить текст рассылки?"
	SendText        = "Отправьте текст"
	AskMedia        = "Нужно ли добавить фото или видео?"
	SendMedia       = "Отправьте фото или видео."
	UnsupportedFile = "Не поддерживаемый тип файла, отправьте другой или введите /cancel"
	AskButton       = "Добавить кнопку к посту?"
	SendButtonLabel = "Отправьте текст кнопки"
	SendButtonURL   = "Введите ссылку"
	BadButtonURL    = "Некорректная ссылка. Введите ссылку, начинающуюся с http://, https:// или tg://"
	NothingToSend   = "Нет сообщения и/или изображения.\nРассылка не была отправлена."
	ComposeCanceled = "Создание рекламного поста завершено"
	NothingToCancel = "Нечего отменять"
	PostPreview     = "Пост:"

	DefaultName = "Уважаемый пользователь"
)

// TooLong is sent when a submission exceeds limit characters.
func TooLong(limit int) string {
	return fmt.Sprintf("Слишком длинный вопрос. Максимальная длина: %d символов.", limit)
}

// CaptionTooLong is sent when a post text cannot be a media caption.
func CaptionTooLong(limit int) string {
	return fmt.Sprintf("Текст длиннее %d символов и не поместится в подпись к фото или видео. Отправьте \"Нет\", чтобы разослать только текст, или /cancel.", limit)
}

func QuestionNotFound(id int64) string {
	return fmt.Sprintf("Вопрос с id %d не найден", id)
}

// ForwardBody is the moderation copy of a submission.
func ForwardBody(body string, ownerID int64) string {
	return fmt.Sprintf("%s\n\nUser id: %d", body, ownerID)
}

// BroadcastSummary reports a finished sweep. The failure line only appears
// when some deliveries failed for reasons other than a block.
func BroadcastSummary(delivered, blocked, failed int) string {
	s := fmt.Sprintf("Рассылка была отправлена %d пользователям!\nПользователей, заблокировавших бота: %d.", delivered, blocked)
	if failed > 0 {
		s += fmt.Sprintf("\nНе доставлено из-за ошибок: %d.", failed)
	}
	return s
}

func Stats(users, blocked, pending int) string {
	return fmt.Sprintf("Статистика:\n\nКол-во пользователей:\n👤 %d\nКол-во пользователей, остановиших бота:\n🚫 %d\nКол-во не отвеченных вопросов:\n❔ %d", users, blocked, pending)
}
