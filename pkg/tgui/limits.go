package tgui

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
const MaxCallbackDataLen = 64

// MaxCaptionLen is Telegram's media caption limit in runes.
const MaxCaptionLen = 1024
