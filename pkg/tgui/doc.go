// Package tgui provides small Telegram UI helpers:
//   - Inline and reply keyboard builders
//   - HTML escaping helpers for ParseMode="HTML"
//   - Rune-safe text truncation
package tgui
