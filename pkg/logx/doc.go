// Package logx configures suggestbot's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional developer report sink that mirrors ERROR records into a
//     Telegram chat (min-level + rate limiting)
package logx
