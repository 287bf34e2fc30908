package adapter

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "suggestbot/internal/transport"
)

// Telegram allows 4096 characters; keep headroom for entities.
const telegramTextLimit = 4000

// splitTelegramText splits s into rune-safe chunks of at most limit runes,
// preferring newline boundaries and never cutting an HTML tag in half.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// tiny chunks read worse than a hard cut
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		if strings.EqualFold(parseMode, tele.ModeHTML) && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func menuHash(cmds []kit.BotCommand) uint64 {
	h := fnv.New64a()
	for _, c := range cmds {
		h.Write([]byte(c.Command))
		h.Write([]byte{0})
		h.Write([]byte(c.Description))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

var forbidden = []error{
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrNotStartedByUser,
	tele.ErrKickedFromGroup,
	tele.ErrKickedFromSuperGroup,
	tele.ErrKickedFromChannel,
}

// mapError translates delivery refusals into kit.ErrForbidden and keeps the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isForbidden(err) {
		return fmt.Errorf("%w: %w", kit.ErrForbidden, err)
	}
	return err
}

func isForbidden(err error) bool {
	for _, f := range forbidden {
		if errors.Is(err, f) {
			return true
		}
	}
	var te *tele.Error
	if errors.As(err, &te) && te.Code == http.StatusForbidden {
		return true
	}
	// unknown API errors come back as "telegram: <description> (<code>)"
	return strings.HasSuffix(err.Error(), fmt.Sprintf("(%d)", http.StatusForbidden))
}
