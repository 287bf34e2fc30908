package router

import (
	"sort"
	"strings"
	"unicode"

	kit "suggestbot/internal/transport"
)

// sanitizeTelegramCommand converts a name into a Telegram-safe bot command.
// Telegram command names are restricted to [a-z0-9_]{1,32}.
func sanitizeTelegramCommand(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || r == '/' || unicode.IsSpace(r):
			if b.Len() > 0 && !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "cmd_" + out
		if len(out) > 32 {
			out = strings.TrimRight(out[:32], "_")
		}
	}
	return out
}

// buildMenuCommands lists the commands that carry a description, sorted by
// name. Telegram accepts at most 100 entries.
func buildMenuCommands(cmds []Command) []kit.BotCommand {
	byName := map[string]string{}
	for _, c := range cmds {
		desc := strings.ReplaceAll(strings.TrimSpace(c.Description), "\n", " ")
		if desc == "" {
			continue
		}
		name := sanitizeTelegramCommand(c.Name)
		if name == "" {
			continue
		}
		if len(desc) > 256 {
			desc = desc[:256]
		}
		if _, dup := byName[name]; !dup {
			byName[name] = desc
		}
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) > 100 {
		names = names[:100]
	}

	out := make([]kit.BotCommand, 0, len(names))
	for _, n := range names {
		out = append(out, kit.BotCommand{Command: n, Description: byName[n]})
	}
	return out
}
