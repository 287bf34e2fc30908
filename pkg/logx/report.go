package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"suggestbot/pkg/tgui"
)

const (
	reportLimit      = 3500
	reportFieldLimit = 600
	reportStackLimit = 1500
)

// FormatReport renders one zerolog JSON line as an HTML message for the
// developer chat. Non-JSON input is sent escaped and trimmed.
func FormatReport(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(p))), &m); err != nil {
		return tgui.Esc(truncate(strings.TrimSpace(string(p)), reportLimit)).String()
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message", "stack":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields strings.Builder
	for _, k := range keys {
		fields.WriteString(k)
		fields.WriteString("=")
		fields.WriteString(truncate(fmt.Sprint(m[k]), reportFieldLimit))
		fields.WriteString("\n")
	}

	var b strings.Builder
	if lvl != "" {
		b.WriteString(tgui.B(strings.ToUpper(lvl)).String())
		b.WriteString(" ")
	}
	b.WriteString(tgui.Esc(msg).String())
	if fields.Len() > 0 {
		b.WriteString("\n")
		b.WriteString(tgui.Pre(strings.TrimRight(fields.String(), "\n")).String())
	}
	if st, ok := m["stack"]; ok {
		b.WriteString("\n")
		b.WriteString(tgui.Pre(truncate(fmt.Sprint(st), reportStackLimit)).String())
	}
	return b.String()
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	suffix := "..."
	if maxN < 10 {
		suffix = ""
	}
	// cut on a rune boundary; Telegram rejects invalid UTF-8
	cut := maxN - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
