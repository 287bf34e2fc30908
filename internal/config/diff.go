package config

import (
	"reflect"
	"sort"

	logx "suggestbot/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe fields to
// log with them. Secrets (bot token, ops token, DSNs) are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 8)
	fields := make([]logx.Field, 0, 16)

	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		!reflect.DeepEqual(oldCfg.Telegram.AdminIDs, newCfg.Telegram.AdminIDs) ||
		oldCfg.Telegram.ModerationChatID != newCfg.Telegram.ModerationChatID ||
		oldCfg.Telegram.DeveloperChatID != newCfg.Telegram.DeveloperChatID ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Int("telegram.admin_count", len(newCfg.Telegram.AdminIDs)),
			logx.Int64("telegram.moderation_chat_id", newCfg.Telegram.ModerationChatID),
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.report", newCfg.Logging.Report.Enabled),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		fields = append(fields, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if oldCfg.Drafts != newCfg.Drafts {
		changed = append(changed, "drafts")
		fields = append(fields, logx.String("drafts.driver", newCfg.Drafts.Driver))
	}
	if oldCfg.Router != newCfg.Router {
		changed = append(changed, "router")
	}
	if oldCfg.Submission != newCfg.Submission {
		changed = append(changed, "submission")
		fields = append(fields, logx.Int("submission.max_length", newCfg.Submission.MaxLength))
	}
	if oldCfg.Moderation != newCfg.Moderation {
		changed = append(changed, "moderation")
		fields = append(fields, logx.Bool("moderation.notify_on_accept", newCfg.Moderation.NotifyOnAccept))
	}
	if oldCfg.Broadcast != newCfg.Broadcast {
		changed = append(changed, "broadcast")
		fields = append(fields, logx.Any("broadcast.rate_per_sec", newCfg.Broadcast.RatePerSec))
	}
	if oldCfg.Reconcile.IsEnabled() != newCfg.Reconcile.IsEnabled() ||
		oldCfg.Reconcile.Schedule != newCfg.Reconcile.Schedule ||
		oldCfg.Reconcile.Grace != newCfg.Reconcile.Grace ||
		oldCfg.Reconcile.Timeout != newCfg.Reconcile.Timeout {
		changed = append(changed, "reconcile")
		fields = append(fields,
			logx.Bool("reconcile.enabled", newCfg.Reconcile.IsEnabled()),
			logx.String("reconcile.schedule", newCfg.Reconcile.Schedule),
		)
	}
	if oldCfg.Ops != newCfg.Ops {
		changed = append(changed, "ops")
		fields = append(fields,
			logx.Bool("ops.enabled", newCfg.Ops.Enabled),
			logx.String("ops.addr", newCfg.Ops.Addr),
			logx.Bool("ops.token_set", newCfg.Ops.Token != ""),
		)
	}

	sort.Strings(changed)
	return changed, fields
}

// RestartRequired lists changed sections that only take effect on restart.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		switch s {
		case "storage", "drafts", "router", "ops":
			out = append(out, s)
		}
	}
	return out
}
