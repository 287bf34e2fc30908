package app

import (
	"context"
	"strings"

	"suggestbot/internal/config"
	logx "suggestbot/pkg/logx"
)

// reloadLoop applies published configs to the running services. Sections
// that are only read at startup are reported, not applied.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts: keep only the latest config
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	if oldCfg == nil {
		oldCfg = &config.Config{}
	}
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	restart := config.RestartRequired(sections)
	if oldCfg.Telegram.Token != newCfg.Telegram.Token || oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout {
		restart = append(restart, "telegram.token/poll_timeout")
	}
	if len(restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(restart, ",")))
	}

	// report target first so Apply never enables the sink without one
	a.logs.SetReportChat(newCfg.Telegram.DeveloperChatID)
	a.logs.Apply(mapLogConfig(newCfg))

	a.gate.SetAdmins(newCfg.Telegram.AdminIDs)
	a.mod.Apply(mapModerationConfig(newCfg))
	a.bc.SetRate(newCfg.Broadcast.RatePerSec)
	a.sweeper.Apply(ctx, mapReconcileConfig(newCfg))

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config applied", fields...)
}
