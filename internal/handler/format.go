package handler

import (
	"fmt"

	"wager-tracker/internal/model"
	"wager-tracker/internal/service"
	"wager-tracker/internal/timezone"
)

const separator = "━━━━━━━━━━━━━━━\n"

// sportIcons decorates game lines by league key.
var sportIcons = map[string]string{
	"NFL": "🏈",
	"NBA": "🏀",
	"MLB": "⚾",
	"NHL": "🏒",
}

func sportIcon(key string) string {
	if icon, ok := sportIcons[key]; ok {
		return icon
	}
	return "🎯"
}

// formatGame renders one line: icon, matchup, local kickoff and, once the
// game has started, the score.
func formatGame(g service.GameView, zone timezone.Zone) string {
	local := zone.ToLocal(g.GameTime).Format("Mon 15:04 MST")
	line := fmt.Sprintf("%s %s  %s", sportIcon(g.Sport), g.Matchup, local)

	switch g.Status {
	case model.GameScheduled:
		return line
	case model.GameLive, model.GameHalftime, model.GameFinal:
		if g.HomeScore != nil && g.AwayScore != nil {
			line += fmt.Sprintf("  %d-%d", *g.AwayScore, *g.HomeScore)
		}
		if g.GamePeriod != nil && *g.GamePeriod != "" {
			line += fmt.Sprintf(" (%s)", *g.GamePeriod)
		} else {
			line += fmt.Sprintf(" (%s)", g.Status)
		}
		return line
	default:
		return line + fmt.Sprintf(" (%s)", g.Status)
	}
}

func formatGameList(title string, list *service.GameList, zone timezone.Zone) string {
	msg := title + "\n"
	msg += separator
	if list == nil || len(list.Games) == 0 {
		msg += "No games found\n"
		return msg
	}
	for _, g := range list.Games {
		msg += formatGame(g, zone) + "\n"
	}
	msg += separator
	msg += fmt.Sprintf("%d game(s)", list.Count)
	return msg
}

func formatZoneCatalog(info service.ZoneInfo) string {
	msg := "🌐 Supported time zones\n"
	msg += separator
	for _, z := range info.AvailableTimeZones {
		msg += fmt.Sprintf("%s  %s (%s)\n", z.ID, z.DisplayName, z.Offset)
	}
	msg += separator
	msg += fmt.Sprintf("UTC now: %s\nUsage: /games <zone>", info.UTCTime)
	return msg
}

func formatSyncReport(rep *service.SyncReport) string {
	msg := fmt.Sprintf("✅ Sync complete (%s)\n", rep.Scope)
	msg += separator
	for _, sr := range rep.Sports {
		if sr.UpstreamError != "" {
			msg += fmt.Sprintf("⚠️ %s %s: feed unavailable\n", sr.Sport, sr.Scope)
			continue
		}
		msg += fmt.Sprintf("%s %s %s: +%d ~%d =%d skipped %d\n",
			sportIcon(sr.Sport), sr.Sport, sr.Scope, sr.Created, sr.Updated, sr.Unchanged, sr.Skipped)
	}
	msg += separator
	msg += fmt.Sprintf("Created %d, updated %d, unchanged %d, skipped %d",
		rep.Created, rep.Updated, rep.Unchanged, rep.Skipped)
	return msg
}
