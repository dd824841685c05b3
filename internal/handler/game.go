// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wager-tracker/internal/schedule"
	"wager-tracker/internal/service"
	"wager-tracker/internal/timezone"
)

// Command defaults.
const (
	DefaultUpcomingHours = 24
	commandTimeout       = 10 * time.Second
)

// GameHandler handles the read-only game commands.
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// HandleGames handles the /games command.
// Format: /games [zone]
// Lists today's games on the calendar of the given zone (Eastern by default).
func (h *GameHandler) HandleGames(c tele.Context) error {
	zone := zoneArg(c.Args())

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	list, err := h.gameService.Today(ctx, zone, "")
	if err != nil {
		log.Error().Err(err).Str("zone", zone.ID).Msg("Failed to list today's games")
		return c.Reply("❌ Failed to load games, please try again later")
	}

	title := fmt.Sprintf("📅 Today's games (%s)", zone.DisplayName)
	return c.Reply(formatGameList(title, list, zone))
}

// HandleUpcoming handles the /upcoming command.
// Format: /upcoming [hours]
func (h *GameHandler) HandleUpcoming(c tele.Context) error {
	hours, err := parseHoursArg(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	zone := timezone.Default()
	list, err := h.gameService.NextHours(ctx, zone, hours, "")
	if errors.Is(err, schedule.ErrInvalidWindow) {
		return c.Reply(fmt.Sprintf("❌ Hours must be between 1 and %d", service.MaxNextHours))
	}
	if err != nil {
		log.Error().Err(err).Int("hours", hours).Msg("Failed to list upcoming games")
		return c.Reply("❌ Failed to load games, please try again later")
	}

	title := fmt.Sprintf("⏰ Games in the next %d hours", hours)
	return c.Reply(formatGameList(title, list, zone))
}

// HandleLive handles the /live command.
func (h *GameHandler) HandleLive(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	zone := timezone.Default()
	list, err := h.gameService.Live(ctx, zone)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list live games")
		return c.Reply("❌ Failed to load games, please try again later")
	}
	return c.Reply(formatGameList("🔴 Live now", list, zone))
}

// HandleTimeZones handles the /tz command.
func (h *GameHandler) HandleTimeZones(c tele.Context) error {
	return c.Reply(formatZoneCatalog(h.gameService.TimeZoneInfo(timezone.Default())))
}

// zoneArg resolves the optional zone argument. Unknown zones fall back to
// Eastern like every other read path.
func zoneArg(args []string) timezone.Zone {
	if len(args) == 0 {
		return timezone.Default()
	}
	return timezone.Resolve(strings.TrimSpace(args[0]))
}

// parseHoursArg parses the optional hours argument of /upcoming.
func parseHoursArg(args []string) (int, error) {
	if len(args) == 0 {
		return DefaultUpcomingHours, nil
	}
	hours, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errors.New("❌ Invalid hours\nUsage: /upcoming [hours]")
	}
	return hours, nil
}
