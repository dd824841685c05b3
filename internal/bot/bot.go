// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wager-tracker/internal/config"
	"wager-tracker/internal/handler"
	"wager-tracker/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	private *PrivateUsers

	// Handlers
	gameHandler  *handler.GameHandler
	adminHandler *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	GameService *service.GameService
	SyncService *service.SyncService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		private:      NewPrivateUsers(),
		gameHandler:  handler.NewGameHandler(deps.GameService),
		adminHandler: handler.NewAdminHandler(deps.SyncService),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())

	// Whitelist middleware - check if chat is allowed
	b.bot.Use(WhitelistMiddleware(b.cfg, len(b.cfg.Whitelist.Chats) > 0, b.private))

	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleStart)

	b.bot.Handle("/games", b.gameHandler.HandleGames)
	b.bot.Handle("/upcoming", b.gameHandler.HandleUpcoming)
	b.bot.Handle("/live", b.gameHandler.HandleLive)
	b.bot.Handle("/tz", b.gameHandler.HandleTimeZones)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/sync_all", b.adminHandler.HandleSyncAll)
	adminGroup.Handle("/sync_scores", b.adminHandler.HandleSyncScores)
}

const helpText = "🏟 Wager Tracker\n" +
	"━━━━━━━━━━━━━━━\n" +
	"/games [zone] - today's games\n" +
	"/upcoming [hours] - games starting soon\n" +
	"/live - games in progress\n" +
	"/tz - supported time zones"

func (b *Bot) handleStart(c tele.Context) error {
	return c.Reply(helpText)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
