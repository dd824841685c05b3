package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wager-tracker/internal/service"
)

const syncCommandTimeout = 5 * time.Minute

// AdminHandler handles admin-only sync commands.
type AdminHandler struct {
	syncService *service.SyncService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(syncService *service.SyncService) *AdminHandler {
	return &AdminHandler{
		syncService: syncService,
	}
}

// HandleSyncAll handles the /sync_all command. It bypasses the feed cache.
func (h *AdminHandler) HandleSyncAll(c tele.Context) error {
	return h.runSync(c, "sync_all", h.syncService.RefreshAll)
}

// HandleSyncScores handles the /sync_scores command.
func (h *AdminHandler) HandleSyncScores(c tele.Context) error {
	return h.runSync(c, "sync_scores", h.syncService.SyncLiveScores)
}

func (h *AdminHandler) runSync(c tele.Context, op string, run func(context.Context) (*service.SyncReport, error)) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncCommandTimeout)
	defer cancel()

	rep, err := run(ctx)
	if errors.Is(err, service.ErrSyncInProgress) {
		return c.Reply("⏳ A sync is already running, try again shortly")
	}
	if err != nil {
		log.Error().Err(err).Int64("admin_id", sender.ID).Str("operation", op).Msg("Admin sync failed")
		return c.Reply("❌ Sync failed, check the logs")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("operation", op).
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Msg("Admin operation executed")

	return c.Reply(formatSyncReport(rep))
}
