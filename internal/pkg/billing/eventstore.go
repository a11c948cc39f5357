package billing

import (
	"fmt"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
)

const terminalCacheTTL = 24 * time.Hour

// TerminalCache short-circuits redeliveries of already-terminal events
// before any DB work. It is a fast path only: a miss or error always falls
// through to the durable store, so correctness never depends on it.
type TerminalCache interface {
	GetStatus(provider, eventID string) string
	SetStatus(provider, eventID, status string)
	ClearStatus(provider, eventID string)
}

type noopTerminalCache struct{}

func (noopTerminalCache) GetStatus(_, _ string) string { return "" }
func (noopTerminalCache) SetStatus(_, _, _ string)     {}
func (noopTerminalCache) ClearStatus(_, _ string)      {}

type redisTerminalCache struct{}

func terminalCacheKey(provider, eventID string) string {
	return fmt.Sprintf("billing:webhook:%s:%s", provider, eventID)
}

func (redisTerminalCache) GetStatus(provider, eventID string) string {
	val, err := cache.Get(terminalCacheKey(provider, eventID))
	if err != nil {
		return ""
	}
	return val
}

func (redisTerminalCache) SetStatus(provider, eventID, status string) {
	_ = cache.Set(terminalCacheKey(provider, eventID), status, terminalCacheTTL)
}

func (redisTerminalCache) ClearStatus(provider, eventID string) {
	_ = cache.Delete(terminalCacheKey(provider, eventID))
}

// finalizeEvent writes the event's terminal or retryable status through the
// given repository (the in-transaction one while a unit of work is open) and
// keeps the in-memory row in sync. The terminal cache is NOT touched here:
// while a transaction is open the status is not durable yet, so the caller
// caches it via cacheTerminal only after the commit.
func (s *Service) finalizeEvent(repo Repository, event *models.WebhookEvent, status, errorCode, errorMessage string) error {
	if err := repo.FinalizeEvent(event.ID, status, errorCode, errorMessage); err != nil {
		return err
	}
	event.Status = status
	event.ErrorCode = errorCode
	event.ErrorMessage = errorMessage
	if status == models.WebhookStatusProcessed {
		now := time.Now()
		event.ProcessedAt = &now
	}
	return nil
}

// cacheTerminal records a keyed event's terminal status for the precheck
// fast path. Only call this once the status is durably committed; a cache
// entry for a rolled-back status would answer the provider's retry with
// already_processed and the payment would never be applied.
func (s *Service) cacheTerminal(event *models.WebhookEvent) {
	if event.Terminal() && event.ProviderEventID != nil {
		s.terminals.SetStatus(event.Provider, *event.ProviderEventID, event.Status)
	}
}
