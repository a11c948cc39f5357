package billing

import (
	"strings"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"gorm.io/gorm"
)

// Service is the webhook-processing core: it owns the dedup, ledger and
// subscription-transition logic and drives them through one transactional
// unit of work per delivery.
type Service struct {
	repo        Repository
	terminals   TerminalCache
	defaultPlan string
}

// NewService creates a billing service from an injected repository. The
// terminal-status cache is disabled; wire one with WithTerminalCache.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, terminals: noopTerminalCache{}}
}

// NewServiceFromDB creates a fully wired billing service from a GORM DB
// handle: Redis-backed terminal cache, default plan from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db)).
		WithTerminalCache(redisTerminalCache{}).
		WithDefaultPlan(env.GetEnv("BILLING_DEFAULT_PLAN", ""))
}

// WithTerminalCache installs a cache consulted before the precheck query.
func (s *Service) WithTerminalCache(c TerminalCache) *Service {
	if c != nil {
		s.terminals = c
	}
	return s
}

// WithDefaultPlan sets the plan used when a payload carries no plan_id.
func (s *Service) WithDefaultPlan(planID string) *Service {
	s.defaultPlan = strings.TrimSpace(planID)
	return s
}
