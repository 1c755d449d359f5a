package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/domain/repositories"
	"github.com/youdub-team/youdub-backend/pkg/config"
)

// Gate decides whether a user may start a dubbing session and charges the
// chosen funding method. Daily free and ad allowances live in Redis counters
// keyed by UTC day; purchased credits live in Postgres.
type Gate struct {
	creditRepo repositories.CreditRepository
	redis      *redis.Client
	cfg        *config.CreditsConfig
	logger     *zap.Logger
}

// NewGate creates a new credit gate
func NewGate(creditRepo repositories.CreditRepository, redisClient *redis.Client, cfg *config.CreditsConfig, logger *zap.Logger) *Gate {
	return &Gate{
		creditRepo: creditRepo,
		redis:      redisClient,
		cfg:        cfg,
		logger:     logger,
	}
}

// Availability reports what each funding method has left for the user today.
type Availability struct {
	FreeRemaining   int                   `json:"free_remaining"`
	AdRemaining     int                   `json:"ad_remaining"`
	PaidCredits     int                   `json:"paid_credits"`
	PreferredMethod entities.CreditMethod `json:"preferred_method,omitempty"`
}

// CanStart reports whether any funding method is available.
func (a Availability) CanStart() bool {
	return a.FreeRemaining > 0 || a.AdRemaining > 0 || a.PaidCredits > 0
}

// preferred picks the cheapest available method: free allowance first, then ad
// allowance, then purchased credits.
func (a Availability) preferred() entities.CreditMethod {
	switch {
	case a.FreeRemaining > 0:
		return entities.CreditMethodFree
	case a.AdRemaining > 0:
		return entities.CreditMethodAd
	case a.PaidCredits > 0:
		return entities.CreditMethodCredit
	default:
		return ""
	}
}

// Check returns the user's remaining allowances without charging anything
func (g *Gate) Check(ctx context.Context, userID uuid.UUID) (*Availability, error) {
	freeUsed, err := g.dailyCount(ctx, entities.CreditMethodFree, userID)
	if err != nil {
		return nil, err
	}
	adUsed, err := g.dailyCount(ctx, entities.CreditMethodAd, userID)
	if err != nil {
		return nil, err
	}

	paid := 0
	credits, err := g.creditRepo.FindByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, entities.ErrCreditsNotFound) {
			return nil, apperrors.ErrDBFailed("find user credits", err)
		}
	} else {
		paid = credits.PaidCredits
	}

	availability := &Availability{
		FreeRemaining: remaining(g.cfg.FreeDailyLimit, freeUsed),
		AdRemaining:   remaining(g.cfg.AdDailyLimit, adUsed),
		PaidCredits:   paid,
	}
	availability.PreferredMethod = availability.preferred()
	return availability, nil
}

// Decide picks the funding method for a new session when the caller did not
// choose one, preferring free over ad over purchased credits.
func (g *Gate) Decide(ctx context.Context, userID uuid.UUID) (entities.CreditMethod, error) {
	availability, err := g.Check(ctx, userID)
	if err != nil {
		return "", err
	}
	method := availability.preferred()
	if method == "" {
		return "", apperrors.ErrInsufficientCredits("no dubbing credits available today")
	}
	return method, nil
}

// Consume charges one unit of the given method. The daily counters are
// incremented first and rolled back when over the cap, so two concurrent
// starts cannot both slip under the limit.
func (g *Gate) Consume(ctx context.Context, userID uuid.UUID, method entities.CreditMethod) error {
	switch method {
	case entities.CreditMethodFree:
		return g.consumeDaily(ctx, method, userID, g.cfg.FreeDailyLimit)
	case entities.CreditMethodAd:
		return g.consumeDaily(ctx, method, userID, g.cfg.AdDailyLimit)
	case entities.CreditMethodCredit:
		ok, err := g.creditRepo.ConsumeOne(ctx, userID)
		if err != nil {
			return apperrors.ErrDBFailed("consume credit", err)
		}
		if !ok {
			return apperrors.ErrInsufficientCredits("no purchased credits remaining")
		}
		return nil
	default:
		return apperrors.ErrInvalidArgument(fmt.Sprintf("unknown credit method %q", method))
	}
}

// Refund undoes a Consume when session creation fails afterwards
func (g *Gate) Refund(ctx context.Context, userID uuid.UUID, method entities.CreditMethod) error {
	switch method {
	case entities.CreditMethodFree, entities.CreditMethodAd:
		if err := g.redis.Decr(ctx, g.dailyKey(method, userID)).Err(); err != nil {
			return apperrors.ErrDBFailed("refund daily allowance", err)
		}
		return nil
	case entities.CreditMethodCredit:
		if err := g.creditRepo.RefundOne(ctx, userID); err != nil {
			return apperrors.ErrDBFailed("refund credit", err)
		}
		return nil
	default:
		return apperrors.ErrInvalidArgument(fmt.Sprintf("unknown credit method %q", method))
	}
}

func (g *Gate) consumeDaily(ctx context.Context, method entities.CreditMethod, userID uuid.UUID, limit int) error {
	key := g.dailyKey(method, userID)

	count, err := g.redis.Incr(ctx, key).Result()
	if err != nil {
		return apperrors.ErrDBFailed("increment daily allowance", err)
	}
	if count == 1 {
		// Counter expires at the next UTC midnight so allowances reset daily.
		if err := g.redis.ExpireAt(ctx, key, nextUTCMidnight()).Err(); err != nil {
			g.logger.Warn("failed to set allowance counter expiry",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	if int(count) > limit {
		if err := g.redis.Decr(ctx, key).Err(); err != nil {
			g.logger.Warn("failed to roll back allowance counter",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return apperrors.ErrInsufficientCredits(fmt.Sprintf("daily %s allowance exhausted", method))
	}
	return nil
}

func (g *Gate) dailyCount(ctx context.Context, method entities.CreditMethod, userID uuid.UUID) (int, error) {
	count, err := g.redis.Get(ctx, g.dailyKey(method, userID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, apperrors.ErrDBFailed("read daily allowance", err)
	}
	return count, nil
}

func (g *Gate) dailyKey(method entities.CreditMethod, userID uuid.UUID) string {
	day := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("credits:%s:%s:%s", method, userID, day)
}

func nextUTCMidnight() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
