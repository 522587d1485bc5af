package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
	"telegram-ai-proxy/internal/infra/logging"
	"telegram-ai-proxy/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// AccessUseCase decides whether a user may reach the AI path.
type AccessUseCase interface {
	Check(ctx context.Context, userID int64) model.MembershipResult
	IsMember(ctx context.Context, userID int64) bool
}

type accessUC struct {
	lookup  adapter.MembershipLookup
	channel string
	timeout time.Duration
	log     *zerolog.Logger
}

// NewAccessUseCase gates on membership of channel. Every call queries lookup;
// nothing is cached.
func NewAccessUseCase(lookup adapter.MembershipLookup, channel string, timeout time.Duration, logger *zerolog.Logger) *accessUC {
	l := logger.With().Str("component", "access").Str("channel", channel).Logger()
	return &accessUC{lookup: lookup, channel: channel, timeout: timeout, log: &l}
}

func (a *accessUC) Check(ctx context.Context, userID int64) model.MembershipResult {
	defer logging.TraceDuration(a.log, "AccessUC.Check")()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	role, err := a.lookup.GetMemberRole(ctx, a.channel, userID)
	var res model.MembershipResult
	switch {
	case err != nil:
		res = model.MembershipResult{
			Status: model.MembershipLookupError,
			Err:    fmt.Errorf("%w: %w", domain.ErrMembershipLookup, err),
		}
		logging.With(ctx, a.log).Warn().Err(err).Int64("user_id", userID).Msg("membership lookup failed; denying")
	case role.GrantsAccess():
		res = model.MembershipResult{Status: model.MembershipMember, Role: role}
	default:
		res = model.MembershipResult{Status: model.MembershipNotMember, Role: role}
		a.log.Debug().Int64("user_id", userID).Str("role", string(role)).Msg("not a member")
	}
	metrics.IncAccessCheck(res.Status.String())
	return res
}

func (a *accessUC) IsMember(ctx context.Context, userID int64) bool {
	return a.Check(ctx, userID).IsMember()
}
