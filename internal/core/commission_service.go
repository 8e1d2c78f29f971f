package core

import (
	"context"
	"fmt"
	"time"
)

type CommissionService interface {
	List(ctx context.Context, actor Actor, filter CommissionFilter) ([]Commission, error)
	MarkPaid(ctx context.Context, actor Actor, id int64) (Commission, error)
	Cancel(ctx context.Context, actor Actor, id int64) (Commission, error)
}

type commissionService struct {
	commissions CommissionRepo
	activity    *ActivityRecorder
	clock       func() time.Time
}

func NewCommissionService(repos Repositories, activity *ActivityRecorder, opts ...Option) CommissionService {
	o := buildOptions(opts)
	return &commissionService{
		commissions: repos.Commissions,
		activity:    activity,
		clock:       o.clock,
	}
}

func (s *commissionService) List(ctx context.Context, actor Actor, filter CommissionFilter) ([]Commission, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	brokerID, ok := scopeBrokerID(actor)
	if !ok {
		return []Commission{}, nil
	}
	if brokerID != nil {
		filter.BrokerID = brokerID
	}
	items, err := s.commissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FilterByScope(items, actor), nil
}

func (s *commissionService) load(ctx context.Context, actor Actor, id int64) (Commission, error) {
	if id <= 0 {
		return Commission{}, invalid("commission_id", "is required")
	}
	c, err := s.commissions.Get(ctx, id)
	if err != nil {
		return Commission{}, err
	}
	if !actor.CanSee(c.BrokerID) {
		return Commission{}, ErrCommissionNotFound
	}
	return c, nil
}

func (s *commissionService) MarkPaid(ctx context.Context, actor Actor, id int64) (Commission, error) {
	// 1) Check permission
	if err := Require(actor, PermPayCommission); err != nil {
		return Commission{}, err
	}

	// 2) Load commission
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return Commission{}, err
	}
	if c.Status != CommissionStatusPending {
		return Commission{}, fmt.Errorf("%w: commission is %s", ErrInvalidState, c.Status)
	}

	// 3) Flip status
	now := s.clock()
	paidOn := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.commissions.TransitionStatus(ctx, c.ID, CommissionStatusPending, CommissionStatusPaid, &paidOn, now); err != nil {
		return Commission{}, err
	}
	c.Status = CommissionStatusPaid
	c.PaymentDate = &paidOn
	c.UpdatedAt = now

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     c.PolicyID,
		ActivityType: ActivityCommissionPaid,
		Description:  fmt.Sprintf("Commission of %s paid to %s", c.Amount.StringFixed(2), c.BrokerName),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"commission_id": c.ID, "broker_id": c.BrokerID},
		CreatedAt:    now,
	})
	return c, nil
}

func (s *commissionService) Cancel(ctx context.Context, actor Actor, id int64) (Commission, error) {
	if err := Require(actor, PermPayCommission); err != nil {
		return Commission{}, err
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return Commission{}, err
	}
	if c.Status != CommissionStatusPending {
		return Commission{}, fmt.Errorf("%w: commission is %s", ErrInvalidState, c.Status)
	}

	now := s.clock()
	if err := s.commissions.TransitionStatus(ctx, c.ID, CommissionStatusPending, CommissionStatusCancelled, nil, now); err != nil {
		return Commission{}, err
	}
	c.Status = CommissionStatusCancelled
	c.UpdatedAt = now

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     c.PolicyID,
		ActivityType: ActivityStatusChanged,
		Description:  fmt.Sprintf("Commission for policy %s cancelled", c.PolicyNumber),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"commission_id": c.ID, "from": CommissionStatusPending, "to": CommissionStatusCancelled},
		CreatedAt:    now,
	})
	return c, nil
}
