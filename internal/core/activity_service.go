package core

import (
	"context"
	"fmt"
)

const defaultActivityLimit = 50

type ActivityService interface {
	// ListForEntity returns an entity's timeline, newest first.
	ListForEntity(ctx context.Context, actor Actor, entityType EntityType, entityID int64, limit int) ([]ActivityLogEntry, error)
}

type activityService struct {
	activity ActivityRepo
	clients  ClientRepo
	offers   OfferRepo
	policies PolicyRepo
}

func NewActivityService(repos Repositories) ActivityService {
	return &activityService{
		activity: repos.Activity,
		clients:  repos.Clients,
		offers:   repos.Offers,
		policies: repos.Policies,
	}
}

func (s *activityService) ListForEntity(ctx context.Context, actor Actor, entityType EntityType, entityID int64, limit int) ([]ActivityLogEntry, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if !entityType.Valid() {
		return nil, invalid("entity_type", fmt.Sprintf("unknown entity type %q", entityType))
	}
	if entityID <= 0 {
		return nil, invalid("entity_id", "is required")
	}
	if limit <= 0 || limit > 200 {
		limit = defaultActivityLimit
	}
	if err := s.checkVisible(ctx, actor, entityType, entityID); err != nil {
		return nil, err
	}
	return s.activity.ListForEntity(ctx, entityType, entityID, limit)
}

func (s *activityService) checkVisible(ctx context.Context, actor Actor, entityType EntityType, id int64) error {
	var owner int64
	switch entityType {
	case EntityClient:
		c, err := s.clients.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = c.BrokerID
	case EntityOffer:
		o, err := s.offers.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = o.BrokerID
	case EntityPolicy:
		p, err := s.policies.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = p.BrokerID
	}
	if !actor.CanSee(owner) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entityType, id)
	}
	return nil
}
