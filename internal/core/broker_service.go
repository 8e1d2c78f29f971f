package core

import (
	"context"
	"time"
)

type BrokerService interface {
	List(ctx context.Context, actor Actor) ([]Broker, error)
	Get(ctx context.Context, actor Actor, id int64) (Broker, error)
	Create(ctx context.Context, actor Actor, b Broker) (Broker, error)
	Update(ctx context.Context, actor Actor, id int64, b Broker) (Broker, error)
}

type brokerService struct {
	brokers BrokerRepo
	clock   func() time.Time
}

func NewBrokerService(repos Repositories, opts ...Option) BrokerService {
	o := buildOptions(opts)
	return &brokerService{brokers: repos.Brokers, clock: o.clock}
}

// List returns every broker to those who manage them, otherwise the caller's own record.
func (s *brokerService) List(ctx context.Context, actor Actor) ([]Broker, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	brokers, err := s.brokers.List(ctx)
	if err != nil {
		return nil, err
	}
	if actor.CanManageBrokers() {
		return brokers, nil
	}
	return FilterByScope(brokers, actor), nil
}

func (s *brokerService) Get(ctx context.Context, actor Actor, id int64) (Broker, error) {
	if err := requireAuthenticated(actor); err != nil {
		return Broker{}, err
	}
	b, err := s.brokers.Get(ctx, id)
	if err != nil {
		return Broker{}, err
	}
	if !actor.CanManageBrokers() && !actor.CanSee(b.ID) {
		return Broker{}, ErrBrokerNotFound
	}
	return b, nil
}

func (s *brokerService) Create(ctx context.Context, actor Actor, b Broker) (Broker, error) {
	if err := Require(actor, PermManageBrokers); err != nil {
		return Broker{}, err
	}
	if b.Role == "" {
		b.Role = RoleBroker
	}
	if err := b.Validate(); err != nil {
		return Broker{}, err
	}
	now := s.clock()
	b.ID = 0
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.brokers.Create(ctx, &b); err != nil {
		return Broker{}, err
	}
	return b, nil
}

func (s *brokerService) Update(ctx context.Context, actor Actor, id int64, b Broker) (Broker, error) {
	if err := Require(actor, PermManageBrokers); err != nil {
		return Broker{}, err
	}
	existing, err := s.brokers.Get(ctx, id)
	if err != nil {
		return Broker{}, err
	}
	if b.Role == "" {
		b.Role = existing.Role
	}
	if err := b.Validate(); err != nil {
		return Broker{}, err
	}
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.clock()
	if err := s.brokers.Update(ctx, b); err != nil {
		return Broker{}, err
	}
	return b, nil
}
