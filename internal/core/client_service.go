package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ClientService interface {
	Create(ctx context.Context, actor Actor, in ClientInput) (Client, error)
	Get(ctx context.Context, actor Actor, id int64) (Client, error)
	List(ctx context.Context, actor Actor, filter ClientFilter) ([]Client, error)
	Update(ctx context.Context, actor Actor, id int64, patch ClientPatch) (Client, error)
	// GrantConsent records GDPR consent once; it cannot be withdrawn here.
	GrantConsent(ctx context.Context, actor Actor, id int64) (Client, error)
	Delete(ctx context.Context, actor Actor, id int64) error
}

type clientService struct {
	clients  ClientRepo
	activity *ActivityRecorder
	clock    func() time.Time
}

func NewClientService(repos Repositories, activity *ActivityRecorder, opts ...Option) ClientService {
	o := buildOptions(opts)
	return &clientService{clients: repos.Clients, activity: activity, clock: o.clock}
}

func (s *clientService) Create(ctx context.Context, actor Actor, in ClientInput) (Client, error) {
	if err := requireAuthenticated(actor); err != nil {
		return Client{}, err
	}
	if err := in.Validate(); err != nil {
		return Client{}, err
	}

	var brokerID int64
	switch {
	case actor.Role == RoleBroker:
		if actor.BrokerID == nil {
			return Client{}, fmt.Errorf("%w: broker account is not linked to a broker record", ErrPermissionDenied)
		}
		if in.BrokerID != nil && *in.BrokerID != *actor.BrokerID {
			return Client{}, fmt.Errorf("%w: brokers can only register their own clients", ErrPermissionDenied)
		}
		brokerID = *actor.BrokerID
	case in.BrokerID != nil:
		brokerID = *in.BrokerID
	case actor.BrokerID != nil:
		brokerID = *actor.BrokerID
	default:
		return Client{}, invalid("broker_id", "is required")
	}

	now := s.clock()
	c := Client{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		DateOfBirth: in.DateOfBirth,
		Nationality: in.Nationality,
		CNP:         in.CNP,
		IDType:      in.IDType,
		IDNumber:    in.IDNumber,
		IDExpiry:    in.IDExpiry,
		GDPRConsent: in.GDPRConsent,
		BrokerID:    brokerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.GDPRConsent {
		c.GDPRConsentDate = &now
	}
	if err := s.clients.Create(ctx, &c); err != nil {
		return Client{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityClient,
		EntityID:     c.ID,
		ActivityType: ActivityClientCreated,
		Description:  fmt.Sprintf("Client %s created", c.FullName()),
		PerformedBy:  actor.UserID,
		CreatedAt:    now,
	})
	if c.GDPRConsent {
		s.recordConsent(ctx, actor, c, now)
	}
	return c, nil
}

func (s *clientService) load(ctx context.Context, actor Actor, id int64) (Client, error) {
	if err := requireAuthenticated(actor); err != nil {
		return Client{}, err
	}
	if id <= 0 {
		return Client{}, invalid("client_id", "is required")
	}
	c, err := s.clients.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if !actor.CanSee(c.BrokerID) {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (s *clientService) Get(ctx context.Context, actor Actor, id int64) (Client, error) {
	return s.load(ctx, actor, id)
}

func (s *clientService) List(ctx context.Context, actor Actor, filter ClientFilter) ([]Client, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	brokerID, ok := scopeBrokerID(actor)
	if !ok {
		return []Client{}, nil
	}
	if brokerID != nil {
		filter.BrokerID = brokerID
	}
	clients, err := s.clients.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FilterByScope(clients, actor), nil
}

func (s *clientService) Update(ctx context.Context, actor Actor, id int64, patch ClientPatch) (Client, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return Client{}, err
	}
	if patch.Email != nil {
		if !emailRegex.MatchString(*patch.Email) {
			return Client{}, invalid("email", "is not a valid address")
		}
		c.Email = *patch.Email
	}
	if patch.Phone != nil {
		if strings.TrimSpace(*patch.Phone) == "" {
			return Client{}, invalid("phone", "is required")
		}
		c.Phone = *patch.Phone
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	now := s.clock()
	c.UpdatedAt = now
	if err := s.clients.Update(ctx, c); err != nil {
		return Client{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityClient,
		EntityID:     c.ID,
		ActivityType: ActivityClientUpdated,
		Description:  fmt.Sprintf("Client %s updated", c.FullName()),
		PerformedBy:  actor.UserID,
		CreatedAt:    now,
	})
	return c, nil
}

func (s *clientService) GrantConsent(ctx context.Context, actor Actor, id int64) (Client, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return Client{}, err
	}
	if c.GDPRConsent {
		return Client{}, ErrConsentAlreadySet
	}
	now := s.clock()
	c.GDPRConsent = true
	c.GDPRConsentDate = &now
	c.UpdatedAt = now
	if err := s.clients.Update(ctx, c); err != nil {
		return Client{}, err
	}
	s.recordConsent(ctx, actor, c, now)
	return c, nil
}

func (s *clientService) recordConsent(ctx context.Context, actor Actor, c Client, now time.Time) {
	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityClient,
		EntityID:     c.ID,
		ActivityType: ActivityGDPRSigned,
		Description:  fmt.Sprintf("GDPR consent recorded for %s", c.FullName()),
		PerformedBy:  actor.UserID,
		CreatedAt:    now,
	})
}

func (s *clientService) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := Require(actor, PermDeleteClient); err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	return s.clients.Delete(ctx, id)
}
