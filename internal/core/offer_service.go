package core

import (
	"context"
	"fmt"
	"maps"
	"time"
)

type OfferService interface {
	// Create persists a rated offer as PENDING.
	Create(ctx context.Context, actor Actor, in OfferInput) (Offer, error)

	// Get retrieves an offer by ID
	Get(ctx context.Context, actor Actor, id int64) (Offer, error)

	// List returns the offers visible to the actor
	List(ctx context.Context, actor Actor, filter OfferFilter) ([]Offer, error)

	// Reject withdraws a pending offer
	Reject(ctx context.Context, actor Actor, id int64) (Offer, error)

	// ConvertToPolicy accepts a pending offer and issues its policy and commission
	ConvertToPolicy(ctx context.Context, actor Actor, id int64, in CheckoutInput) (Policy, error)
}

type offerService struct {
	offers   OfferRepo
	clients  ClientRepo
	products ProductRepo
	brokers  BrokerRepo
	issuer   PolicyIssuer
	seq      Sequencer
	activity *ActivityRecorder
	clock    func() time.Time
}

func NewOfferService(repos Repositories, activity *ActivityRecorder, opts ...Option) OfferService {
	o := buildOptions(opts)
	return &offerService{
		offers:   repos.Offers,
		clients:  repos.Clients,
		products: repos.Products,
		brokers:  repos.Brokers,
		issuer:   repos.Issuer,
		seq:      repos.Sequences,
		activity: activity,
		clock:    o.clock,
	}
}

func offerSequence(year int) string  { return fmt.Sprintf("offer-%d", year) }
func policySequence(year int) string { return fmt.Sprintf("policy-%d", year) }

func (s *offerService) Create(ctx context.Context, actor Actor, in OfferInput) (Offer, error) {
	// 1) Validate input
	if err := requireAuthenticated(actor); err != nil {
		return Offer{}, err
	}
	if err := in.Validate(); err != nil {
		return Offer{}, err
	}
	if !in.GDPRConsent {
		return Offer{}, fmt.Errorf("%w: the client must accept data processing before an offer is issued", ErrConsentRequired)
	}

	// 2) Load client and product
	client, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return Offer{}, err
	}
	if !actor.CanSee(client.BrokerID) {
		return Offer{}, ErrClientNotFound
	}
	product, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		return Offer{}, err
	}
	if !product.Active {
		return Offer{}, fmt.Errorf("%w: %s", ErrProductInactive, product.Code)
	}

	// 3) Resolve the selling broker
	brokerID, err := sellingBroker(actor, in.BrokerID, client.BrokerID)
	if err != nil {
		return Offer{}, err
	}
	broker, err := s.brokers.Get(ctx, brokerID)
	if err != nil {
		return Offer{}, err
	}

	// 4) Number and freeze the offer
	now := s.clock()
	seq, err := s.seq.NextSequence(ctx, offerSequence(now.Year()))
	if err != nil {
		return Offer{}, fmt.Errorf("failed to generate offer number: %w", err)
	}

	premium := Round2(*in.Premium)
	breakdown := PremiumBreakdown{BasePremium: premium, Factors: []PremiumFactor{}, FinalPremium: premium}
	if in.Breakdown != nil {
		breakdown = *in.Breakdown
	}
	offer := Offer{
		OfferNumber:       OfferNumber(now.Year(), seq),
		ClientID:          client.ID,
		ClientName:        client.FullName(),
		ProductID:         product.ID,
		ProductName:       product.Name,
		InsurerName:       product.InsurerName,
		BrokerID:          broker.ID,
		BrokerName:        broker.FullName(),
		StartDate:         in.StartDate.Time,
		EndDate:           in.EndDate.Time,
		Premium:           premium,
		SumInsured:        in.SumInsured,
		Breakdown:         breakdown,
		Status:            OfferStatusPending,
		GDPRConsent:       true,
		GDPRConsentDate:   &now,
		CustomFieldValues: maps.Clone(in.CustomFieldValues),
		ExpiresAt:         now.AddDate(0, 0, OfferValidityDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if offer.CustomFieldValues == nil {
		offer.CustomFieldValues = map[string]any{}
	}

	// 5) Persist
	if err := s.offers.Create(ctx, &offer); err != nil {
		return Offer{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityOffer,
		EntityID:     offer.ID,
		ActivityType: ActivityOfferCreated,
		Description:  fmt.Sprintf("Offer %s created for %s", offer.OfferNumber, offer.ClientName),
		PerformedBy:  actor.UserID,
		Metadata: map[string]any{
			"client_id":  offer.ClientID,
			"product_id": offer.ProductID,
			"premium":    offer.Premium.String(),
		},
		CreatedAt: now,
	})
	return offer, nil
}

// sellingBroker picks the broker an offer is booked under. Brokers always sell
// for themselves; managers may name any broker and default to the client's.
func sellingBroker(actor Actor, requested *int64, clientBroker int64) (int64, error) {
	if actor.Role == RoleBroker {
		if actor.BrokerID == nil {
			return 0, fmt.Errorf("%w: broker account is not linked to a broker record", ErrPermissionDenied)
		}
		if requested != nil && *requested != *actor.BrokerID {
			return 0, fmt.Errorf("%w: brokers can only create offers for themselves", ErrPermissionDenied)
		}
		return *actor.BrokerID, nil
	}
	if requested != nil {
		return *requested, nil
	}
	return clientBroker, nil
}

func (s *offerService) load(ctx context.Context, actor Actor, id int64) (Offer, error) {
	if err := requireAuthenticated(actor); err != nil {
		return Offer{}, err
	}
	if id <= 0 {
		return Offer{}, invalid("offer_id", "is required")
	}
	offer, err := s.offers.Get(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	if !actor.CanSee(offer.BrokerID) {
		return Offer{}, ErrOfferNotFound
	}
	return offer, nil
}

func (s *offerService) Get(ctx context.Context, actor Actor, id int64) (Offer, error) {
	offer, err := s.load(ctx, actor, id)
	if err != nil {
		return Offer{}, err
	}
	return offer.withEffectiveStatus(s.clock()), nil
}

func (s *offerService) List(ctx context.Context, actor Actor, filter OfferFilter) ([]Offer, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	brokerID, ok := scopeBrokerID(actor)
	if !ok {
		return []Offer{}, nil
	}
	if brokerID != nil {
		filter.BrokerID = brokerID
	}
	now := s.clock()
	filter.AsOf = now

	offers, err := s.offers.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	offers = FilterByScope(offers, actor)
	for i := range offers {
		offers[i] = offers[i].withEffectiveStatus(now)
	}
	return offers, nil
}

func (s *offerService) Reject(ctx context.Context, actor Actor, id int64) (Offer, error) {
	// 1) Check permission
	if err := Require(actor, PermDeleteOffer); err != nil {
		return Offer{}, err
	}

	// 2) Load offer
	offer, err := s.load(ctx, actor, id)
	if err != nil {
		return Offer{}, err
	}

	// 3) Verify offer is still pending
	now := s.clock()
	if status := offer.EffectiveStatus(now); status != OfferStatusPending {
		return Offer{}, fmt.Errorf("%w: offer %s is %s", ErrOfferNotPending, offer.OfferNumber, status)
	}

	// 4) Flip status
	if err := s.offers.TransitionStatus(ctx, offer.ID, OfferStatusPending, OfferStatusRejected, now); err != nil {
		return Offer{}, err
	}
	offer.Status = OfferStatusRejected
	offer.RejectedAt = &now
	offer.UpdatedAt = now

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityOffer,
		EntityID:     offer.ID,
		ActivityType: ActivityStatusChanged,
		Description:  fmt.Sprintf("Offer %s rejected", offer.OfferNumber),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"from": OfferStatusPending, "to": OfferStatusRejected},
		CreatedAt:    now,
	})
	return offer, nil
}

func (s *offerService) ConvertToPolicy(ctx context.Context, actor Actor, id int64, in CheckoutInput) (Policy, error) {
	// 1) Validate checkout
	if err := requireAuthenticated(actor); err != nil {
		return Policy{}, err
	}
	if err := in.Validate(); err != nil {
		return Policy{}, err
	}

	// 2) Load offer
	offer, err := s.load(ctx, actor, id)
	if err != nil {
		return Policy{}, err
	}

	// 3) Verify offer is pending and still valid
	now := s.clock()
	if offer.EffectiveStatus(now) == OfferStatusExpired {
		if offer.Status == OfferStatusPending {
			s.expire(ctx, actor, offer, now)
		}
		return Policy{}, fmt.Errorf("%w: offer %s expired on %s, create a new offer",
			ErrOfferExpired, offer.OfferNumber, offer.ExpiresAt.Format(dateLayout))
	}
	if offer.Status != OfferStatusPending {
		return Policy{}, fmt.Errorf("%w: offer %s is %s", ErrOfferNotPending, offer.OfferNumber, offer.Status)
	}

	// 4) Load broker for the commission rate
	broker, err := s.brokers.Get(ctx, offer.BrokerID)
	if err != nil {
		return Policy{}, err
	}

	// 5) Generate policy number
	seq, err := s.seq.NextSequence(ctx, policySequence(now.Year()))
	if err != nil {
		return Policy{}, fmt.Errorf("failed to generate policy number: %w", err)
	}
	policy := NewPolicyFromOffer(offer, in, PolicyNumber(now.Year(), seq), now)
	commission := NewCommission(policy, broker, now)

	// 6) Accept offer, save policy and commission atomically
	if err := s.issuer.IssuePolicy(ctx, Issuance{
		OfferID:    offer.ID,
		AcceptedAt: now,
		Policy:     &policy,
		Commission: &commission,
	}); err != nil {
		return Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityOffer,
		EntityID:     offer.ID,
		ActivityType: ActivityOfferAccepted,
		Description:  fmt.Sprintf("Offer %s accepted and converted to policy %s", offer.OfferNumber, policy.PolicyNumber),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"policy_id": policy.ID},
		CreatedAt:    now,
	})
	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     policy.ID,
		ActivityType: ActivityPolicyCreated,
		Description:  fmt.Sprintf("Policy %s created from offer %s", policy.PolicyNumber, offer.OfferNumber),
		PerformedBy:  actor.UserID,
		Metadata: map[string]any{
			"offer_id":       offer.ID,
			"payment_method": policy.PaymentMethod,
			"status":         policy.Status,
		},
		CreatedAt: now,
	})
	return policy, nil
}

// expire persists a lazily observed expiry. Losing the race to another writer is fine.
func (s *offerService) expire(ctx context.Context, actor Actor, offer Offer, now time.Time) {
	if err := s.offers.TransitionStatus(ctx, offer.ID, OfferStatusPending, OfferStatusExpired, now); err != nil {
		return
	}
	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityOffer,
		EntityID:     offer.ID,
		ActivityType: ActivityOfferExpired,
		Description:  fmt.Sprintf("Offer %s expired", offer.OfferNumber),
		PerformedBy:  actor.UserID,
		CreatedAt:    now,
	})
}
