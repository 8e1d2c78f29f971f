package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"
)

type PolicyService interface {
	// Get retrieves a policy by ID
	Get(ctx context.Context, actor Actor, id int64) (Policy, error)

	// GetByNumber retrieves a policy by policy number
	GetByNumber(ctx context.Context, actor Actor, number string) (Policy, error)

	// List returns policies with optional filtering and pagination
	List(ctx context.Context, actor Actor, filter PolicyFilter, limit, offset int) ([]Policy, int64, error)

	// UploadProof stores a payment proof and queues the policy for validation
	UploadProof(ctx context.Context, actor Actor, id int64, file ProofFile) (Policy, error)

	// OpenProof streams the stored payment proof
	OpenProof(ctx context.Context, actor Actor, id int64) (io.ReadCloser, Policy, error)

	ValidatePayment(ctx context.Context, actor Actor, id int64) (Policy, error)
	RejectPayment(ctx context.Context, actor Actor, id int64) (Policy, error)
	Cancel(ctx context.Context, actor Actor, id int64, reason string) (Policy, error)
	Suspend(ctx context.Context, actor Actor, id int64) (Policy, error)
}

// ProofFile is an uploaded payment document.
type ProofFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

var proofContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

func (f ProofFile) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid("file", "name is required")
	}
	if f.Body == nil || f.Size <= 0 {
		return invalid("file", "is empty")
	}
	if !proofContentTypes[f.ContentType] {
		return invalid("file", fmt.Sprintf("content type %q is not accepted", f.ContentType))
	}
	return nil
}

type policyService struct {
	policies PolicyRepo
	files    FileStore
	activity *ActivityRecorder
	clock    func() time.Time
	log      *slog.Logger
}

func NewPolicyService(repos Repositories, files FileStore, activity *ActivityRecorder, opts ...Option) PolicyService {
	o := buildOptions(opts)
	return &policyService{
		policies: repos.Policies,
		files:    files,
		activity: activity,
		clock:    o.clock,
		log:      o.log,
	}
}

func (s *policyService) load(ctx context.Context, actor Actor, id int64) (Policy, error) {
	if err := requireAuthenticated(actor); err != nil {
		return Policy{}, err
	}
	if id <= 0 {
		return Policy{}, invalid("policy_id", "is required")
	}
	p, err := s.policies.Get(ctx, id)
	if err != nil {
		return Policy{}, err
	}
	if !actor.CanSee(p.BrokerID) {
		return Policy{}, ErrPolicyNotFound
	}
	return p, nil
}

func (s *policyService) Get(ctx context.Context, actor Actor, id int64) (Policy, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return Policy{}, err
	}
	return p.withEffectiveStatus(s.clock()), nil
}

func (s *policyService) GetByNumber(ctx context.Context, actor Actor, number string) (Policy, error) {
	if err := requireAuthenticated(actor); err != nil {
		return Policy{}, err
	}
	if number == "" {
		return Policy{}, invalid("policy_number", "is required")
	}
	p, err := s.policies.GetByNumber(ctx, number)
	if err != nil {
		return Policy{}, err
	}
	if !actor.CanSee(p.BrokerID) {
		return Policy{}, ErrPolicyNotFound
	}
	return p.withEffectiveStatus(s.clock()), nil
}

func (s *policyService) List(ctx context.Context, actor Actor, filter PolicyFilter, limit, offset int) ([]Policy, int64, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	brokerID, ok := scopeBrokerID(actor)
	if !ok {
		return []Policy{}, 0, nil
	}
	if brokerID != nil {
		filter.BrokerID = brokerID
	}
	now := s.clock()
	filter.AsOf = now

	policies, total, err := s.policies.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	policies = FilterByScope(policies, actor)
	for i := range policies {
		policies[i] = policies[i].withEffectiveStatus(now)
	}
	return policies, total, nil
}

// transition loads the policy, applies step to its effective state and stores the
// result conditioned on the state it was read in.
func (s *policyService) transition(
	ctx context.Context,
	actor Actor,
	id int64,
	step func(p Policy, now time.Time) (Policy, error),
) (before, after Policy, err error) {
	stored, err := s.load(ctx, actor, id)
	if err != nil {
		return Policy{}, Policy{}, err
	}
	now := s.clock()
	current := stored.withEffectiveStatus(now)
	next, err := step(current, now)
	if err != nil {
		return Policy{}, Policy{}, err
	}
	if err := s.policies.UpdateIf(ctx, next, stored.State()); err != nil {
		return Policy{}, Policy{}, err
	}
	return current, next, nil
}

func (s *policyService) UploadProof(ctx context.Context, actor Actor, id int64, file ProofFile) (Policy, error) {
	// 1) Validate file
	if err := file.Validate(); err != nil {
		return Policy{}, err
	}

	// 2) Check the policy accepts a proof before storing anything
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return Policy{}, err
	}
	now := s.clock()
	if _, err := p.withEffectiveStatus(now).attachProof("", now); err != nil {
		return Policy{}, err
	}

	// 3) Store the document
	name := path.Join("policies", p.PolicyNumber, path.Base(file.Name))
	ref, err := s.files.Put(ctx, name, file.ContentType, file.Body, file.Size)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to store payment proof: %w", err)
	}

	// 4) Move to validation
	_, next, err := s.transition(ctx, actor, id, func(p Policy, now time.Time) (Policy, error) {
		return p.attachProof(ref, now)
	})
	if err != nil {
		s.discardProof(ctx, id, ref)
		return Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     next.ID,
		ActivityType: ActivityPaymentUploaded,
		Description:  "Payment proof uploaded: " + path.Base(file.Name),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"reference": ref, "content_type": file.ContentType},
		CreatedAt:    next.UpdatedAt,
	})
	return next, nil
}

// discardProof removes a stored document the policy never came to reference.
func (s *policyService) discardProof(ctx context.Context, policyID int64, ref string) {
	if err := s.files.Delete(context.WithoutCancel(ctx), ref); err != nil {
		s.log.Warn("orphaned payment proof", "policy_id", policyID, "reference", ref, "error", err)
	}
}

func (s *policyService) OpenProof(ctx context.Context, actor Actor, id int64) (io.ReadCloser, Policy, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, Policy{}, err
	}
	if p.ProofOfPayment == "" {
		return nil, Policy{}, fmt.Errorf("%w: policy %s has no payment proof", ErrNotFound, p.PolicyNumber)
	}
	rc, err := s.files.Open(ctx, p.ProofOfPayment)
	if err != nil {
		return nil, Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     p.ID,
		ActivityType: ActivityDocumentDownloaded,
		Description:  "Payment proof downloaded",
		PerformedBy:  actor.UserID,
		CreatedAt:    s.clock(),
	})
	return rc, p.withEffectiveStatus(s.clock()), nil
}

func (s *policyService) ValidatePayment(ctx context.Context, actor Actor, id int64) (Policy, error) {
	if err := Require(actor, PermValidatePayment); err != nil {
		return Policy{}, err
	}
	_, next, err := s.transition(ctx, actor, id, func(p Policy, now time.Time) (Policy, error) {
		return p.validatePayment(actor.UserID, now)
	})
	if err != nil {
		return Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     next.ID,
		ActivityType: ActivityPaymentValidated,
		Description:  "Payment validated and policy activated",
		PerformedBy:  actor.UserID,
		CreatedAt:    next.UpdatedAt,
	})
	return next, nil
}

func (s *policyService) RejectPayment(ctx context.Context, actor Actor, id int64) (Policy, error) {
	if err := Require(actor, PermValidatePayment); err != nil {
		return Policy{}, err
	}
	_, next, err := s.transition(ctx, actor, id, func(p Policy, now time.Time) (Policy, error) {
		return p.rejectPayment(now)
	})
	if err != nil {
		return Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     next.ID,
		ActivityType: ActivityPaymentRejected,
		Description:  "Payment proof rejected - new proof required",
		PerformedBy:  actor.UserID,
		CreatedAt:    next.UpdatedAt,
	})
	return next, nil
}

func (s *policyService) Cancel(ctx context.Context, actor Actor, id int64, reason string) (Policy, error) {
	if err := Require(actor, PermCancelPolicy); err != nil {
		return Policy{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Policy{}, invalid("cancellation_reason", "is required")
	}
	before, next, err := s.transition(ctx, actor, id, func(p Policy, now time.Time) (Policy, error) {
		return p.cancel(reason, now)
	})
	if err != nil {
		return Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     next.ID,
		ActivityType: ActivityPolicyCancelled,
		Description:  fmt.Sprintf("Policy %s cancelled: %s", next.PolicyNumber, reason),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"reason": reason, "previous_status": before.Status},
		CreatedAt:    next.UpdatedAt,
	})
	return next, nil
}

func (s *policyService) Suspend(ctx context.Context, actor Actor, id int64) (Policy, error) {
	if err := Require(actor, PermCancelPolicy); err != nil {
		return Policy{}, err
	}
	before, next, err := s.transition(ctx, actor, id, func(p Policy, now time.Time) (Policy, error) {
		return p.suspend(now)
	})
	if err != nil {
		return Policy{}, err
	}

	s.activity.Record(ctx, ActivityLogEntry{
		EntityType:   EntityPolicy,
		EntityID:     next.ID,
		ActivityType: ActivityStatusChanged,
		Description:  fmt.Sprintf("Policy %s suspended", next.PolicyNumber),
		PerformedBy:  actor.UserID,
		Metadata:     map[string]any{"from": before.Status, "to": next.Status},
		CreatedAt:    next.UpdatedAt,
	})
	return next, nil
}
