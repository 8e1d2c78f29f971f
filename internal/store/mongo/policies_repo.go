package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type PolicyRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *PolicyRepo) Get(ctx context.Context, id int64) (core.Policy, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PolicyRepo) GetByNumber(ctx context.Context, number string) (core.Policy, error) {
	return r.findOne(ctx, bson.M{"policy_number": number})
}

func (r *PolicyRepo) findOne(ctx context.Context, filter bson.M) (core.Policy, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc PolicyDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Policy{}, core.ErrPolicyNotFound
		}
		return core.Policy{}, fmt.Errorf("policies.findOne: %w", err)
	}
	return fromPolicyDoc(doc), nil
}

func policyFilter(f core.PolicyFilter) bson.M {
	m := bson.M{}
	if f.BrokerID != nil {
		m["broker_id"] = *f.BrokerID
	}
	if f.ClientID > 0 {
		m["client_id"] = f.ClientID
	}
	if f.PaymentStatus != "" {
		m["payment_status"] = string(f.PaymentStatus)
	}
	if f.Status == "" {
		return m
	}
	if f.AsOf.IsZero() {
		m["status"] = string(f.Status)
		return m
	}
	// active and expired match on their effective status
	asOf := f.AsOf.UTC()
	switch f.Status {
	case core.PolicyStatusActive:
		m["status"] = string(core.PolicyStatusActive)
		m["end_date"] = bson.M{"$gte": asOf}
	case core.PolicyStatusExpired:
		m["$or"] = bson.A{
			bson.M{"status": string(core.PolicyStatusExpired)},
			bson.M{"status": string(core.PolicyStatusActive), "end_date": bson.M{"$lt": asOf}},
		}
	default:
		m["status"] = string(f.Status)
	}
	return m
}

func (r *PolicyRepo) List(ctx context.Context, filter core.PolicyFilter, limit, offset int) ([]core.Policy, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	mongoFilter := policyFilter(filter)

	// Get total count
	total, err := r.coll.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("policies.count: %w", err)
	}

	// Get paginated results
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("policies.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromPolicyDoc)
	if err != nil {
		return nil, 0, fmt.Errorf("policies.decode: %w", err)
	}
	return out, total, nil
}

// mutablePolicyFields is what UpdateIf may rewrite; number, offer link and creation time never change.
func mutablePolicyFields(d PolicyDoc) bson.M {
	set := bson.M{
		"client_name":         d.ClientName,
		"product_name":        d.ProductName,
		"insurer_name":        d.InsurerName,
		"broker_name":         d.BrokerName,
		"start_date":          d.StartDate,
		"end_date":            d.EndDate,
		"premium":             d.Premium,
		"sum_insured":         d.SumInsured,
		"status":              d.Status,
		"gdpr_consent":        d.GDPRConsent,
		"payment_method":      d.PaymentMethod,
		"payment_status":      d.PaymentStatus,
		"proof_of_payment":    d.ProofOfPayment,
		"cancellation_reason": d.CancellationReason,
		"custom_field_values": d.CustomFieldValues,
		"updated_at":          d.UpdatedAt,
	}
	if d.GDPRConsentDate != nil {
		set["gdpr_consent_date"] = *d.GDPRConsentDate
	}
	if d.ValidatedBy != nil {
		set["validated_by"] = *d.ValidatedBy
	}
	if d.ValidatedAt != nil {
		set["validated_at"] = *d.ValidatedAt
	}
	if d.CancelledAt != nil {
		set["cancelled_at"] = *d.CancelledAt
	}
	return set
}

func (r *PolicyRepo) UpdateIf(ctx context.Context, p core.Policy, expect core.PolicyState) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id":            p.ID,
		"status":         string(expect.Status),
		"payment_status": string(expect.PaymentStatus),
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": mutablePolicyFields(toPolicyDoc(p))})
	if err != nil {
		return fmt.Errorf("policies.update: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": p.ID})
	if err != nil {
		return fmt.Errorf("policies.count: %w", err)
	}
	if n == 0 {
		return core.ErrPolicyNotFound
	}
	return fmt.Errorf("%w: policy %s changed concurrently", core.ErrInvalidState, p.PolicyNumber)
}

func (r *PolicyRepo) ExpirePolicies(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	before = before.UTC()
	filter := bson.M{
		"status":   string(core.PolicyStatusActive),
		"end_date": bson.M{"$lt": before},
	}
	update := bson.M{"$set": bson.M{
		"status":     string(core.PolicyStatusExpired),
		"updated_at": before,
	}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("policies.expireMany: %w", err)
	}
	return res.ModifiedCount, nil
}
