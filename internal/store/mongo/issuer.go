package mongo

import (
	"context"
	"fmt"

	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// Issuer commits offer conversions in a multi-document transaction.
type Issuer struct {
	base
	client *mongodrv.Client
}

func (r *Issuer) IssuePolicy(ctx context.Context, in core.Issuance) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// Ids come from the counters outside the transaction; a rollback leaves a gap.
	policyID, err := r.nextID(ctx, ColPolicies)
	if err != nil {
		return err
	}
	commissionID, err := r.nextID(ctx, ColCommissions)
	if err != nil {
		return err
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("issue.session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongodrv.SessionContext) (any, error) {
		// 1) Claim the offer
		if err := transitionOffer(sc, r.db.Collection(ColOffers), in.OfferID,
			core.OfferStatusPending, core.OfferStatusAccepted, in.AcceptedAt); err != nil {
			return nil, err
		}

		// 2) Insert policy
		pdoc := toPolicyDoc(*in.Policy)
		pdoc.ID = policyID
		if _, err := r.db.Collection(ColPolicies).InsertOne(sc, pdoc); err != nil {
			if isDuplicateKey(err) {
				return nil, core.ErrPolicyExists
			}
			return nil, fmt.Errorf("policies.insert: %w", err)
		}

		// 3) Insert commission
		cdoc := toCommissionDoc(*in.Commission)
		cdoc.ID = commissionID
		cdoc.PolicyID = policyID
		if _, err := r.db.Collection(ColCommissions).InsertOne(sc, cdoc); err != nil {
			return nil, fmt.Errorf("commissions.insert: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	in.Policy.ID = policyID
	in.Commission.ID = commissionID
	in.Commission.PolicyID = policyID
	return nil
}
