package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// Issuer commits offer conversions in a single database transaction.
type Issuer struct{ base }

func (r *Issuer) IssuePolicy(ctx context.Context, in core.Issuance) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		// 1) Claim the offer
		if err := transitionOffer(tx, in.OfferID, core.OfferStatusPending, core.OfferStatusAccepted, in.AcceptedAt); err != nil {
			return err
		}

		// 2) Insert policy
		prec := policyToRecord(*in.Policy)
		if err := tx.Create(&prec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return core.ErrPolicyExists
			}
			return fmt.Errorf("policies.insert: %w", err)
		}
		in.Policy.ID = prec.ID

		// 3) Insert commission
		in.Commission.PolicyID = prec.ID
		crec := commissionToRecord(*in.Commission)
		if err := tx.Create(&crec).Error; err != nil {
			return fmt.Errorf("commissions.insert: %w", err)
		}
		in.Commission.ID = crec.ID
		return nil
	})
}
