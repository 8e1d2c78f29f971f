package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// Issuer commits offer conversions with one TransactWriteItems call. Ids are
// drawn before the transaction, so a failed conversion leaves a gap.
type Issuer struct{ base }

// positions of the items in the issuance transaction
const (
	txOffer = iota
	txPolicy
	txOfferGuard
	txNumberGuard
	txCommission
)

func (r *Issuer) IssuePolicy(ctx context.Context, in core.Issuance) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// 1) Allocate ids
	policyID, err := r.nextID(ctx, r.t.Policies)
	if err != nil {
		return err
	}
	commissionID, err := r.nextID(ctx, r.t.Commissions)
	if err != nil {
		return err
	}

	// 2) Build the claim on the offer
	update, cond := offerTransition(core.OfferStatusPending, core.OfferStatusAccepted, in.AcceptedAt)
	claim, err := updateInput(r.t.Offers, in.OfferID, update, cond)
	if err != nil {
		return err
	}

	// 3) Build the policy and commission writes
	pitem := policyItemFromCore(*in.Policy)
	pitem.ID = policyID
	putPolicy, err := putIf(r.t.Policies, pitem, notExists())
	if err != nil {
		return err
	}
	citem := commissionItemFromCore(*in.Commission)
	citem.ID = commissionID
	citem.PolicyID = policyID
	putCommission, err := putIf(r.t.Commissions, citem, notExists())
	if err != nil {
		return err
	}

	// 4) Commit all or nothing
	tx := make([]types.TransactWriteItem, txCommission+1)
	tx[txOffer] = types.TransactWriteItem{Update: &types.Update{
		TableName:                           claim.TableName,
		Key:                                 claim.Key,
		UpdateExpression:                    claim.UpdateExpression,
		ConditionExpression:                 claim.ConditionExpression,
		ExpressionAttributeNames:            claim.ExpressionAttributeNames,
		ExpressionAttributeValues:           claim.ExpressionAttributeValues,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}}
	tx[txPolicy] = putPolicy
	tx[txOfferGuard] = reserveUnique(r.t.Uniques, uniquePolicyOfferID, fmt.Sprint(in.OfferID), policyID)
	tx[txNumberGuard] = reserveUnique(r.t.Uniques, uniquePolicyNumber, pitem.PolicyNumber, policyID)
	tx[txCommission] = putCommission

	if _, err := r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx}); err != nil {
		return issuanceError(err, in.OfferID)
	}

	in.Policy.ID = policyID
	in.Commission.ID = commissionID
	in.Commission.PolicyID = policyID
	return nil
}

// issuanceError maps a canceled issuance transaction to the core's errors.
func issuanceError(err error, offerID int64) error {
	if old, ok := canceledAt(err, txOffer); ok {
		if len(old) == 0 {
			return core.ErrOfferNotFound
		}
		return fmt.Errorf("%w: offer %d is no longer %s", core.ErrInvalidState, offerID, core.OfferStatusPending)
	}
	for _, i := range []int{txPolicy, txOfferGuard, txNumberGuard} {
		if _, ok := canceledAt(err, i); ok {
			return core.ErrPolicyExists
		}
	}
	return fmt.Errorf("issuance.transact: %w", err)
}
