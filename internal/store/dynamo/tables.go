package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// GSI names
const (
	GSIProductsCode    = "code-index"
	GSIBrokersEmail    = "email-index"
	GSIPoliciesNumber  = "policy_number-index"
	GSIPoliciesOfferID = "offer_id-index"
)

const tableReadyTimeout = 2 * time.Minute

type tableNames struct {
	Products    string
	Clients     string
	Brokers     string
	Offers      string
	Policies    string
	Commissions string
	Activity    string
	Counters    string // sequences and document ids
	Uniques     string // guard items for unique fields
}

func newTableNames(prefix string) tableNames {
	return tableNames{
		Products:    prefix + "products",
		Clients:     prefix + "clients",
		Brokers:     prefix + "brokers",
		Offers:      prefix + "offers",
		Policies:    prefix + "policies",
		Commissions: prefix + "commissions",
		Activity:    prefix + "activity_log",
		Counters:    prefix + "counters",
		Uniques:     prefix + "uniques",
	}
}

type keyAttr struct {
	name string
	typ  types.ScalarAttributeType
}

type tableSpec struct {
	name  string
	hash  keyAttr
	rng   *keyAttr
	index []indexSpec
}

type indexSpec struct {
	name string
	hash keyAttr
}

var (
	idKey   = keyAttr{"id", types.ScalarAttributeTypeN}
	nameKey = keyAttr{"counter_name", types.ScalarAttributeTypeS}
)

func tableSpecs(t tableNames) []tableSpec {
	return []tableSpec{
		{name: t.Products, hash: idKey, index: []indexSpec{{GSIProductsCode, keyAttr{"code", types.ScalarAttributeTypeS}}}},
		{name: t.Clients, hash: idKey},
		{name: t.Brokers, hash: idKey, index: []indexSpec{{GSIBrokersEmail, keyAttr{"email", types.ScalarAttributeTypeS}}}},
		{name: t.Offers, hash: idKey},
		{name: t.Policies, hash: idKey, index: []indexSpec{
			{GSIPoliciesNumber, keyAttr{"policy_number", types.ScalarAttributeTypeS}},
			{GSIPoliciesOfferID, keyAttr{"offer_id", types.ScalarAttributeTypeN}},
		}},
		{name: t.Commissions, hash: idKey},
		{name: t.Activity, hash: keyAttr{"entity_key", types.ScalarAttributeTypeS}, rng: &idKey},
		{name: t.Counters, hash: nameKey},
		{name: t.Uniques, hash: keyAttr{"key", types.ScalarAttributeTypeS}},
	}
}

// EnsureTables creates all required tables if they don't exist.
func EnsureTables(ctx context.Context, client *dynamodb.Client, t tableNames, log *slog.Logger) error {
	for _, spec := range tableSpecs(t) {
		exists, err := tableExists(ctx, client, spec.name)
		if err != nil {
			return fmt.Errorf("check table %s: %w", spec.name, err)
		}
		if exists {
			log.Info("table exists", "table", spec.name)
			continue
		}

		log.Info("creating table", "table", spec.name)
		if _, err := client.CreateTable(ctx, createTableInput(spec)); err != nil {
			return fmt.Errorf("create table %s: %w", spec.name, err)
		}
		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.name)}, tableReadyTimeout); err != nil {
			return fmt.Errorf("wait for table %s: %w", spec.name, err)
		}
		log.Info("table created", "table", spec.name)
	}
	return nil
}

func tableExists(ctx context.Context, client *dynamodb.Client, name string) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func createTableInput(spec tableSpec) *dynamodb.CreateTableInput {
	attrs := map[string]types.ScalarAttributeType{spec.hash.name: spec.hash.typ}
	order := []string{spec.hash.name}
	add := func(k keyAttr) {
		if _, ok := attrs[k.name]; !ok {
			order = append(order, k.name)
		}
		attrs[k.name] = k.typ
	}

	in := &dynamodb.CreateTableInput{
		TableName: aws.String(spec.name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(spec.hash.name), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
	if spec.rng != nil {
		add(*spec.rng)
		in.KeySchema = append(in.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(spec.rng.name), KeyType: types.KeyTypeRange,
		})
	}
	for _, idx := range spec.index {
		add(idx.hash)
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(idx.name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(idx.hash.name), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	for _, name := range order {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(name), AttributeType: attrs[name],
		})
	}
	return in
}
