package treatmentplans

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/brightsmile-dental/clinic-platform/internal/storage/ddb"
)

// paymentStatusIndex is the GSI keyed on payment_status, used by the batch
// re-sync job.
const paymentStatusIndex = "payment-status-index"

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores treatment plans in the treatment_plans table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("treatmentplans: dynamodb client required")
	}
	if tableName == "" {
		panic("treatmentplans: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Create inserts a new treatment plan document.
func (r *DynamoRepository) Create(ctx context.Context, plan *TreatmentPlan) error {
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	if plan.PaymentStatus == "" {
		plan.PaymentStatus = PaymentUnpaid
	}

	item, err := attributevalue.MarshalMap(plan)
	if err != nil {
		return fmt.Errorf("treatmentplans: marshal plan: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("treatmentplans: insert plan: %w", err)
	}
	return nil
}

// GetByID fetches a treatment plan document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*TreatmentPlan, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("treatmentplans: load plan: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var plan TreatmentPlan
	if err := attributevalue.UnmarshalMap(out.Item, &plan); err != nil {
		return nil, fmt.Errorf("treatmentplans: unmarshal plan: %w", err)
	}
	return &plan, nil
}

// Update replaces the treatment plan document.
func (r *DynamoRepository) Update(ctx context.Context, plan *TreatmentPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(plan)
	if err != nil {
		return fmt.Errorf("treatmentplans: marshal plan: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("treatmentplans: update plan: %w", err)
	}
	return nil
}

// ListByPaymentStatus queries the payment-status GSI.
func (r *DynamoRepository) ListByPaymentStatus(ctx context.Context, status PaymentStatus) ([]*TreatmentPlan, error) {
	var out []*TreatmentPlan
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(paymentStatusIndex),
			KeyConditionExpression: aws.String("payment_status = :status"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: string(status)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("treatmentplans: query by payment status: %w", err)
		}
		var batch []*TreatmentPlan
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("treatmentplans: unmarshal query page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// List scans the whole collection for the statistics pass.
func (r *DynamoRepository) List(ctx context.Context) ([]*TreatmentPlan, error) {
	var out []*TreatmentPlan
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("treatmentplans: scan plans: %w", err)
		}
		var batch []*TreatmentPlan
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("treatmentplans: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
