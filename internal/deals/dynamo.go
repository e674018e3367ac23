package deals

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

const (
	// treatmentPlanIndex is the GSI keyed on hms_treatment_plan_id.
	treatmentPlanIndex = "treatment-plan-index"
	// clientIndex is the GSI keyed on client_id, used by the revenue
	// recompute.
	clientIndex = "client-index"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores deals in the crm_deals table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("deals: dynamodb client required")
	}
	if tableName == "" {
		panic("deals: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Create inserts a new deal. Plan-derived deals use IDForTreatmentPlan, so
// the insert guard also enforces at most one deal per plan.
func (r *DynamoRepository) Create(ctx context.Context, deal *Deal) error {
	now := time.Now().UTC()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.UpdatedAt = now

	item, err := attributevalue.MarshalMap(deal)
	if err != nil {
		return fmt.Errorf("deals: marshal deal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrDuplicatePlan
		}
		return fmt.Errorf("deals: insert deal: %w", err)
	}
	return nil
}

// GetByID fetches a deal document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Deal, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("deals: load deal: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var deal Deal
	if err := attributevalue.UnmarshalMap(out.Item, &deal); err != nil {
		return nil, fmt.Errorf("deals: unmarshal deal: %w", err)
	}
	return &deal, nil
}

// GetByTreatmentPlanID queries the idempotency-key GSI.
func (r *DynamoRepository) GetByTreatmentPlanID(ctx context.Context, planID string) (*Deal, error) {
	if planID == "" {
		return nil, ErrNotFound
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(treatmentPlanIndex),
		KeyConditionExpression: aws.String("hms_treatment_plan_id = :plan"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":plan": &types.AttributeValueMemberS{Value: planID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("deals: query plan index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	var deal Deal
	if err := attributevalue.UnmarshalMap(out.Items[0], &deal); err != nil {
		return nil, fmt.Errorf("deals: unmarshal deal: %w", err)
	}
	return &deal, nil
}

// Update replaces the deal document, keeping created_at.
func (r *DynamoRepository) Update(ctx context.Context, deal *Deal) error {
	deal.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(deal)
	if err != nil {
		return fmt.Errorf("deals: marshal deal: %w", err)
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
		return fmt.Errorf("deals: update deal: %w", err)
	}
	return nil
}

// Delete removes a deal document.
func (r *DynamoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deals: delete deal: %w", err)
	}
	return nil
}

// ListWonByClient queries the client GSI and filters to won deals.
func (r *DynamoRepository) ListWonByClient(ctx context.Context, clientID string) ([]*Deal, error) {
	var out []*Deal
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(clientIndex),
			KeyConditionExpression: aws.String("client_id = :client"),
			FilterExpression:       aws.String("#status = :won"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":client": &types.AttributeValueMemberS{Value: clientID},
				":won":    &types.AttributeValueMemberS{Value: string(StatusWon)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("deals: query won deals: %w", err)
		}
		var batch []*Deal
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("deals: unmarshal query page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// List scans the whole collection for the statistics pass.
func (r *DynamoRepository) List(ctx context.Context) ([]*Deal, error) {
	var out []*Deal
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("deals: scan deals: %w", err)
		}
		var batch []*Deal
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("deals: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
