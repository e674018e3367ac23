package sources

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

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores sources in the crm_sources table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("sources: dynamodb client required")
	}
	if tableName == "" {
		panic("sources: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Create inserts a new source document.
func (r *DynamoRepository) Create(ctx context.Context, source *Source) error {
	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	item, err := attributevalue.MarshalMap(source)
	if err != nil {
		return fmt.Errorf("sources: marshal source: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("sources: insert source: %w", err)
	}
	return nil
}

// GetByID fetches a source document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Source, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("sources: load source: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var source Source
	if err := attributevalue.UnmarshalMap(out.Item, &source); err != nil {
		return nil, fmt.Errorf("sources: unmarshal source: %w", err)
	}
	return &source, nil
}

// UpdateCounters overwrites the derived counters wholesale.
func (r *DynamoRepository) UpdateCounters(ctx context.Context, id string, counters Counters) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:    aws.String("SET leads_count = :leads, conversion_count = :conversions, updated_at = :updated"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":leads":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", counters.LeadsCount)},
			":conversions": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", counters.ConversionCount)},
			":updated":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("sources: update counters: %w", err)
	}
	return nil
}

// List scans the whole collection.
func (r *DynamoRepository) List(ctx context.Context) ([]*Source, error) {
	var out []*Source
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("sources: scan sources: %w", err)
		}
		var batch []*Source
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("sources: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
