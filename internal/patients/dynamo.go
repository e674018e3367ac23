package patients

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores patients in the patients table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("patients: dynamodb client required")
	}
	if tableName == "" {
		panic("patients: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Create inserts a new patient document.
func (r *DynamoRepository) Create(ctx context.Context, patient *Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	item, err := attributevalue.MarshalMap(patient)
	if err != nil {
		return fmt.Errorf("patients: marshal patient: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("patients: insert patient: %w", err)
	}
	return nil
}

// GetByID fetches a patient document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("patients: load patient: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var patient Patient
	if err := attributevalue.UnmarshalMap(out.Item, &patient); err != nil {
		return nil, fmt.Errorf("patients: unmarshal patient: %w", err)
	}
	return &patient, nil
}

// List scans the whole collection.
func (r *DynamoRepository) List(ctx context.Context) ([]*Patient, error) {
	var out []*Patient
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("patients: scan patients: %w", err)
		}
		var batch []*Patient
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("patients: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
