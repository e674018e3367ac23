package doctors

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoRepository reads doctors from the doctors table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("doctors: dynamodb client required")
	}
	if tableName == "" {
		panic("doctors: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// GetByID fetches a doctor document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("doctors: load doctor: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var doctor Doctor
	if err := attributevalue.UnmarshalMap(out.Item, &doctor); err != nil {
		return nil, fmt.Errorf("doctors: unmarshal doctor: %w", err)
	}
	return &doctor, nil
}
