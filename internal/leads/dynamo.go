package leads

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

// DynamoRepository stores leads in the crm_leads table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("leads: dynamodb client required")
	}
	if tableName == "" {
		panic("leads: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Create inserts a new lead document.
func (r *DynamoRepository) Create(ctx context.Context, lead *Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = StatusNew
	}

	item, err := attributevalue.MarshalMap(lead)
	if err != nil {
		return fmt.Errorf("leads: marshal lead: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("leads: insert lead: %w", err)
	}
	return nil
}

// GetByID fetches a lead document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("leads: load lead: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var lead Lead
	if err := attributevalue.UnmarshalMap(out.Item, &lead); err != nil {
		return nil, fmt.Errorf("leads: unmarshal lead: %w", err)
	}
	return &lead, nil
}

// Update overwrites mutable fields. The conversion back-reference is
// excluded, and the condition pins the stored status away from converted,
// so a stale edit racing MarkConverted loses on the write, not on a
// read-then-check gap.
func (r *DynamoRepository) Update(ctx context.Context, lead *Lead) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: lead.ID}},
		UpdateExpression: aws.String(
			"SET #name = :name, phone = :phone, email = :email, source_id = :source, notes = :notes, #status = :status, updated_at = :updated"),
		ConditionExpression: aws.String("attribute_exists(id) AND #status <> :converted"),
		ExpressionAttributeNames: map[string]string{
			"#name":   "name",
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":      &types.AttributeValueMemberS{Value: lead.Name},
			":phone":     &types.AttributeValueMemberS{Value: lead.Phone},
			":email":     &types.AttributeValueMemberS{Value: lead.Email},
			":source":    &types.AttributeValueMemberS{Value: lead.SourceID},
			":notes":     &types.AttributeValueMemberS{Value: lead.Notes},
			":status":    &types.AttributeValueMemberS{Value: string(lead.Status)},
			":converted": &types.AttributeValueMemberS{Value: string(StatusConverted)},
			":updated":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			if _, gerr := r.GetByID(ctx, lead.ID); gerr != nil {
				return gerr
			}
			return ErrConverted
		}
		return fmt.Errorf("leads: update lead: %w", err)
	}
	return nil
}

// MarkConverted is the atomic conversion guard: a single conditional update
// that only succeeds while converted_to_client_id is still unset and the
// status is in the convertible set. Concurrent converters race on the
// condition, not on a read-then-write gap.
func (r *DynamoRepository) MarkConverted(ctx context.Context, leadID, clientID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: leadID}},
		UpdateExpression: aws.String("SET #status = :converted, converted_to_client_id = :client, updated_at = :updated"),
		ConditionExpression: aws.String(
			"attribute_exists(id) AND attribute_not_exists(converted_to_client_id) AND #status IN (:new, :in_progress, :contacted, :qualified)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":converted":   &types.AttributeValueMemberS{Value: string(StatusConverted)},
			":client":      &types.AttributeValueMemberS{Value: clientID},
			":updated":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":new":         &types.AttributeValueMemberS{Value: string(StatusNew)},
			":in_progress": &types.AttributeValueMemberS{Value: string(StatusInProgress)},
			":contacted":   &types.AttributeValueMemberS{Value: string(StatusContacted)},
			":qualified":   &types.AttributeValueMemberS{Value: string(StatusQualified)},
		},
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrNotConvertible
		}
		return fmt.Errorf("leads: mark converted: %w", err)
	}
	return nil
}

// List scans the whole collection. Acceptable while entity counts stay
// moderate; the statistics pass is the only consumer.
func (r *DynamoRepository) List(ctx context.Context) ([]*Lead, error) {
	var out []*Lead
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("leads: scan leads: %w", err)
		}
		var batch []*Lead
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("leads: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
