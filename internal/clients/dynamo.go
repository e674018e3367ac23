package clients

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

// patientLinkIndex is the GSI keyed on hms_patient_id, used to resolve the
// owning client during reconciliation.
const patientLinkIndex = "patient-link-index"

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores clients in the crm_clients table.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName string) *DynamoRepository {
	if client == nil {
		panic("clients: dynamodb client required")
	}
	if tableName == "" {
		panic("clients: table name required")
	}
	return &DynamoRepository{client: client, tableName: tableName}
}

// Create inserts a new client document.
func (r *DynamoRepository) Create(ctx context.Context, client *Client) error {
	if err := client.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	item, err := attributevalue.MarshalMap(client)
	if err != nil {
		return fmt.Errorf("clients: marshal client: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("clients: insert client: %w", err)
	}
	return nil
}

// GetByID fetches a client document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("clients: load client: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var client Client
	if err := attributevalue.UnmarshalMap(out.Item, &client); err != nil {
		return nil, fmt.Errorf("clients: unmarshal client: %w", err)
	}
	return &client, nil
}

// GetByPatientID queries the patient-link GSI.
func (r *DynamoRepository) GetByPatientID(ctx context.Context, patientID string) (*Client, error) {
	if patientID == "" {
		return nil, ErrNotFound
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(patientLinkIndex),
		KeyConditionExpression: aws.String("hms_patient_id = :patient"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":patient": &types.AttributeValueMemberS{Value: patientID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("clients: query patient link: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	var client Client
	if err := attributevalue.UnmarshalMap(out.Items[0], &client); err != nil {
		return nil, fmt.Errorf("clients: unmarshal client: %w", err)
	}
	return &client, nil
}

// LinkPatient writes the HMS back-reference behind a conditional update so a
// client can only ever be linked once.
func (r *DynamoRepository) LinkPatient(ctx context.Context, clientID, patientID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: clientID}},
		UpdateExpression:    aws.String("SET hms_patient_id = :patient, is_hms_patient = :linked, updated_at = :updated"),
		ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(hms_patient_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":patient": &types.AttributeValueMemberS{Value: patientID},
			":linked":  &types.AttributeValueMemberBOOL{Value: true},
			":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrAlreadyLinked
		}
		return fmt.Errorf("clients: link patient: %w", err)
	}
	return nil
}

// UpdateRevenue overwrites the derived revenue aggregate wholesale.
func (r *DynamoRepository) UpdateRevenue(ctx context.Context, clientID string, summary RevenueSummary) error {
	values := map[string]types.AttributeValue{
		":revenue": &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", summary.TotalRevenue)},
		":deals":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", summary.TotalDeals)},
		":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}
	update := "SET total_revenue = :revenue, total_deals = :deals, updated_at = :updated"
	if summary.LastDealDate != nil {
		update += ", last_deal_date = :last"
		values[":last"] = &types.AttributeValueMemberS{Value: summary.LastDealDate.UTC().Format(time.RFC3339Nano)}
	} else {
		update += " REMOVE last_deal_date"
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: clientID}},
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("clients: update revenue: %w", err)
	}
	return nil
}

// List scans the whole collection for the statistics pass.
func (r *DynamoRepository) List(ctx context.Context) ([]*Client, error) {
	var out []*Client
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("clients: scan clients: %w", err)
		}
		var batch []*Client
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("clients: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
