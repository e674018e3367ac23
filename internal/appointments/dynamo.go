package appointments

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
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores appointments plus a companion slot table whose
// partition key is doctor_id#date#time. The slot item is the uniqueness
// constraint: insertion is conditional on the key not existing, so two
// bookings for the same slot cannot both succeed regardless of interleaving.
type DynamoRepository struct {
	client     dynamoAPI
	tableName  string
	slotsTable string
}

var _ Repository = (*DynamoRepository)(nil)

// NewDynamoRepository builds a repository backed by the provided DynamoDB
// client.
func NewDynamoRepository(client dynamoAPI, tableName, slotsTable string) *DynamoRepository {
	if client == nil {
		panic("appointments: dynamodb client required")
	}
	if tableName == "" || slotsTable == "" {
		panic("appointments: table names required")
	}
	return &DynamoRepository{client: client, tableName: tableName, slotsTable: slotsTable}
}

// Create inserts a new appointment document.
func (r *DynamoRepository) Create(ctx context.Context, appt *Appointment) error {
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	if appt.Status == "" {
		appt.Status = StatusUnconfirmed
	}

	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		return fmt.Errorf("appointments: marshal appointment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("appointments: insert appointment: %w", err)
	}
	return nil
}

// GetByID fetches an appointment document.
func (r *DynamoRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: load appointment: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var appt Appointment
	if err := attributevalue.UnmarshalMap(out.Item, &appt); err != nil {
		return nil, fmt.Errorf("appointments: unmarshal appointment: %w", err)
	}
	return &appt, nil
}

// Update replaces the appointment document.
func (r *DynamoRepository) Update(ctx context.Context, appt *Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		return fmt.Errorf("appointments: marshal appointment: %w", err)
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
		return fmt.Errorf("appointments: update appointment: %w", err)
	}
	return nil
}

// ReserveSlot writes the slot item conditionally. The condition admits the
// appointment re-claiming its own slot so status-only updates stay
// idempotent.
func (r *DynamoRepository) ReserveSlot(ctx context.Context, doctorID, date, clockTime, apptID string) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.slotsTable),
		Item: map[string]types.AttributeValue{
			"slot_key":       &types.AttributeValueMemberS{Value: SlotKey(doctorID, date, clockTime)},
			"appointment_id": &types.AttributeValueMemberS{Value: apptID},
			"reserved_at":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(slot_key) OR appointment_id = :self"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":self": &types.AttributeValueMemberS{Value: apptID},
		},
	})
	if err != nil {
		if ddb.IsConditionalCheckFailed(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: reserve slot: %w", err)
	}
	return nil
}

// ReleaseSlot deletes the slot item only while this appointment holds it.
func (r *DynamoRepository) ReleaseSlot(ctx context.Context, doctorID, date, clockTime, apptID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.slotsTable),
		Key: map[string]types.AttributeValue{
			"slot_key": &types.AttributeValueMemberS{Value: SlotKey(doctorID, date, clockTime)},
		},
		ConditionExpression: aws.String("appointment_id = :self"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":self": &types.AttributeValueMemberS{Value: apptID},
		},
	})
	if err != nil {
		// Another appointment holding the slot, or no slot at all, is
		// not this caller's problem.
		if ddb.IsConditionalCheckFailed(err) {
			return nil
		}
		return fmt.Errorf("appointments: release slot: %w", err)
	}
	return nil
}

// List scans the whole collection for the statistics pass.
func (r *DynamoRepository) List(ctx context.Context) ([]*Appointment, error) {
	var out []*Appointment
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("appointments: scan appointments: %w", err)
		}
		var batch []*Appointment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("appointments: unmarshal scan page: %w", err)
		}
		out = append(out, batch...)
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
