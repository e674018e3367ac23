package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type mockDynamo struct {
	putInputs   []*dynamodb.PutItemInput
	putErr      error
	getOutput   *dynamodb.GetItemOutput
	getErr      error
	deleteInput *dynamodb.DeleteItemInput
	deleteErr   error
	scanPages   []*dynamodb.ScanOutput
	scanCalls   int
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInputs = append(m.putInputs, in)
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, m.getErr
	}
	return m.getOutput, m.getErr
}

func (m *mockDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.deleteInput = in
	return &dynamodb.DeleteItemOutput{}, m.deleteErr
}

func (m *mockDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanCalls >= len(m.scanPages) {
		return &dynamodb.ScanOutput{}, nil
	}
	page := m.scanPages[m.scanCalls]
	m.scanCalls++
	return page, nil
}

func TestDynamoReserveSlotConditionAdmitsSelf(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "appointments", "appointment_slots")

	if err := repo.ReserveSlot(context.Background(), "doc-1", "2025-09-10", "10:00", "appt-1"); err != nil {
		t.Fatalf("ReserveSlot: %v", err)
	}
	if len(mock.putInputs) != 1 {
		t.Fatalf("expected 1 put, got %d", len(mock.putInputs))
	}
	put := mock.putInputs[0]
	if *put.TableName != "appointment_slots" {
		t.Fatalf("expected slot table, got %s", *put.TableName)
	}
	if *put.ConditionExpression != "attribute_not_exists(slot_key) OR appointment_id = :self" {
		t.Fatalf("unexpected condition %q", *put.ConditionExpression)
	}
	key := put.Item["slot_key"].(*types.AttributeValueMemberS).Value
	if key != "doc-1#2025-09-10#10:00" {
		t.Fatalf("unexpected slot key %q", key)
	}
}

func TestDynamoReserveSlotConflict(t *testing.T) {
	mock := &mockDynamo{putErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "appointments", "appointment_slots")

	err := repo.ReserveSlot(context.Background(), "doc-1", "2025-09-10", "10:00", "appt-2")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestDynamoReleaseSlotGuardsHolder(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "appointments", "appointment_slots")

	if err := repo.ReleaseSlot(context.Background(), "doc-1", "2025-09-10", "10:00", "appt-1"); err != nil {
		t.Fatalf("ReleaseSlot: %v", err)
	}
	if *mock.deleteInput.ConditionExpression != "appointment_id = :self" {
		t.Fatalf("unexpected condition %q", *mock.deleteInput.ConditionExpression)
	}
}

func TestDynamoReleaseSlotByNonHolderIsNoop(t *testing.T) {
	mock := &mockDynamo{deleteErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "appointments", "appointment_slots")

	if err := repo.ReleaseSlot(context.Background(), "doc-1", "2025-09-10", "10:00", "appt-9"); err != nil {
		t.Fatalf("expected nil for non-holder release, got %v", err)
	}
}

func TestDynamoUpdateMissingIsNotFound(t *testing.T) {
	mock := &mockDynamo{putErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "appointments", "appointment_slots")

	err := repo.Update(context.Background(), &Appointment{ID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
