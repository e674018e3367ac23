package deals

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type mockDynamo struct {
	putInput    *dynamodb.PutItemInput
	putErr      error
	deleteInput *dynamodb.DeleteItemInput
	queryInput  *dynamodb.QueryInput
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = in
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.deleteInput = in
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = in
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func TestDynamoCreateGuardsDuplicateID(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "crm_deals")

	deal := &Deal{ID: IDForTreatmentPlan("plan-1"), ClientID: "client-1", Status: StatusWon, HMSTreatmentPlanID: "plan-1"}
	if err := repo.Create(context.Background(), deal); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if expr := mock.putInput.ConditionExpression; expr == nil || *expr != "attribute_not_exists(id)" {
		t.Fatalf("expected insert guard, got %v", expr)
	}
}

func TestDynamoCreateDuplicateIsConflict(t *testing.T) {
	mock := &mockDynamo{putErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "crm_deals")

	deal := &Deal{ID: IDForTreatmentPlan("plan-1"), HMSTreatmentPlanID: "plan-1"}
	if err := repo.Create(context.Background(), deal); !errors.Is(err, ErrDuplicatePlan) {
		t.Fatalf("expected ErrDuplicatePlan, got %v", err)
	}
}

func TestDynamoGetByTreatmentPlanIDUsesIndex(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "crm_deals")

	if _, err := repo.GetByTreatmentPlanID(context.Background(), "plan-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty index, got %v", err)
	}
	if mock.queryInput == nil || *mock.queryInput.IndexName != treatmentPlanIndex {
		t.Fatalf("expected query against %s", treatmentPlanIndex)
	}
}

func TestDynamoListWonByClientFilters(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "crm_deals")

	if _, err := repo.ListWonByClient(context.Background(), "client-1"); err != nil {
		t.Fatalf("ListWonByClient: %v", err)
	}
	if mock.queryInput == nil || *mock.queryInput.IndexName != clientIndex {
		t.Fatalf("expected query against %s", clientIndex)
	}
	if mock.queryInput.FilterExpression == nil || *mock.queryInput.FilterExpression != "#status = :won" {
		t.Fatalf("expected won filter, got %v", mock.queryInput.FilterExpression)
	}
}
