package clients

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type mockDynamo struct {
	putInput     *dynamodb.PutItemInput
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	queryInput   *dynamodb.QueryInput
	queryOutput  *dynamodb.QueryOutput
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = in
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, in)
	return &dynamodb.UpdateItemOutput{}, m.updateErr
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = in
	if m.queryOutput == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return m.queryOutput, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func TestDynamoLinkPatientGuardsDoubleLink(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "crm_clients")

	if err := repo.LinkPatient(context.Background(), "client-1", "pat-1"); err != nil {
		t.Fatalf("LinkPatient returned error: %v", err)
	}
	if len(mock.updateInputs) != 1 {
		t.Fatalf("expected 1 update, got %d", len(mock.updateInputs))
	}
	cond := *mock.updateInputs[0].ConditionExpression
	if !strings.Contains(cond, "attribute_not_exists(hms_patient_id)") {
		t.Fatalf("link must be conditional on an open back-reference, got %q", cond)
	}
}

func TestDynamoLinkPatientLostRace(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	repo := NewDynamoRepository(mock, "crm_clients")

	if err := repo.LinkPatient(context.Background(), "client-1", "pat-1"); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
}

func TestDynamoGetByPatientIDUsesIndex(t *testing.T) {
	item, err := attributevalue.MarshalMap(&Client{ID: "client-2", Name: "Sam", HMSPatientID: "pat-7", IsHMSPatient: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock := &mockDynamo{queryOutput: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}}
	repo := NewDynamoRepository(mock, "crm_clients")

	client, err := repo.GetByPatientID(context.Background(), "pat-7")
	if err != nil {
		t.Fatalf("GetByPatientID: %v", err)
	}
	if client.ID != "client-2" {
		t.Fatalf("unexpected client: %+v", client)
	}
	if mock.queryInput == nil || *mock.queryInput.IndexName != patientLinkIndex {
		t.Fatalf("expected query against %s", patientLinkIndex)
	}
}

func TestDynamoGetByPatientIDEmptyIDShortCircuits(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "crm_clients")

	if _, err := repo.GetByPatientID(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mock.queryInput != nil {
		t.Fatal("empty patient id must not hit the index")
	}
}

func TestDynamoUpdateRevenueRemovesLastDealDateWhenNil(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewDynamoRepository(mock, "crm_clients")

	if err := repo.UpdateRevenue(context.Background(), "client-1", RevenueSummary{}); err != nil {
		t.Fatalf("UpdateRevenue: %v", err)
	}
	expr := *mock.updateInputs[0].UpdateExpression
	if !strings.Contains(expr, "REMOVE last_deal_date") {
		t.Fatalf("zero-deal recompute must clear last_deal_date, got %q", expr)
	}
}
