package core

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type MockDynamoDBClient struct {
	ScanFunc func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

func (m *MockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return m.ScanFunc(ctx, params, optFns...)
}

func TestDynamoDBRowFetcher_Fetch(t *testing.T) {
	mockClient := &MockDynamoDBClient{
		ScanFunc: func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			if *params.TableName != "invoices" {
				t.Errorf("TableName = %v, want invoices", *params.TableName)
			}
			if params.FilterExpression == nil {
				t.Error("FilterExpression is nil; params should produce a filter")
			}
			foundKey := false
			for _, v := range params.ExpressionAttributeNames {
				if v == "customer" {
					foundKey = true
				}
			}
			if !foundKey {
				t.Error("ExpressionAttributeNames should map to 'customer'")
			}

			return &dynamodb.ScanOutput{
				Items: []map[string]types.AttributeValue{
					{
						"invoice_no": &types.AttributeValueMemberS{Value: "INV-1"},
						"customer":   &types.AttributeValueMemberS{Value: "ACME"},
						"amount":     &types.AttributeValueMemberN{Value: "100"},
					},
				},
				Count: 1,
			}, nil
		},
	}

	fetcher := &DynamoDBRowFetcher{Client: mockClient}
	records, err := fetcher.Fetch("invoices", map[string]string{"customer": "ACME"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0]["invoice_no"] != "INV-1" {
		t.Errorf("invoice_no = %v, want INV-1", records[0]["invoice_no"])
	}
}

func TestDynamoDBRowFetcher_NoParams(t *testing.T) {
	mockClient := &MockDynamoDBClient{
		ScanFunc: func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			if params.FilterExpression != nil {
				t.Error("FilterExpression should be nil without params")
			}
			return &dynamodb.ScanOutput{}, nil
		},
	}

	fetcher := &DynamoDBRowFetcher{Client: mockClient}
	records, err := fetcher.Fetch("invoices", nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %d, want 0", len(records))
	}
}
