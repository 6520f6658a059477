package core

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient is the subset of the DynamoDB API the fetcher needs.
type DynamoDBClient interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBRowFetcher reads invoice records from a DynamoDB table;
// sourceName is the table name.
type DynamoDBRowFetcher struct {
	Client DynamoDBClient
}

func NewDynamoDBRowFetcher(cfg aws.Config) *DynamoDBRowFetcher {
	return &DynamoDBRowFetcher{
		Client: dynamodb.NewFromConfig(cfg),
	}
}

// Fetch scans the full table, applying params as an equality filter
// expression. Filter values are sent as strings.
func (f *DynamoDBRowFetcher) Fetch(sourceName string, params map[string]string) ([]map[string]any, error) {
	var filterExpression *string
	var exprNames map[string]string
	var exprValues map[string]types.AttributeValue

	if len(params) > 0 {
		expr := ""
		exprNames = make(map[string]string)
		exprValues = make(map[string]types.AttributeValue)
		idx := 0
		for k, v := range params {
			if idx > 0 {
				expr += " AND "
			}
			// Placeholder names sidestep reserved-word conflicts.
			kName := fmt.Sprintf("#k%d", idx)
			vName := fmt.Sprintf(":v%d", idx)

			expr += fmt.Sprintf("%s = %s", kName, vName)
			exprNames[kName] = k
			exprValues[vName] = &types.AttributeValueMemberS{Value: v}
			idx++
		}
		filterExpression = aws.String(expr)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(sourceName),
		FilterExpression:          filterExpression,
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	}

	paginator := dynamodb.NewScanPaginator(f.Client, input)
	var records []map[string]any

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %s: %w", sourceName, err)
		}

		var pageRecords []map[string]any
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageRecords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		records = append(records, pageRecords...)
	}

	return records, nil
}
