package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConditionFailed reports that a conditional write was rejected by the
// datastore. Callers branch on it to tell a failed precondition apart from a
// generic datastore failure.
var ErrConditionFailed = errors.New("conditional check failed")

// DynamoDBAPI is the subset of the DynamoDB client the gateway uses.
type DynamoDBAPI interface {
	Query(ctx context.Context, input *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, input *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type DynamoService struct {
	Client DynamoDBAPI
	Logger *slog.Logger
}

// InitializeDynamoDBClient initializes the DynamoDB client. A non-empty
// endpointURL points the client at a local or test datastore.
func InitializeDynamoDBClient(ctx context.Context, region, endpointURL string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	}), nil
}

// QueryPage runs a single page of a query. startKey is the pagination cursor
// returned by the previous page; nil starts from the beginning. The returned
// lastKey is nil once the result set is exhausted.
func (ds *DynamoService) QueryPage(
	ctx context.Context,
	input *dynamodb.QueryInput,
	startKey map[string]types.AttributeValue,
) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	input.ExclusiveStartKey = startKey
	output, err := ds.Client.Query(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query table '%s': %w", aws.ToString(input.TableName), err)
	}
	return output.Items, output.LastEvaluatedKey, nil
}

// QueryAllPages follows the pagination cursor until the result set is
// exhausted, so callers never see cursor mechanics.
func (ds *DynamoService) QueryAllPages(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		page, lastKey, err := ds.QueryPage(ctx, input, startKey)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if lastKey == nil {
			return items, nil
		}
		startKey = lastKey
	}
}

// GetItem retrieves an item. A nil map with a nil error means the item is
// absent.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}
	return output.Item, nil
}

// PutItem writes an item, optionally guarded by a condition expression. A
// rejected condition surfaces as ErrConditionFailed.
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}, conditionExpression string) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      marshaledItem,
	}
	if conditionExpression != "" {
		input.ConditionExpression = &conditionExpression
	}

	if _, err := ds.Client.PutItem(ctx, input); err != nil {
		return classifyWriteError("put", tableName, err)
	}
	ds.Logger.Debug("item written", "table", tableName)
	return nil
}

// UpdateItem applies an update expression to an item, optionally guarded by a
// condition expression. Named fields are replaced outright, not merged.
func (ds *DynamoService) UpdateItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpression string,
	expressionAttributeNames map[string]string,
	expressionAttributeValues map[string]types.AttributeValue,
	conditionExpression string,
) error {
	if len(key) == 0 {
		return errors.New("update failed: key cannot be empty")
	}
	if updateExpression == "" {
		return errors.New("update failed: updateExpression cannot be empty")
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 &tableName,
		Key:                       key,
		UpdateExpression:          &updateExpression,
		ExpressionAttributeValues: expressionAttributeValues,
	}
	if len(expressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = expressionAttributeNames
	}
	if conditionExpression != "" {
		input.ConditionExpression = &conditionExpression
	}

	if _, err := ds.Client.UpdateItem(ctx, input); err != nil {
		return classifyWriteError("update", tableName, err)
	}
	ds.Logger.Debug("item updated", "table", tableName)
	return nil
}

// DeleteItem removes an item, guarded by a condition expression. A rejected
// condition surfaces as ErrConditionFailed.
func (ds *DynamoService) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, conditionExpression string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: &tableName,
		Key:       key,
	}
	if conditionExpression != "" {
		input.ConditionExpression = &conditionExpression
	}

	if _, err := ds.Client.DeleteItem(ctx, input); err != nil {
		return classifyWriteError("delete", tableName, err)
	}
	ds.Logger.Debug("item deleted", "table", tableName)
	return nil
}

func classifyWriteError(operation, tableName string, err error) error {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return fmt.Errorf("failed to %s item in table '%s': %w", operation, tableName, ErrConditionFailed)
	}
	return fmt.Errorf("failed to %s item in table '%s': %w", operation, tableName, err)
}
