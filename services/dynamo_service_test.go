package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDynamoClient struct {
	queryFn  func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	getFn    func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putFn    func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateFn func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	deleteFn func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)

	queryInputs  []*dynamodb.QueryInput
	putInputs    []*dynamodb.PutItemInput
	updateInputs []*dynamodb.UpdateItemInput
	deleteInputs []*dynamodb.DeleteItemInput
}

func (m *mockDynamoClient) Query(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInputs = append(m.queryInputs, input)
	if m.queryFn != nil {
		return m.queryFn(input)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDynamoClient) GetItem(_ context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getFn != nil {
		return m.getFn(input)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoClient) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInputs = append(m.putInputs, input)
	if m.putFn != nil {
		return m.putFn(input)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoClient) UpdateItem(_ context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, input)
	if m.updateFn != nil {
		return m.updateFn(input)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamoClient) DeleteItem(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.deleteInputs = append(m.deleteInputs, input)
	if m.deleteFn != nil {
		return m.deleteFn(input)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func newTestDynamo(client *mockDynamoClient) *DynamoService {
	return &DynamoService{Client: client, Logger: testLogger()}
}

func TestQueryPagePassesCursor(t *testing.T) {
	startKey := map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: "user1"},
	}
	client := &mockDynamoClient{
		queryFn: func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, startKey, input.ExclusiveStartKey)
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{
					{"tag_name": &types.AttributeValueMemberS{Value: "wiptag"}},
				},
			}, nil
		},
	}

	items, lastKey, err := newTestDynamo(client).QueryPage(context.Background(),
		&dynamodb.QueryInput{TableName: aws.String("faketags")}, startKey)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Nil(t, lastKey)
}

func TestQueryAllPagesFollowsCursor(t *testing.T) {
	pageKey := map[string]types.AttributeValue{
		"thread_id": &types.AttributeValueMemberN{Value: "1"},
	}
	calls := 0
	client := &mockDynamoClient{
		queryFn: func(input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			calls++
			if calls == 1 {
				assert.Nil(t, input.ExclusiveStartKey)
				return &dynamodb.QueryOutput{
					Items: []map[string]types.AttributeValue{
						{"thread_id": &types.AttributeValueMemberN{Value: "1"}},
					},
					LastEvaluatedKey: pageKey,
				}, nil
			}
			assert.Equal(t, pageKey, input.ExclusiveStartKey)
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{
					{"thread_id": &types.AttributeValueMemberN{Value: "2"}},
				},
			}, nil
		},
	}

	items, err := newTestDynamo(client).QueryAllPages(context.Background(),
		&dynamodb.QueryInput{TableName: aws.String("fakethreads")})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, calls)
}

func TestGetItemAbsent(t *testing.T) {
	client := &mockDynamoClient{}

	item, err := newTestDynamo(client).GetItem(context.Background(), "faketags", map[string]types.AttributeValue{
		"tag_name": &types.AttributeValueMemberS{Value: "missing"},
	})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestPutItemConditionFailure(t *testing.T) {
	client := &mockDynamoClient{
		putFn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}

	err := newTestDynamo(client).PutItem(context.Background(), "faketags",
		map[string]string{"tag_name": "wiptag"}, "attribute_not_exists(tag_name)")
	assert.ErrorIs(t, err, ErrConditionFailed)
}

func TestPutItemGenericFailure(t *testing.T) {
	client := &mockDynamoClient{
		putFn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("datastore exploded")
		},
	}

	err := newTestDynamo(client).PutItem(context.Background(), "faketags",
		map[string]string{"tag_name": "wiptag"}, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConditionFailed)
}

func TestDeleteItemConditionFailure(t *testing.T) {
	client := &mockDynamoClient{
		deleteFn: func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}

	err := newTestDynamo(client).DeleteItem(context.Background(), "faketags",
		map[string]types.AttributeValue{
			"tag_name": &types.AttributeValueMemberS{Value: "wiptag"},
		}, "attribute_exists(tag_name)")
	assert.ErrorIs(t, err, ErrConditionFailed)
}

func TestUpdateItemRequiresKeyAndExpression(t *testing.T) {
	ds := newTestDynamo(&mockDynamoClient{})

	err := ds.UpdateItem(context.Background(), "faketags", nil, "SET tag_color = :color", nil, nil, "")
	assert.Error(t, err)

	err = ds.UpdateItem(context.Background(), "faketags", map[string]types.AttributeValue{
		"tag_name": &types.AttributeValueMemberS{Value: "wiptag"},
	}, "", nil, nil, "")
	assert.Error(t, err)
}
