package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"notification_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TagService implements CRUD over user-scoped tags.
type TagService struct {
	Dynamo *DynamoService
	Logger *slog.Logger
}

// CreateNewTag creates a tag, rejecting duplicates through an existence
// precondition. The color defaults when unspecified.
func (ts *TagService) CreateNewTag(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	tagName, tagColor, validationErr := tagFromPayload(event, ts.Logger)
	if validationErr != nil {
		return *validationErr
	}
	if tagColor == "" {
		tagColor = models.DefaultTagColor
	}

	tag := models.Tag{UserID: userID, TagName: tagName, TagColor: tagColor}
	err := ts.Dynamo.PutItem(ctx, event.TagsTable, tag, "attribute_not_exists(tag_name)")
	if errors.Is(err, ErrConditionFailed) {
		errMsg := fmt.Sprintf("Tag %s already exists", tagName)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(409, errMsg)
	}
	if err != nil {
		errMsg := "Error querying the datastore"
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.FormatResponse(201, map[string]interface{}{"data": tag.Resource()})
}

// FindTag fetches a single tag by name.
func (ts *TagService) FindTag(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	item, err := ts.Dynamo.GetItem(ctx, event.TagsTable, tagKey(userID, event.TagName))
	if err != nil {
		errMsg := fmt.Sprintf("Error getting tag %s from the datastore", event.TagName)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}
	if len(item) == 0 {
		errMsg := fmt.Sprintf("Could not find information for tag %s", event.TagName)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(404, errMsg)
	}

	var tag models.Tag
	if err := attributevalue.UnmarshalMap(item, &tag); err != nil {
		errMsg := fmt.Sprintf("Error getting tag %s from the datastore", event.TagName)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.FormatResponse(200, map[string]interface{}{"data": tag.Resource()})
}

// FindAllTags lists every tag belonging to the caller.
func (ts *TagService) FindAllTags(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(event.TagsTable),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	}
	items, err := ts.Dynamo.QueryAllPages(ctx, input)
	if err != nil {
		errMsg := "Error querying the datastore"
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	tagList := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		var tag models.Tag
		if err := attributevalue.UnmarshalMap(item, &tag); err != nil {
			errMsg := "Error querying the datastore"
			ts.Logger.Error(errMsg, "error", err)
			return models.ErrorResponse(500, errMsg)
		}
		tagList = append(tagList, tag.Resource())
	}
	return models.FormatResponse(200, map[string]interface{}{"data": tagList})
}

// UpdateTag changes a tag's color. A missing color is a no-op; an unchanged
// color fails the write precondition, which keeps no-op writes off the
// datastore at the cost of a 403 for "already correct".
func (ts *TagService) UpdateTag(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	tagName, tagColor, validationErr := tagFromPayload(event, ts.Logger)
	if validationErr != nil {
		return *validationErr
	}
	if tagColor == "" {
		return models.MetaResponse(200, "No color specified, nothing to do here")
	}

	err := ts.Dynamo.UpdateItem(ctx, event.TagsTable, tagKey(userID, tagName),
		"SET tag_color = :color", nil,
		map[string]types.AttributeValue{
			":color": &types.AttributeValueMemberS{Value: tagColor},
		},
		"tag_color <> :color")
	if errors.Is(err, ErrConditionFailed) {
		errMsg := fmt.Sprintf("Tag %s already up to date, nothing to do here", tagName)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(403, errMsg)
	}
	if err != nil {
		errMsg := fmt.Sprintf("Error updating tag %s in the datastore", tagName)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.MetaResponse(200, fmt.Sprintf("Tag %s updated successfully", tagName))
}

// DeleteTag removes a tag, requiring it to exist.
func (ts *TagService) DeleteTag(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	err := ts.Dynamo.DeleteItem(ctx, event.TagsTable, tagKey(userID, event.TagName), "attribute_exists(tag_name)")
	if errors.Is(err, ErrConditionFailed) {
		errMsg := fmt.Sprintf("Tag %s does not exist", event.TagName)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(409, errMsg)
	}
	if err != nil {
		errMsg := fmt.Sprintf("Error deleting tag %s from the datastore", event.TagName)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.MetaResponse(200, fmt.Sprintf("Tag %s successfully deleted", event.TagName))
}

func tagKey(userID, tagName string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":  &types.AttributeValueMemberS{Value: userID},
		"tag_name": &types.AttributeValueMemberS{Value: tagName},
	}
}

func tagFromPayload(event models.Event, logger *slog.Logger) (string, string, *models.Response) {
	data := event.PayloadData()
	if resourceType, _ := data["type"].(string); resourceType != models.ResourceTypeTags {
		errMsg := "Payload missing 'type' member"
		logger.Info(errMsg)
		resp := models.ErrorResponse(400, errMsg)
		return "", "", &resp
	}

	tagName, _ := data["id"].(string)
	if tagName == "" {
		errMsg := "Payload missing 'id' member"
		logger.Info(errMsg)
		resp := models.ErrorResponse(400, errMsg)
		return "", "", &resp
	}

	tagColor := ""
	if attrs, ok := data["attributes"].(map[string]interface{}); ok {
		tagColor, _ = attrs["color"].(string)
	}
	return tagName, tagColor, nil
}
