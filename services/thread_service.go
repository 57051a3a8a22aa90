package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"notification_server/models"
	"notification_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// reasonTagMap maps an upstream notification reason to the tag recorded on
// first resolution.
// https://developer.github.com/v3/activity/notifications/#notification-reasons
var reasonTagMap = map[string]string{
	"subscribed":   "watching",
	"manual":       "subscribed",
	"author":       "owner",
	"comment":      "commented",
	"mention":      "mentioned",
	"team_mention": "mentioned",
	"assign":       "assignee",
}

// ThreadService reconciles the local thread cache with the upstream
// notification feed and drives the asynchronous backfill fan-out.
type ThreadService struct {
	Dynamo    *DynamoService
	GitHub    *GitHubService
	Publisher Publisher
	Logger    *slog.Logger

	// Now supplies the current epoch time; nil means the wall clock.
	Now func() int64
}

func (ts *ThreadService) now() int64 {
	if ts.Now != nil {
		return ts.Now()
	}
	return utils.CurrentEpochTime()
}

// FindThread resolves a single thread: the cached copy when present, an
// upstream fetch persisted into the cache on a miss. Tags are derived once,
// at first resolution.
func (ts *ThreadService) FindThread(ctx context.Context, event models.Event) models.Response {
	userID, claims, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	threadID, err := strconv.ParseInt(event.ThreadID, 10, 64)
	if err != nil {
		return models.ErrorResponse(400, fmt.Sprintf("Thread id %s is not valid", event.ThreadID))
	}

	thread, found, err := ts.cachedThread(ctx, event, userID, threadID)
	if err != nil {
		errMsg := fmt.Sprintf("Error querying for thread %d from the datastore", threadID)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	if !found {
		ts.Logger.Debug("thread not found in the datastore", "thread_id", threadID)

		githubToken, _ := claims["github_token"].(string)
		upstream, ok := ts.GitHub.Thread(ctx, githubToken, event.ThreadID)
		if !ok {
			errMsg := fmt.Sprintf("Could not find info for thread %d", threadID)
			ts.Logger.Info(errMsg)
			return models.ErrorResponse(404, errMsg)
		}

		thread, err = mapUpstreamThread(userID, threadID, upstream)
		if err != nil {
			errMsg := fmt.Sprintf("Could not find info for thread %d", threadID)
			ts.Logger.Error(errMsg, "error", err)
			return models.ErrorResponse(404, errMsg)
		}
		thread.Tags = determineListOfTags(thread)

		// No existence precondition: two racing first-time resolutions write
		// the same upstream data, so last writer wins. A failed write is
		// logged and the resolved data still serves this response; the next
		// resolution retries the write.
		if err := ts.Dynamo.PutItem(ctx, event.ThreadsTable, thread, ""); err != nil {
			ts.Logger.Error(fmt.Sprintf("Error writing info for thread %d to the datastore", threadID), "error", err)
		}
	}

	return models.FormatResponse(200, map[string]interface{}{"data": thread.Resource()})
}

// FindAllThreads lists cached threads whose updated_at falls inside the
// requested window, bounded by the retention limit.
func (ts *ThreadService) FindAllThreads(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	fromDate, err := resolveFromDate(event.FromParam, ts.now())
	if err != nil {
		errMsg := fmt.Sprintf("'from' parameter needs to be in epoch seconds, %s is not valid", event.FromParam)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(400, errMsg)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(event.ThreadsTable),
		IndexName:              aws.String(event.ThreadsDateIndex),
		KeyConditionExpression: aws.String("user_id = :uid AND updated_at >= :from"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":  &types.AttributeValueMemberS{Value: userID},
			":from": &types.AttributeValueMemberN{Value: strconv.FormatInt(fromDate, 10)},
		},
	}
	items, err := ts.Dynamo.QueryAllPages(ctx, input)
	if err != nil {
		errMsg := "Error querying the datastore"
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	threadList := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		var thread models.Thread
		if err := attributevalue.UnmarshalMap(item, &thread); err != nil {
			errMsg := "Error querying the datastore"
			ts.Logger.Error(errMsg, "error", err)
			return models.ErrorResponse(500, errMsg)
		}
		threadList = append(threadList, thread.Resource())
	}
	return models.FormatResponse(200, map[string]interface{}{"data": threadList})
}

// resolveFromDate turns the optional 'from' parameter into the window start.
// Requests reaching past the retention limit are clamped to it.
func resolveFromDate(fromParam string, now int64) (int64, error) {
	fromDate := now - models.DefaultBacklogSearchTime
	if fromParam != "" {
		parsed, err := strconv.ParseInt(fromParam, 10, 64)
		if err != nil {
			return 0, err
		}
		fromDate = parsed
	}
	if fromDate <= now-models.BacklogTimeLimit {
		fromDate = now - models.BacklogTimeLimit
	}
	return fromDate, nil
}

// UpdateThread replaces every updatable field of a cached thread with the
// payload's attributes. Omitted attributes are blanked, not left untouched.
func (ts *ThreadService) UpdateThread(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	threadID, err := strconv.ParseInt(event.ThreadID, 10, 64)
	if err != nil {
		return models.ErrorResponse(400, fmt.Sprintf("Thread id %s is not valid", event.ThreadID))
	}

	data := event.PayloadData()
	if resourceType, _ := data["type"].(string); resourceType != models.ResourceTypeThreads {
		errMsg := "Payload missing 'type' member"
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(400, errMsg)
	}
	if !payloadIDMatches(data["id"], threadID) {
		errMsg := fmt.Sprintf("Payload 'id' member does not match thread id %d", threadID)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(400, errMsg)
	}

	attrs, _ := data["attributes"].(map[string]interface{})
	thread := threadFromAttributes(userID, threadID, attrs)

	names, values, err := threadUpdateExpressionParts(thread)
	if err == nil {
		err = ts.Dynamo.UpdateItem(ctx, event.ThreadsTable, threadKey(userID, threadID),
			threadUpdateExpression, names, values, "")
	}
	if err != nil {
		errMsg := fmt.Sprintf("Error updating thread %d in the datastore", threadID)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.MetaResponse(200, fmt.Sprintf("Thread %d updated successfully", threadID))
}

// DeleteThread removes a cached thread, requiring it to exist.
func (ts *ThreadService) DeleteThread(ctx context.Context, event models.Event) models.Response {
	userID, _, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}

	threadID, err := strconv.ParseInt(event.ThreadID, 10, 64)
	if err != nil {
		return models.ErrorResponse(400, fmt.Sprintf("Thread id %s is not valid", event.ThreadID))
	}

	err = ts.Dynamo.DeleteItem(ctx, event.ThreadsTable, threadKey(userID, threadID), "attribute_exists(thread_id)")
	if errors.Is(err, ErrConditionFailed) {
		errMsg := fmt.Sprintf("Thread %d does not exist", threadID)
		ts.Logger.Info(errMsg)
		return models.ErrorResponse(409, errMsg)
	}
	if err != nil {
		errMsg := fmt.Sprintf("Error deleting thread %d from the datastore", threadID)
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.MetaResponse(200, fmt.Sprintf("Thread %d successfully deleted", threadID))
}

// BackfillNotifications republishes the inbound event onto the fan-out topic
// so the actual upstream paging happens out-of-band.
func (ts *ThreadService) BackfillNotifications(ctx context.Context, event models.Event) models.Response {
	if _, _, authErr := Authenticate(event, ts.Logger); authErr != nil {
		return *authErr
	}

	event.ResourcePath = models.BackfillAsyncTriggerPath
	message, err := json.Marshal(event)
	if err == nil {
		err = ts.Publisher.Publish(ctx, event.SNSTopicARN, string(message))
	}
	if err != nil {
		errMsg := "Error triggering notification backfill"
		ts.Logger.Error(errMsg, "error", err)
		return models.ErrorResponse(500, errMsg)
	}

	return models.MetaResponse(202, "Notification backfill triggered")
}

// BackfillNotificationsAsynchronously pages the upstream feed and emits one
// fan-out message per discovered thread id. Each message addresses the
// thread's own resource path, so redelivery resolves it through FindThread's
// ordinary machinery. An upstream failure aborts the whole phase before
// anything is published.
func (ts *ThreadService) BackfillNotificationsAsynchronously(ctx context.Context, event models.Event) models.Response {
	_, claims, authErr := Authenticate(event, ts.Logger)
	if authErr != nil {
		return *authErr
	}
	githubToken, _ := claims["github_token"].(string)
	since := ts.now() - models.BacklogTimeLimit

	var threadIDs []string
	cursor := ""
	for {
		items, next, err := ts.GitHub.NotificationsPage(ctx, githubToken, since, cursor)
		if err != nil {
			ts.Logger.Error("aborting notification backfill", "error", err)
			return models.MetaResponse(200, "Notification backfill aborted")
		}
		for _, item := range items {
			threadIDs = append(threadIDs, item.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	for _, threadID := range threadIDs {
		fanout := event
		fanout.ResourcePath = models.ThreadPath
		fanout.HTTPMethod = "GET"
		fanout.ThreadID = threadID

		message, err := json.Marshal(fanout)
		if err == nil {
			err = ts.Publisher.Publish(ctx, event.SNSTopicARN, string(message))
		}
		if err != nil {
			ts.Logger.Error("failed to publish fan-out message", "thread_id", threadID, "error", err)
		}
	}

	return models.MetaResponse(200, fmt.Sprintf("Backfill fanned out %d threads", len(threadIDs)))
}

func (ts *ThreadService) cachedThread(ctx context.Context, event models.Event, userID string, threadID int64) (models.Thread, bool, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(event.ThreadsTable),
		KeyConditionExpression: aws.String("user_id = :uid AND thread_id = :tid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":tid": &types.AttributeValueMemberN{Value: strconv.FormatInt(threadID, 10)},
		},
	}
	items, err := ts.Dynamo.QueryAllPages(ctx, input)
	if err != nil {
		return models.Thread{}, false, err
	}
	if len(items) == 0 {
		return models.Thread{}, false, nil
	}

	// There should really only be one result.
	var thread models.Thread
	if err := attributevalue.UnmarshalMap(items[0], &thread); err != nil {
		return models.Thread{}, false, err
	}
	return thread, true, nil
}

func mapUpstreamThread(userID string, threadID int64, upstream *GitHubThread) (models.Thread, error) {
	updatedAt, err := utils.EpochTime(upstream.UpdatedAt)
	if err != nil {
		return models.Thread{}, fmt.Errorf("could not parse updated_at %q: %w", upstream.UpdatedAt, err)
	}
	return models.Thread{
		UserID:                userID,
		ThreadID:              threadID,
		ThreadURL:             upstream.URL,
		ThreadSubscriptionURL: upstream.SubscriptionURL,
		Reason:                upstream.Reason,
		UpdatedAt:             updatedAt,
		SubjectTitle:          upstream.Subject.Title,
		SubjectURL:            upstream.Subject.URL,
		SubjectType:           upstream.Subject.Type,
		RepositoryOwner:       upstream.Repository.Owner.Login,
		RepositoryName:        upstream.Repository.Name,
	}, nil
}

// determineListOfTags derives the tag set recorded with a thread at first
// resolution. Order is fixed: [reason tag, subject type, owner, repo].
func determineListOfTags(thread models.Thread) []string {
	reasonTag, ok := reasonTagMap[strings.ToLower(thread.Reason)]
	if !ok {
		reasonTag = thread.Reason
	}
	return []string{
		reasonTag,
		strings.ToLower(thread.SubjectType),
		strings.ToLower(thread.RepositoryOwner),
		strings.ToLower(thread.RepositoryName),
	}
}

func threadKey(userID string, threadID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":   &types.AttributeValueMemberS{Value: userID},
		"thread_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(threadID, 10)},
	}
}

const threadUpdateExpression = "SET #turl = :turl, #tsurl = :tsurl, #reason = :reason, " +
	"#uat = :uat, #stitle = :stitle, #surl = :surl, #stype = :stype, " +
	"#rowner = :rowner, #rname = :rname, #tags = :tags"

func threadUpdateExpressionParts(thread models.Thread) (map[string]string, map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(thread)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal thread: %w", err)
	}

	names := map[string]string{
		"#turl":   "thread_url",
		"#tsurl":  "thread_subscription_url",
		"#reason": "reason",
		"#uat":    "updated_at",
		"#stitle": "subject_title",
		"#surl":   "subject_url",
		"#stype":  "subject_type",
		"#rowner": "repository_owner",
		"#rname":  "repository_name",
		"#tags":   "tags",
	}
	values := map[string]types.AttributeValue{
		":turl":   item["thread_url"],
		":tsurl":  item["thread_subscription_url"],
		":reason": item["reason"],
		":uat":    item["updated_at"],
		":stitle": item["subject_title"],
		":surl":   item["subject_url"],
		":stype":  item["subject_type"],
		":rowner": item["repository_owner"],
		":rname":  item["repository_name"],
		":tags":   item["tags"],
	}
	return names, values, nil
}

func payloadIDMatches(raw interface{}, threadID int64) bool {
	switch v := raw.(type) {
	case float64:
		return int64(v) == threadID
	case int64:
		return v == threadID
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		return err == nil && parsed == threadID
	}
	return false
}

func threadFromAttributes(userID string, threadID int64, attrs map[string]interface{}) models.Thread {
	return models.Thread{
		UserID:                userID,
		ThreadID:              threadID,
		ThreadURL:             stringAttr(attrs, "thread_url"),
		ThreadSubscriptionURL: stringAttr(attrs, "thread_subscription_url"),
		Reason:                stringAttr(attrs, "reason"),
		UpdatedAt:             intAttr(attrs, "updated_at"),
		SubjectTitle:          stringAttr(attrs, "subject_title"),
		SubjectURL:            stringAttr(attrs, "subject_url"),
		SubjectType:           stringAttr(attrs, "subject_type"),
		RepositoryOwner:       stringAttr(attrs, "repository_owner"),
		RepositoryName:        stringAttr(attrs, "repository_name"),
		Tags:                  stringListAttr(attrs, "tags"),
	}
}

func stringAttr(attrs map[string]interface{}, name string) string {
	v, _ := attrs[name].(string)
	return v
}

func intAttr(attrs map[string]interface{}, name string) int64 {
	switch v := attrs[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		parsed, _ := strconv.ParseInt(v, 10, 64)
		return parsed
	}
	return 0
}

func stringListAttr(attrs map[string]interface{}, name string) []string {
	raw, ok := attrs[name].([]interface{})
	if !ok {
		return nil
	}
	list := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			list = append(list, s)
		}
	}
	return list
}
