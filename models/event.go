package models

// Event is the inbound request shape every operation consumes. The dev
// server builds one per HTTP request; the backfill fan-out serializes events
// onto the pub/sub topic so redelivered invocations look identical to
// synchronous ones.
type Event struct {
	ResourcePath     string                 `json:"resource-path"`
	HTTPMethod       string                 `json:"http-method"`
	Payload          map[string]interface{} `json:"payload"`
	BearerToken      string                 `json:"bearer_token"`
	JWTSigningSecret string                 `json:"jwt_signing_secret"`
	DynamoDBEndpoint string                 `json:"notification_dynamodb_endpoint_url"`
	ThreadsTable     string                 `json:"notification_user_notification_dynamodb_table_name"`
	ThreadsDateIndex string                 `json:"notification_user_notification_date_dynamodb_index_name"`
	TagsTable        string                 `json:"notification_tags_dynamodb_table_name"`
	SNSTopicARN      string                 `json:"notification_sns_arn"`
	ThreadID         string                 `json:"threadid,omitempty"`
	TagName          string                 `json:"tagname,omitempty"`
	FromParam        string                 `json:"qs_from,omitempty"`
}

// PayloadData returns the "data" member of a JSON:API request payload, or an
// empty map when the payload has no such member.
func (e Event) PayloadData() map[string]interface{} {
	data, _ := e.Payload["data"].(map[string]interface{})
	return data
}
