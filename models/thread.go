package models

// Thread is one cached notification event, keyed by user and upstream thread
// id. UpdatedAt is the range key of the date GSI used for window queries.
type Thread struct {
	UserID                string   `dynamodbav:"user_id"`
	ThreadID              int64    `dynamodbav:"thread_id"`
	ThreadURL             string   `dynamodbav:"thread_url"`
	ThreadSubscriptionURL string   `dynamodbav:"thread_subscription_url"`
	Reason                string   `dynamodbav:"reason"`
	UpdatedAt             int64    `dynamodbav:"updated_at"`
	SubjectTitle          string   `dynamodbav:"subject_title"`
	SubjectURL            string   `dynamodbav:"subject_url"`
	SubjectType           string   `dynamodbav:"subject_type"`
	RepositoryOwner       string   `dynamodbav:"repository_owner"`
	RepositoryName        string   `dynamodbav:"repository_name"`
	Tags                  []string `dynamodbav:"tags"`
}

// Resource renders the thread in its JSON:API shape.
func (t Thread) Resource() map[string]interface{} {
	return map[string]interface{}{
		"type": ResourceTypeThreads,
		"id":   t.ThreadID,
		"attributes": map[string]interface{}{
			"thread_url":              t.ThreadURL,
			"thread_subscription_url": t.ThreadSubscriptionURL,
			"reason":                  t.Reason,
			"updated_at":              t.UpdatedAt,
			"subject_title":           t.SubjectTitle,
			"subject_url":             t.SubjectURL,
			"subject_type":            t.SubjectType,
			"repository_owner":        t.RepositoryOwner,
			"repository_name":         t.RepositoryName,
			"tags":                    t.Tags,
		},
	}
}
