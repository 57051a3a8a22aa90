package models

// Tag is a user-defined label. Threads reference tags by name only; no
// referential integrity is enforced between the two tables.
type Tag struct {
	UserID   string `dynamodbav:"user_id"`
	TagName  string `dynamodbav:"tag_name"`
	TagColor string `dynamodbav:"tag_color"`
}

// Resource renders the tag in its JSON:API shape.
func (t Tag) Resource() map[string]interface{} {
	return map[string]interface{}{
		"type": ResourceTypeTags,
		"id":   t.TagName,
		"attributes": map[string]interface{}{
			"color": t.TagColor,
		},
	}
}
