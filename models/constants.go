package models

// Version is reported by the ping endpoint.
const Version = "0.0.1"

// JSON:API resource types
const (
	ResourceTypeThreads = "threads"
	ResourceTypeTags    = "tags"
)

// Listing window bounds, in seconds
const (
	DefaultBacklogSearchTime = 604800      // 1 week
	BacklogTimeLimit         = 2592000 * 6 // 6 months
)

// DefaultTagColor is assigned when a tag is created without a color.
const DefaultTagColor = "#ffffff"

// Resource paths the dispatcher routes on. The dev server normalizes raw
// request paths to these before dispatching, and the backfill fan-out
// publishes events addressed at them.
const (
	ThreadsPath              = "/notification/threads"
	ThreadPath               = "/notification/threads/{thread-id}"
	BackfillPath             = "/notification/backfill"
	BackfillAsyncTriggerPath = "/notification/backfill_async_trigger"
	PingPath                 = "/notification/ping"
	TagsPath                 = "/notification/tags"
	TagPath                  = "/notification/tags/{tag-name}"
)
