package controllers

import (
	"context"
	"fmt"
	"log/slog"

	"notification_server/models"
	"notification_server/services"
)

// Operation enumerates every backend operation the dispatcher can route to.
type Operation int

const (
	OpUnknown Operation = iota
	OpPing
	OpFindAllThreads
	OpFindThread
	OpUpdateThread
	OpDeleteThread
	OpBackfillNotifications
	OpBackfillNotificationsAsync
	OpCreateNewTag
	OpFindAllTags
	OpFindTag
	OpUpdateTag
	OpDeleteTag
)

type routeKey struct {
	method string
	path   string
}

// routeTable maps an inbound (method, path) pair to its operation. Adding a
// route here is the only way to expose a new operation.
var routeTable = map[routeKey]Operation{
	{"GET", models.PingPath}:                  OpPing,
	{"GET", models.ThreadsPath}:               OpFindAllThreads,
	{"GET", models.ThreadPath}:                OpFindThread,
	{"PATCH", models.ThreadPath}:              OpUpdateThread,
	{"DELETE", models.ThreadPath}:             OpDeleteThread,
	{"POST", models.BackfillPath}:             OpBackfillNotifications,
	{"POST", models.BackfillAsyncTriggerPath}: OpBackfillNotificationsAsync,
	{"POST", models.TagsPath}:                 OpCreateNewTag,
	{"GET", models.TagsPath}:                  OpFindAllTags,
	{"GET", models.TagPath}:                   OpFindTag,
	{"PATCH", models.TagPath}:                 OpUpdateTag,
	{"DELETE", models.TagPath}:                OpDeleteTag,
}

// Dispatcher routes inbound events to thread and tag operations.
type Dispatcher struct {
	Threads *services.ThreadService
	Tags    *services.TagService
	Logger  *slog.Logger
}

// Dispatch runs the operation registered for the event's method and path.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event) models.Response {
	op := routeTable[routeKey{method: event.HTTPMethod, path: event.ResourcePath}]
	d.Logger.Debug("dispatching event", "method", event.HTTPMethod, "path", event.ResourcePath)

	switch op {
	case OpPing:
		return models.FormatResponse(200, map[string]interface{}{
			"data": []interface{}{},
			"meta": map[string]interface{}{"version": models.Version},
		})
	case OpFindAllThreads:
		return d.Threads.FindAllThreads(ctx, event)
	case OpFindThread:
		return d.Threads.FindThread(ctx, event)
	case OpUpdateThread:
		return d.Threads.UpdateThread(ctx, event)
	case OpDeleteThread:
		return d.Threads.DeleteThread(ctx, event)
	case OpBackfillNotifications:
		return d.Threads.BackfillNotifications(ctx, event)
	case OpBackfillNotificationsAsync:
		return d.Threads.BackfillNotificationsAsynchronously(ctx, event)
	case OpCreateNewTag:
		return d.Tags.CreateNewTag(ctx, event)
	case OpFindAllTags:
		return d.Tags.FindAllTags(ctx, event)
	case OpFindTag:
		return d.Tags.FindTag(ctx, event)
	case OpUpdateTag:
		return d.Tags.UpdateTag(ctx, event)
	case OpDeleteTag:
		return d.Tags.DeleteTag(ctx, event)
	}

	return models.ErrorResponse(400, fmt.Sprintf("Invalid path %s", event.ResourcePath))
}
