package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"notification_server/models"

	"github.com/google/uuid"
)

// BackendConfig carries the per-deployment identifiers stamped onto every
// inbound event.
type BackendConfig struct {
	JWTSigningSecret string
	DynamoDBEndpoint string
	ThreadsTable     string
	ThreadsDateIndex string
	TagsTable        string
	SNSTopicARN      string
}

// NotificationController translates raw HTTP requests into the inbound event
// shape and writes response envelopes back out.
type NotificationController struct {
	Dispatcher *Dispatcher
	Config     BackendConfig
	Logger     *slog.Logger
}

var (
	threadIDPattern = regexp.MustCompile(`^/notification/threads/([0-9]+)$`)
	tagNamePattern  = regexp.MustCompile(`^/notification/tags/([^/]+)$`)
)

func (c *NotificationController) HandleRequest(w http.ResponseWriter, r *http.Request) {
	logger := c.Logger.With("request_id", uuid.NewString())

	var payload map[string]interface{}
	if r.Body != nil {
		// An empty body is fine; only malformed JSON is rejected.
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			logger.Info("failed to decode request body", "error", err)
			writeResponse(w, models.ErrorResponse(400, "Invalid request payload"))
			return
		}
	}

	event := c.eventFromRequest(r, payload)
	logger.Debug("handling request", "method", event.HTTPMethod, "path", event.ResourcePath)
	writeResponse(w, c.Dispatcher.Dispatch(r.Context(), event))
}

// eventFromRequest normalizes the raw path onto the dispatcher's route
// patterns and extracts path and query identifiers.
func (c *NotificationController) eventFromRequest(r *http.Request, payload map[string]interface{}) models.Event {
	event := models.Event{
		HTTPMethod:       r.Method,
		Payload:          payload,
		BearerToken:      strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		JWTSigningSecret: c.Config.JWTSigningSecret,
		DynamoDBEndpoint: c.Config.DynamoDBEndpoint,
		ThreadsTable:     c.Config.ThreadsTable,
		ThreadsDateIndex: c.Config.ThreadsDateIndex,
		TagsTable:        c.Config.TagsTable,
		SNSTopicARN:      c.Config.SNSTopicARN,
	}

	path := r.URL.Path
	switch {
	case threadIDPattern.MatchString(path):
		event.ResourcePath = models.ThreadPath
		event.ThreadID = threadIDPattern.FindStringSubmatch(path)[1]
	case tagNamePattern.MatchString(path):
		event.ResourcePath = models.TagPath
		event.TagName = tagNamePattern.FindStringSubmatch(path)[1]
	default:
		event.ResourcePath = path
	}

	if path == models.ThreadsPath {
		event.FromParam = r.URL.Query().Get("from")
	}
	return event
}

func writeResponse(w http.ResponseWriter, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.HTTPStatus)
	json.NewEncoder(w).Encode(resp.Data)
}
