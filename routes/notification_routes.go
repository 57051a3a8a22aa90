package routes

import (
	"notification_server/controllers"

	"github.com/gorilla/mux"
)

// RegisterNotificationRoutes sets up all routes under /notification. Every
// path funnels through the controller, which normalizes it onto the
// dispatcher's route patterns.
func RegisterNotificationRoutes(r *mux.Router, controller *controllers.NotificationController) {
	r.PathPrefix("/notification").HandlerFunc(controller.HandleRequest)
}
