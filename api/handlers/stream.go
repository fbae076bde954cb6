package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHub tracks connected users (uid -> *websocket.Conn)
type NotificationHub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

var hub = &NotificationHub{
	clients: make(map[string]*websocket.Conn),
}

// HandleNotificationsWebSocket upgrades the connection and streams new
// notifications to the authenticated caller until they disconnect
func HandleNotificationsWebSocket(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorf("websocket upgrade error: %v", err)
		return
	}

	hub.mutex.Lock()
	hub.clients[ident.UID] = conn
	hub.mutex.Unlock()
	zap.S().Debugf("user %s connected to notification stream", ident.UID)

	conn.SetCloseHandler(func(code int, text string) error {
		hub.mutex.Lock()
		delete(hub.clients, ident.UID)
		hub.mutex.Unlock()
		zap.S().Debugf("user %s disconnected from notification stream", ident.UID)
		return nil
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			break
		}
	}
}

// sendNotificationToUser pushes a notification over the receiver's stream if
// they are connected
func sendNotificationToUser(uid string, notification models.Notification) {
	hub.mutex.Lock()
	conn, exists := hub.clients[uid]
	hub.mutex.Unlock()

	if !exists {
		return
	}
	err := conn.WriteJSON(map[string]interface{}{
		"event": "new_notification",
		"data":  notification,
	})
	if err != nil {
		zap.S().Errorf("error streaming notification to user %s: %v", uid, err)
		hub.mutex.Lock()
		delete(hub.clients, uid)
		hub.mutex.Unlock()
		conn.Close()
	}
}
