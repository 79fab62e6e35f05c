package telemetry

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	// The monitor serves on localhost; browser dashboards connect from
	// file:// or a dev server, so origin checking is off.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebsocketHandler streams hub samples as JSON text messages, one per
// sample, until the client disconnects.
func WebsocketHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			glog.Warningf("telemetry: websocket upgrade failed: %v", err)
			return
		}

		samples, cancel := hub.Subscribe(16)
		defer cancel()
		defer conn.Close()

		// Reader goroutine: we never expect client data, but reading is
		// what surfaces the close handshake.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case s, ok := <-samples:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(s); err != nil {
					glog.V(1).Infof("telemetry: websocket client gone: %v", err)
					return
				}
			case <-done:
				return
			}
		}
	})
}
