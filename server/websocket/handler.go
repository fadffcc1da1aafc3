package websocket

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
	"github.com/lucasjordaoreal/UltraDownloader/server/internal/progress"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the UI may be served from another origin in development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connObserver adapts one websocket connection to the broadcaster.
// gorilla connections allow a single concurrent writer, hence the mutex.
type connObserver struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connObserver) Send(ev common.ProgressEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

// Handler upgrades the request and streams progress events until the
// client goes away.
func Handler(b *progress.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", slog.Any("err", err))
			return
		}
		defer conn.Close()

		obs := &connObserver{conn: conn}

		if err := obs.Send(common.ProgressEvent{
			Status:   common.StatusConnected,
			Progress: common.Percent(0),
		}); err != nil {
			return
		}

		disconnect := b.Connect(obs)
		defer disconnect()

		// clients never send application data; the read loop just
		// detects the close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
