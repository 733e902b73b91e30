package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const maxFrameBytes = 4 << 20

// NewWebSocketDialer returns the production DialFunc. The bearer token
// is sent on the upgrade request when present.
func NewWebSocketDialer(token string) DialFunc {
	return func(ctx context.Context, url string) (Conn, error) {
		opts := &websocket.DialOptions{}
		if token != "" {
			opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + token}}
		}
		conn, _, err := websocket.Dial(ctx, url, opts)
		if err != nil {
			return nil, err
		}
		conn.SetReadLimit(maxFrameBytes)
		return wsConn{conn}, nil
	}
}

type wsConn struct {
	conn *websocket.Conn
}

func (w wsConn) ReadFrame(ctx context.Context) (json.RawMessage, error) {
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (w wsConn) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, w.conn, v)
}

func (w wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "bye")
}
