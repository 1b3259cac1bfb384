package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

// Notifications opens the push channel. The returned channel is closed when
// ctx is done or the connection drops; delivery is best effort.
func (c *Client) Notifications(ctx context.Context) (<-chan model.Notification, error) {
	wsURL := c.baseURL + apiPrefix + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	accessToken, _ := c.Tokens()
	if accessToken != "" {
		header.Set("Authorization", "Bearer "+accessToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				return nil, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized)
			}
		}
		return nil, apierror.Network(err)
	}

	out := make(chan model.Notification, 16)

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	go func() {
		defer close(out)
		for {
			var n model.Notification
			if err := conn.ReadJSON(&n); err != nil {
				if ctx.Err() == nil {
					c.log.Debug("notification stream closed", "error", err)
				}
				return
			}

			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
