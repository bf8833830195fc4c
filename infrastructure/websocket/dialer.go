package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	pkgerrors "sessiongraph/pkg/errors"
)

const (
	// Maximum message size allowed from the backend
	maxMessageSize = 512 * 1024 // 512KB
)

// Conn is the slice of a websocket connection the Manager drives. It is
// satisfied by *websocket.Conn and by in-memory fakes in tests.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens a connection to the backend.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// NewDialer returns a Dialer backed by gorilla's default dialer, with the
// read limit applied before the connection is handed to the Manager.
func NewDialer() Dialer {
	return gorillaDialer{}
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, pkgerrors.NewTransport("dial "+url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}
