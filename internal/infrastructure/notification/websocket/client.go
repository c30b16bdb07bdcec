package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/mission-control/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client подключенный дашборд. Дашборд только слушает ленту:
// входящие кадры читаются лишь для обработки pong и close.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	// send закрывает только hub
	send chan Message

	closeOnce sync.Once
	logger    *logger.Logger
}

// NewClient создает клиента для уже установленного соединения
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendBufferSize),
		logger: logger,
	}
}

// enqueue не блокирует hub; false означает, что очередь клиента заполнена
func (c *Client) enqueue(message Message) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close закрывает соединение один раз, из какой бы goroutine его ни вызвали
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug("WebSocket close failed", "error", err.Error())
		}
	})
}

// ReadPump держит read deadline, продлевая его на каждый pong.
// Возвращается, когда дашборд отключился; после этого клиент снимается с hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Dashboard connection dropped", "error", err.Error())
			}
			return
		}
	}
}

// WritePump пишет сообщения из очереди и пингует дашборд.
// Завершается, когда hub закрыл очередь или запись не удалась.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
				return
			}
			if err := c.write(message); err != nil {
				c.logger.Warn("Dashboard write failed", "type", message.Type, "error", err.Error())
				return
			}

		case <-ticker.C:
			if err := c.writeControl(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(message Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(message)
}

func (c *Client) writeControl(messageType int, data []byte) error {
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}
