package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// Типы сообщений для клиентов дашборда
const (
	MessageEvaluation   = "evaluation"
	MessageCountdown    = "countdown"
	MessageAnnouncement = "announcement"
)

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub управляет WebSocket клиентами и рассылает сообщения
// Реализует интерфейс port.NotificationService
type Hub struct {
	clients map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	// done закрывается, когда Run завершился
	done chan struct{}

	mu sync.RWMutex

	// Последние оценка и отсчет отправляются новому клиенту сразу при подключении
	lastMu         sync.RWMutex
	lastEvaluation *dto.EvaluationDTO
	lastCountdown  *dto.CountdownDTO

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine) и
// закрывает все соединения после отмены контекста
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			close(h.done)
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()

			h.greet(client)
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Канал клиента заполнен, закрываем соединение
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("Client channel full, disconnected")
		}
	}
}

func (h *Hub) greet(client *Client) {
	h.lastMu.RLock()
	evaluation, countdown := h.lastEvaluation, h.lastCountdown
	h.lastMu.RUnlock()

	if evaluation != nil {
		client.enqueue(Message{Type: MessageEvaluation, Data: evaluation})
	}
	if countdown != nil {
		client.enqueue(Message{Type: MessageCountdown, Data: countdown})
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		// Hub остановлен: WritePump сразу закроет соединение
		close(client.send)
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast отправляет оценку всем клиентам (реализация port.NotificationService)
func (h *Hub) Broadcast(evaluation *dto.EvaluationDTO) {
	h.lastMu.Lock()
	h.lastEvaluation = evaluation
	h.lastMu.Unlock()

	h.enqueue(Message{Type: MessageEvaluation, Data: evaluation})
}

// BroadcastCountdown отправляет обратный отсчет всем клиентам
func (h *Hub) BroadcastCountdown(countdown *dto.CountdownDTO) {
	h.lastMu.Lock()
	h.lastCountdown = countdown
	h.lastMu.Unlock()

	h.enqueue(Message{Type: MessageCountdown, Data: countdown})
}

// BroadcastAnnouncement отправляет критическое объявление всем клиентам
func (h *Hub) BroadcastAnnouncement(announcement *dto.AnnouncementDTO) {
	h.enqueue(Message{Type: MessageAnnouncement, Data: announcement})
}

func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", "type", message.Type)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
