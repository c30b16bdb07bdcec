package entity

import "time"

// ProcessHealth содержит частоту исключений одного процесса (доля 0..1)
type ProcessHealth struct {
	Name          string  `json:"name"`
	ExceptionRate float64 `json:"exceptionRate"`
}

// Series представляет упорядоченный ряд значений, последний элемент самый свежий
type Series struct {
	Values []int `json:"values"`
}

// BurstDetector содержит ряд наблюдений и верхнюю границу ожидаемой полосы.
// Граница полосы статистическая, поэтому значения дробные.
type BurstDetector struct {
	Values []float64 `json:"values"`
	Upper  []float64 `json:"upper"`
}

// HeatmapCell число выходов за границы у процесса за один день
type HeatmapCell struct {
	Process string  `json:"process"`
	Day     string  `json:"day"`
	Value   float64 `json:"value"`
}

// OutOfBoundsHeatmap матрица процесс x день
type OutOfBoundsHeatmap struct {
	Processes []string      `json:"processes,omitempty"`
	Days      []string      `json:"days,omitempty"`
	Values    []HeatmapCell `json:"values"`
}

// RootCauseSplit содержит распределение причин по окнам (индекс 2 это месяц)
type RootCauseSplit struct {
	Labels          []string `json:"labels,omitempty"`
	Environment     []int    `json:"environment"`
	Code            []int    `json:"code"`
	BusinessInquiry []int    `json:"businessInquiry"`
}

// QueueState содержит ряды pending и exception очередей
type QueueState struct {
	Labels    []string `json:"labels,omitempty"`
	Pending   []int    `json:"pending"`
	Exception []int    `json:"exception"`
}

// RobotSegment содержит состояние роботов за сутки
type RobotSegment struct {
	Running int `json:"running"`
	Retired int `json:"retired"`
}

// Robots содержит сегменты роботов по дням
type Robots struct {
	Today     *RobotSegment `json:"today,omitempty"`
	Yesterday *RobotSegment `json:"yesterday,omitempty"`
}

// MetricsSnapshot представляет срез операционных метрик за один цикл обновления.
// Снимок неизменяем после получения: движок политики только читает его.
type MetricsSnapshot struct {
	CapturedAt       time.Time           `json:"capturedAt,omitempty"`
	ProcessHealth    []ProcessHealth     `json:"processHealth"`
	HandoffFunnel    *Series             `json:"handoffFunnel,omitempty"`
	QueueAging       *Series             `json:"queueAging,omitempty"`
	BurstDetector    *BurstDetector      `json:"burstDetector,omitempty"`
	Heatmap          *OutOfBoundsHeatmap `json:"outOfBoundsHeatmap,omitempty"`
	RootCauseSplit   *RootCauseSplit     `json:"rootCauseSplit,omitempty"`
	QueueState       *QueueState         `json:"queueState,omitempty"`
	HourlyExceptions *Series             `json:"hourlyExceptions,omitempty"`
	DailyExceptions  *Series             `json:"dailyExceptions,omitempty"`
	Robots           *Robots             `json:"robots,omitempty"`
}

// FunnelValues возвращает значения воронки или nil
func (s *MetricsSnapshot) FunnelValues() []int {
	if s == nil || s.HandoffFunnel == nil {
		return nil
	}
	return s.HandoffFunnel.Values
}

// AgingValues возвращает бакеты возраста очереди или nil
func (s *MetricsSnapshot) AgingValues() []int {
	if s == nil || s.QueueAging == nil {
		return nil
	}
	return s.QueueAging.Values
}

// HourlyValues возвращает почасовой ряд исключений или nil
func (s *MetricsSnapshot) HourlyValues() []int {
	if s == nil || s.HourlyExceptions == nil {
		return nil
	}
	return s.HourlyExceptions.Values
}

// DailyValues возвращает дневной ряд исключений или nil
func (s *MetricsSnapshot) DailyValues() []int {
	if s == nil || s.DailyExceptions == nil {
		return nil
	}
	return s.DailyExceptions.Values
}

// PendingValues возвращает ряд pending очереди или nil
func (s *MetricsSnapshot) PendingValues() []int {
	if s == nil || s.QueueState == nil {
		return nil
	}
	return s.QueueState.Pending
}

// ExceptionQueueValues возвращает ряд exception очереди или nil
func (s *MetricsSnapshot) ExceptionQueueValues() []int {
	if s == nil || s.QueueState == nil {
		return nil
	}
	return s.QueueState.Exception
}
