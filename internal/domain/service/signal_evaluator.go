package service

import (
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

// Пороги доминирования инфраструктурных причин в месячном окне
const (
	infraVolumeFloor = 12
	infraRedVolume   = 18
	monthWindowIndex = 2
	aging60Index     = 3
)

// SignalEvaluator классифицирует один домен снимка.
// Второе значение false означает, что сигнала нет (домен в норме или данных недостаточно).
type SignalEvaluator func(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) (valueobject.Signal, bool)

// signalEvaluators задает порядок сигналов в AlertDecision
var signalEvaluators = []SignalEvaluator{
	EvaluateFunnel,
	EvaluateProcessQuality,
	EvaluateAging,
	EvaluateBurst,
	EvaluateInfrastructure,
}

// CollectSignals вычисляет все сигналы снимка в фиксированном порядке
func CollectSignals(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) []valueobject.Signal {
	signals := make([]valueobject.Signal, 0, len(signalEvaluators))
	for _, evaluate := range signalEvaluators {
		if signal, ok := evaluate(snapshot, cfg); ok {
			signals = append(signals, signal)
		}
	}
	return signals
}

// FunnelDrop возвращает падение воронки между обнаружением и назначением
func FunnelDrop(snapshot *entity.MetricsSnapshot) (int, bool) {
	values := snapshot.FunnelValues()
	detected, ok := at(values, 0)
	if !ok {
		return 0, false
	}
	assigned, ok := at(values, 2)
	if !ok {
		return 0, false
	}
	return detected - assigned, true
}

// EvaluateFunnel оценивает падение воронки передачи
func EvaluateFunnel(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) (valueobject.Signal, bool) {
	drop, ok := FunnelDrop(snapshot)
	if !ok {
		return valueobject.Signal{}, false
	}
	return classify(valueobject.SignalFunnel, drop, cfg.FunnelDrop)
}

// EvaluateProcessQuality дает RED, если хотя бы один процесс превысил красный порог исключений
func EvaluateProcessQuality(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) (valueobject.Signal, bool) {
	if snapshot == nil {
		return valueobject.Signal{}, false
	}
	for _, p := range snapshot.ProcessHealth {
		if p.ExceptionRate > cfg.ExceptionRate.Red {
			return valueobject.Signal{Key: valueobject.SignalProcessQuality, Level: valueobject.AlertRed}, true
		}
	}
	return valueobject.Signal{}, false
}

// EvaluateAging оценивает количество элементов очереди старше 60 минут
func EvaluateAging(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) (valueobject.Signal, bool) {
	aging60, ok := at(snapshot.AgingValues(), aging60Index)
	if !ok {
		return valueobject.Signal{}, false
	}
	return classify(valueobject.SignalAging, aging60, cfg.Aging60Plus)
}

// BurstOverBandCount считает наблюдения выше верхней границы полосы
func BurstOverBandCount(snapshot *entity.MetricsSnapshot) (int, bool) {
	if snapshot == nil || snapshot.BurstDetector == nil || len(snapshot.BurstDetector.Values) == 0 {
		return 0, false
	}

	count := 0
	for i, v := range snapshot.BurstDetector.Values {
		upper, ok := at(snapshot.BurstDetector.Upper, i)
		if ok && v > upper {
			count++
		}
	}
	return count, true
}

// EvaluateBurst оценивает количество всплесков выше полосы
func EvaluateBurst(snapshot *entity.MetricsSnapshot, cfg valueobject.ThresholdConfig) (valueobject.Signal, bool) {
	count, ok := BurstOverBandCount(snapshot)
	if !ok {
		return valueobject.Signal{}, false
	}
	return classify(valueobject.SignalBurst, count, cfg.BurstOverBand)
}

// EvaluateInfrastructure проверяет доминирование причин окружения над причинами в коде
func EvaluateInfrastructure(snapshot *entity.MetricsSnapshot, _ valueobject.ThresholdConfig) (valueobject.Signal, bool) {
	if snapshot == nil || snapshot.RootCauseSplit == nil {
		return valueobject.Signal{}, false
	}

	env60, ok := at(snapshot.RootCauseSplit.Environment, monthWindowIndex)
	if !ok {
		return valueobject.Signal{}, false
	}
	code60, ok := at(snapshot.RootCauseSplit.Code, monthWindowIndex)
	if !ok {
		return valueobject.Signal{}, false
	}

	if env60 <= code60 || env60 < infraVolumeFloor {
		return valueobject.Signal{}, false
	}

	level := valueobject.AlertAmber
	if env60 >= infraRedVolume {
		level = valueobject.AlertRed
	}
	return valueobject.Signal{Key: valueobject.SignalInfrastructure, Level: level}, true
}

func classify(key valueobject.SignalKey, value int, band valueobject.CountBand) (valueobject.Signal, bool) {
	level, ok := band.Classify(value)
	if !ok {
		return valueobject.Signal{}, false
	}
	return valueobject.Signal{Key: key, Level: level}, true
}
