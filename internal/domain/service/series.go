package service

import (
	"math"
	"strconv"
)

// window представляет три последних показания ряда.
// Недостающая история заполняется ближайшим более свежим значением.
type window struct {
	now   int
	prev  int
	prev2 int
}

func trailingWindow(values []int) window {
	n := len(values)
	if n == 0 {
		return window{}
	}

	w := window{now: values[n-1]}
	w.prev = w.now
	if n >= 2 {
		w.prev = values[n-2]
	}
	w.prev2 = w.prev
	if n >= 3 {
		w.prev2 = values[n-3]
	}
	return w
}

// rising проверяет строгий рост на трех последних показаниях
func (w window) rising() bool {
	return w.now > w.prev && w.prev > w.prev2
}

// baseline возвращает округленное среднее всех значений, кроме последнего, не меньше 1
func baseline(values []int) int {
	if len(values) < 2 {
		return 1
	}

	history := values[:len(values)-1]
	sum := 0
	for _, v := range history {
		sum += v
	}

	avg := roundHalfUp(float64(sum) / float64(len(history)))
	if avg < 1 {
		return 1
	}
	return avg
}

// roundHalfUp округляет половины вверх, как это делает дашборд
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func at[T int | float64](values []T, i int) (T, bool) {
	if i < 0 || i >= len(values) {
		var zero T
		return zero, false
	}
	return values[i], true
}

func last[T int | float64](values []T) (T, bool) {
	return at(values, len(values)-1)
}

func minMax(values []int) (int, int) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func signed(v int) string {
	if v >= 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
