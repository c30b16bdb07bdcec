package valueobject

// SignalKey идентифицирует домен, по которому вычисляется сигнал
type SignalKey string

const (
	SignalFunnel         SignalKey = "funnel"
	SignalProcessQuality SignalKey = "process-quality"
	SignalAging          SignalKey = "aging"
	SignalBurst          SignalKey = "burst"
	SignalInfrastructure SignalKey = "infrastructure"
)

// Signal представляет классификацию одного домена.
// Отсутствие сигнала означает GREEN для домена, поэтому Level всегда AMBER или RED.
type Signal struct {
	Key   SignalKey  `json:"key"`
	Level AlertLevel `json:"level"`
}

// IsRed проверяет, является ли сигнал красным
func (s Signal) IsRed() bool {
	return s.Level == AlertRed
}
