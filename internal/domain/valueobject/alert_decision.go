package valueobject

// Метки ответственных за реакцию
const (
	OwnerControllersMonitor        = "Controllers monitor"
	OwnerControllersInfrastructure = "Controllers + Infrastructure"
	OwnerControllersTakeAction     = "Controllers take action"
	OwnerDevelopersInfrastructure  = "Developers + Infrastructure (PO oversight)"
	OwnerDevelopersImmediate       = "Developers immediate (PO oversight)"
)

// AlertDecision представляет агрегированное решение по всем сигналам
type AlertDecision struct {
	AlertState  AlertLevel `json:"alertState"`
	ActionOwner string     `json:"actionOwner"`
	RedCount    int        `json:"redCount"`
	AmberCount  int        `json:"amberCount"`
	Signals     []Signal   `json:"signals"`
}

// HasSignal проверяет наличие сигнала с указанным ключом
func (d AlertDecision) HasSignal(key SignalKey) bool {
	for _, s := range d.Signals {
		if s.Key == key {
			return true
		}
	}
	return false
}
