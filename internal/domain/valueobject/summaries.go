package valueobject

// PanelSummaries содержит однострочные сводки для панелей дашборда.
// Пустая строка означает, что данных для панели недостаточно.
type PanelSummaries struct {
	QueueState string `json:"queueState,omitempty"`
	Funnel     string `json:"funnel,omitempty"`
	RootCause  string `json:"rootCause,omitempty"`
	QueueAging string `json:"queueAging,omitempty"`
	Burst      string `json:"burst,omitempty"`
	Heatmap    string `json:"heatmap,omitempty"`
	Hourly     string `json:"hourly,omitempty"`
	Daily      string `json:"daily,omitempty"`
	Online     string `json:"online,omitempty"`
}
