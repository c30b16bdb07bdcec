package valueobject

// Breach описывает процесс, превысивший красный порог частоты исключений
type Breach struct {
	Process  string     `json:"process"`
	MaxValue int        `json:"maxValue"`
	Level    AlertLevel `json:"level"`
}
