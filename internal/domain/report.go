package domain

// GeneratedReport is the structured progress report. It is derived on every
// request and never stored.
type GeneratedReport struct {
	Summary ReportSummary `json:"summary"`
	Trend   string        `json:"trend"`
}

type ReportSummary struct {
	TotalGamesPlayed int          `json:"totalGamesPlayed"`
	AverageScore     float64      `json:"averageScore"`
	AverageAccuracy  float64      `json:"averageAccuracy"`
	HighestScore     HighestScore `json:"highestScore"`
	MostPlayedGame   string       `json:"mostPlayedGame"`
}

type HighestScore struct {
	Value    float64 `json:"value"`
	Game     string  `json:"game"`
	Date     string  `json:"date"`
	Accuracy float64 `json:"accuracy"`
}
