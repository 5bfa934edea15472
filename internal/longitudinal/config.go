package longitudinal

// Direction is the sense in which a measure improves.
type Direction string

const (
	DirectionDown Direction = "down"
	DirectionUp   Direction = "up"
)

// MetricConfig describes how a measure is charted and judged.
type MetricConfig struct {
	Key       MetricKey `json:"key"`
	Label     string    `json:"label"`
	MCID      float64   `json:"mcid"`
	Direction Direction `json:"direction"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Color     string    `json:"color"`
}

var metricConfigs = []MetricConfig{
	{MetricNRSMax, "Douleur (NRS Max)", 2, DirectionDown, 0, 10, "#e74c3c"},
	{MetricODI, "Incapacité (ODI)", 10, DirectionDown, 0, 100, "#3498db"},
	{MetricCSI, "Sensibilisation (CSI)", 15, DirectionDown, 0, 100, "#f39c12"},
	{MetricPCS, "Catastrophisme (PCS)", 6, DirectionDown, 0, 52, "#9b59b6"},
	{MetricFABQTravail, "Évitement (FABQ-W)", 12, DirectionDown, 0, 100, "#e67e22"},
	{MetricHADSAnxiete, "Anxiété (HADS-A)", 4, DirectionDown, 0, 21, "#1abc9c"},
	{MetricHADSDepression, "Dépression (HADS-D)", 4, DirectionDown, 0, 21, "#16a085"},
	{MetricFABQActivite, "Évitement (FABQ-A)", 12, DirectionDown, 0, 100, "#d35400"},
	{MetricWAI, "Alliance (WAI)", 10, DirectionUp, 0, 100, "#27ae60"},
}

// Configs returns the charted measures in display order.
func Configs() []MetricConfig {
	out := make([]MetricConfig, len(metricConfigs))
	copy(out, metricConfigs)
	return out
}

// Config returns the configuration of key.
func Config(key MetricKey) (MetricConfig, bool) {
	for _, c := range metricConfigs {
		if c.Key == key {
			return c, true
		}
	}
	return MetricConfig{}, false
}

// Improved reports whether a change of diff is an improvement.
func (c MetricConfig) Improved(diff float64) bool {
	if c.Direction == DirectionDown {
		return diff < 0
	}
	return diff > 0
}

// Target is the value one MCID better than baseline.
func (c MetricConfig) Target(baseline float64) float64 {
	if c.Direction == DirectionDown {
		return baseline - c.MCID
	}
	return baseline + c.MCID
}
