package catalog

// File represents the top-level structure of indicators.yaml
type File struct {
	Indicators []IndicatorProps `yaml:"indicators"`
}

// IndicatorProps describes one scored sub-signal of the external engine.
type IndicatorProps struct {
	ID     string  `yaml:"id"`     // stable identifier, ex: "cert"
	Name   string  `yaml:"name"`   // display label
	Key    string  `yaml:"key"`    // JSON key in the scan response, ex: "Certificate_Health"
	Weight float64 `yaml:"weight"` // aggregation weight (informational; the engine aggregates)
}
