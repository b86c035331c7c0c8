package catalog

// Catalog is the ordered set of indicators the advisor expects from the
// scan boundary. Order here is evaluation order, which is also the display
// order of IndicatorResults.
type Catalog struct {
	Indicators []IndicatorProps
}

// Default returns the built-in catalog mirroring the scoring engine's
// weighted components. Used when no indicators.yaml is configured.
func Default() *Catalog {
	return &Catalog{
		Indicators: []IndicatorProps{
			{ID: "connection", Name: "Connection Security", Key: "Connection_Security", Weight: 18},
			{ID: "cert", Name: "Certificate Health", Key: "Certificate_Health", Weight: 16},
			{ID: "dns", Name: "DNS Record Health", Key: "DNS_Record_Health", Weight: 15},
			{ID: "reputation", Name: "Domain Reputation", Key: "Domain_Reputation", Weight: 23},
			{ID: "credential", Name: "Credential Safety", Key: "Credential_Safety", Weight: 18},
			{ID: "whois", Name: "WHOIS Pattern", Key: "WHOIS_Pattern", Weight: 10},
		},
	}
}

// IDs returns the indicator identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Indicators))
	for _, ind := range c.Indicators {
		ids = append(ids, ind.ID)
	}
	return ids
}

// Len returns the number of indicators.
func (c *Catalog) Len() int {
	return len(c.Indicators)
}
