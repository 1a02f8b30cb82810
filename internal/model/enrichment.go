package model

// Location is the geolocation block extracted for a contact. All fields are
// model output: possibly wrong, possibly absent.
type Location struct {
	City      string   `json:"city,omitempty"`
	Region    string   `json:"region,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Empty reports whether the location carries no usable data.
func (l *Location) Empty() bool {
	if l == nil {
		return true
	}
	return l.City == "" && l.Region == "" && l.Country == "" && l.Latitude == nil && l.Longitude == nil
}

// HasPoint reports whether the location carries plottable coordinates.
func (l *Location) HasPoint() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// CompanyStats is the company block extracted for a contact.
type CompanyStats struct {
	Industry       string `json:"industry,omitempty"`
	HeadcountRange string `json:"headcount_range,omitempty"`
	HQCountry      string `json:"hq_country,omitempty"`
}

// Empty reports whether the stats block carries no usable data.
func (s *CompanyStats) Empty() bool {
	if s == nil {
		return true
	}
	return s.Industry == "" && s.HeadcountRange == "" && s.HQCountry == ""
}

// Enrichment is the structured document a batch item's message content
// decodes into. The JSON keys are fixed by the submission schema.
type Enrichment struct {
	Loc   *Location     `json:"loc"`
	Stats *CompanyStats `json:"stats"`
}

// Empty reports whether the enrichment carries neither location nor stats.
func (e *Enrichment) Empty() bool {
	if e == nil {
		return true
	}
	return e.Loc.Empty() && e.Stats.Empty()
}

// EnrichedRow is a contact joined with its batch outcome. It is a derived,
// recomputable view: never persisted, rebuilt on every merge.
type EnrichedRow struct {
	Contact
	Enriched     bool        `json:"enriched"`
	Enrichment   *Enrichment `json:"enrichment,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// MergeStats aggregates one merge call's outcome.
type MergeStats struct {
	Total        int `json:"total"`
	Enriched     int `json:"enriched"`
	WithLocation int `json:"with_location"`
	WithStats    int `json:"with_stats"`
	Errors       int `json:"errors"`
}
