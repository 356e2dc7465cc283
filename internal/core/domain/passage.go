package domain

// Passage is the immutable unit of retrievable text produced by the
// ingestion pipeline. Metadata keys are corpus-defined (commonly source,
// page, type, date); values are strings or numbers.
type Passage struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetadataString returns the metadata value for key rendered as a string,
// or "" when the key is absent.
func (p Passage) MetadataString(key string) string {
	v, ok := p.Metadata[key]
	if !ok {
		return ""
	}
	return stringifyMetadataValue(v)
}

// MetadataNumber returns the metadata value for key as a float64 when it
// is numeric (or a numeric string).
func (p Passage) MetadataNumber(key string) (float64, bool) {
	v, ok := p.Metadata[key]
	if !ok {
		return 0, false
	}
	return numberFromMetadataValue(v)
}
