package flashcards

import "encoding/json"

// UnmarshalJSON decodes stored preferences field by field so one corrupt
// field falls back to its default instead of discarding the rest.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	var raw rawPreferences
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = raw.toPreferences()
	return nil
}
