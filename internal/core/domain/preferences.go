package domain

// Preferences are the user-facing display settings, persisted as a flat
// JSON object separate from the collection blob.
type Preferences struct {
	Theme                string `json:"theme"`
	Clustering           bool   `json:"clustering"`
	Language             string `json:"language"`
	RightClickSuggestion bool   `json:"rightClickSuggestion"`
}

// PreferencesPatch is a partial preferences update; nil fields keep their
// current value.
type PreferencesPatch struct {
	Theme                *string `json:"theme"`
	Clustering           *bool   `json:"clustering"`
	Language             *string `json:"language"`
	RightClickSuggestion *bool   `json:"rightClickSuggestion"`
}

// Apply shallow-merges the patch into a copy of p.
func (patch PreferencesPatch) Apply(p Preferences) Preferences {
	if patch.Theme != nil {
		p.Theme = *patch.Theme
	}
	if patch.Clustering != nil {
		p.Clustering = *patch.Clustering
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.RightClickSuggestion != nil {
		p.RightClickSuggestion = *patch.RightClickSuggestion
	}
	return p
}

// DefaultPreferences returns the out-of-the-box settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                "dark",
		Clustering:           true,
		Language:             "pt-BR",
		RightClickSuggestion: true,
	}
}
