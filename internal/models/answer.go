// ABOUTME: Answer models returned by the question-answering pipeline
// ABOUTME: StructuredAnswer is the typed contract for generation results
package models

// StructuredAnswer holds the named fields a generation request returns
type StructuredAnswer struct {
	Answer      string `json:"answer"`
	TopMatch    string `json:"top_match"`
	SearchQuery string `json:"suggested_search_query"`
	Summary     string `json:"summary"`
}

// IsEmpty reports whether no field was populated
func (a StructuredAnswer) IsEmpty() bool {
	return a.Answer == "" && a.TopMatch == "" && a.SearchQuery == "" && a.Summary == ""
}

// Answer is a grounded response to a question
type Answer struct {
	Question string        `json:"question"`
	Text     string        `json:"answer"`
	Sources  []QueryResult `json:"sources"`
	// Dropped counts retrieved results cut to fit the context budget
	Dropped int `json:"dropped,omitempty"`
}
