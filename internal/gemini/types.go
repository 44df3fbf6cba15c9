package gemini

// ItemData is a single text item in the request JSON. ID is the item's
// absolute position in the unique-text list, so responses can be realigned.
type ItemData struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// RequestData is the input JSON structure sent to Gemini.
type RequestData struct {
	Items []ItemData `json:"items"`
}

// TranslatedItem is a single translated item in the response JSON.
type TranslatedItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ResponseData is the output JSON structure expected from Gemini.
type ResponseData struct {
	Translations []TranslatedItem `json:"translations"`
	Usage        UsageMetadata    `json:"-"` // Not part of Gemini's JSON response, filled manually
}

// UsageMetadata holds token usage information.
type UsageMetadata struct {
	PromptTokenCount     int
	CandidatesTokenCount int
	TotalTokenCount      int
}

// Add accumulates usage from another response.
func (u *UsageMetadata) Add(other UsageMetadata) {
	u.PromptTokenCount += other.PromptTokenCount
	u.CandidatesTokenCount += other.CandidatesTokenCount
	u.TotalTokenCount += other.TotalTokenCount
}
