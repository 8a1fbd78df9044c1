package dto

// UsageTotalsResponse is the caller's lifetime completion usage.
type UsageTotalsResponse struct {
	Completions     int64 `json:"completions"`
	PromptChars     int64 `json:"prompt_chars"`
	CompletionChars int64 `json:"completion_chars"`
}
