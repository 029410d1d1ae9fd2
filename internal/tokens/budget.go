// Package tokens provides the character-based token budget arithmetic used
// to shape prompts for the inference engine.
package tokens

// CharsPerToken approximates how many characters of English prose one model
// token covers. It is a rule of thumb for budget math, not a tokenizer.
const CharsPerToken = 4

// Budget allocates a model context window between the fixed instruction
// prompt, the variable input text, and the expected output. Values are
// token counts. The zero value is a zero budget.
//
// Budget is a pure value type: derived limits are computed, never stored,
// and no validation happens here. Callers are responsible for keeping
// TotalTokens within the target model's context window.
type Budget struct {
	PromptTokens int `json:"prompt_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// NewBudget creates a budget from explicit token allocations.
func NewBudget(prompt, input, output int) Budget {
	return Budget{
		PromptTokens: prompt,
		InputTokens:  input,
		OutputTokens: output,
	}
}

// TotalTokens returns the combined allocation across prompt, input and output.
func (b Budget) TotalTokens() int {
	return b.PromptTokens + b.InputTokens + b.OutputTokens
}

// MaxInputChars returns the character allowance for input text.
func (b Budget) MaxInputChars() int {
	return b.InputTokens * CharsPerToken
}

// MaxOutputChars returns the character allowance for model output.
func (b Budget) MaxOutputChars() int {
	return b.OutputTokens * CharsPerToken
}

// EstimateTokens approximates the token count of text as
// ceil(len(text)/CharsPerToken).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}
