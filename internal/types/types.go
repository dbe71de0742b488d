// Package types defines core data types and the error taxonomy shared by
// the polyglot translation pipeline.
package types

// ErrorCode classifies application errors.
type ErrorCode string

const (
	ErrInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrUnsupportedLang ErrorCode = "UNSUPPORTED_LANGUAGE"
	ErrMissingCred     ErrorCode = "MISSING_CREDENTIAL"
	ErrAPICall         ErrorCode = "API_CALL_ERROR"
	ErrNetwork         ErrorCode = "NETWORK_ERROR"
	ErrPersistence     ErrorCode = "PERSISTENCE_ERROR"
	ErrConfig          ErrorCode = "CONFIG_ERROR"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is the application error type carrying a code and optional details.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// TokenUsage tracks token consumption across one or more API calls.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage record into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Provenance counts how many strings were resolved by each tier.
// The sum always equals the number of unique non-empty input strings.
type Provenance struct {
	FromMemory   int `json:"from_memory"`
	FromGlossary int `json:"from_glossary"`
	FromAPI      int `json:"from_api"`
}

// Total returns the number of resolved strings across all tiers.
func (p Provenance) Total() int {
	return p.FromMemory + p.FromGlossary + p.FromAPI
}

// TranslationResult holds the outcome of one orchestrated translation run.
// Translations is total over the de-duplicated input set: every input
// string appears as a key, worst case mapped to itself.
type TranslationResult struct {
	Translations map[string]string `json:"translations"`
	TokensUsed   TokenUsage        `json:"tokens_used"`
	Provenance   Provenance        `json:"provenance"`
	TargetLang   string            `json:"target_lang"`
	Model        string            `json:"model,omitempty"`
}
