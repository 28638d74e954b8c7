// Package domain defines the core entities of the categorization service.
// These models are independent of external services and represent the
// canonical data structures used by the pipeline, the analytics and the API.
package domain

import "time"

// ============================================================
// Enumerations
// ============================================================

// Currency is the ISO code of a transaction amount.
type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == CurrencyARS || c == CurrencyUSD
}

// TransactionType is the explicit direction informed by the caller.
type TransactionType string

const (
	TypeIngreso       TransactionType = "ingreso"
	TypeEgreso        TransactionType = "egreso"
	TypeTransferencia TransactionType = "transferencia"
)

// Valid reports whether t is empty or one of the known types.
func (t TransactionType) Valid() bool {
	switch t {
	case "", TypeIngreso, TypeEgreso, TypeTransferencia:
		return true
	}
	return false
}

// Category labels used outside the rule catalogue.
const (
	CategoryIncome        = "Ingresos"
	CategoryUncategorized = "Sin clasificar"
	CategoryNoCategory    = "Uncategorized"
)

// ============================================================
// Categorization
// ============================================================

// PriorTransaction is a previous movement sent as context to the classifier.
type PriorTransaction struct {
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Amount      float64 `json:"amount"`
}

// UserProfile carries optional hints about the account owner.
type UserProfile struct {
	Country    string   `json:"country,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Categories []string `json:"categories,omitempty"` // categories the user prefers
}

// CategorizeInput is the request for a single categorization.
type CategorizeInput struct {
	Description     string             `json:"description"`
	Merchant        string             `json:"merchant,omitempty"`
	Amount          float64            `json:"amount"`
	Currency        Currency           `json:"currency"`
	When            *time.Time         `json:"when,omitempty"`
	AccountLast4    string             `json:"accountLast4,omitempty"`
	BankMessageID   string             `json:"bankMessageId,omitempty"`
	TransactionType TransactionType    `json:"transactionType,omitempty"`
	UseAI           bool               `json:"useAI,omitempty"`
	Context         []PriorTransaction `json:"context,omitempty"`
	Profile         *UserProfile       `json:"userProfile,omitempty"`
}

// IsIncome reports the direction used for fallback labels. An explicit type
// wins: "ingreso" is income and any other type an expense. Without a type a
// positive amount is income.
func (in CategorizeInput) IsIncome() bool {
	if in.TransactionType != "" {
		return in.TransactionType == TypeIngreso
	}
	return in.Amount > 0
}

// CategorizeOutput is the result of a categorization. It is the unit stored in cache.
type CategorizeOutput struct {
	Category      string   `json:"category"`
	Confidence    float64  `json:"confidence"`
	Reasons       []string `json:"reasons"`
	MerchantClean string   `json:"merchant_clean"`
	DedupHash     string   `json:"dedupHash"`
	AIEnhanced    bool     `json:"aiEnhanced"`
	AIReasoning   string   `json:"aiReasoning,omitempty"`
}

// RuleMatch is the outcome of the deterministic rule engine.
// When Hit is false, Strength is not authoritative.
type RuleMatch struct {
	Hit      bool
	Category string
	Strength float64
	Reason   string
}

// MemoryQuery identifies a merchant/description in the learned memory.
type MemoryQuery struct {
	Merchant    string
	Description string
}

// LearnedMemory is the consensus of user corrections for a merchant/description.
type LearnedMemory struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Count      int     `json:"count"`
}

// ClassifierRequest is sent to the LLM classifier.
type ClassifierRequest struct {
	Description string
	Merchant    string
	Amount      float64
	Currency    Currency
	Context     []PriorTransaction
	Profile     *UserProfile
}

// ClassifierResult is a successful LLM classification.
type ClassifierResult struct {
	Category   string
	Confidence float64
	Reasoning  string
}

// ============================================================
// Feedback
// ============================================================

// FeedbackInput is a user correction for a categorization.
type FeedbackInput struct {
	TransactionID string `json:"transactionId,omitempty"`
	Description   string `json:"description"`
	Merchant      string `json:"merchant,omitempty"`
	Category      string `json:"category"`
}

// FeedbackReceipt acknowledges a recorded correction.
type FeedbackReceipt struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ============================================================
// Batch
// ============================================================

// BatchOptions tunes a batch categorization. A nil UseAI keeps each item's own flag.
type BatchOptions struct {
	UseAI          *bool
	MaxConcurrency int
}

// BatchRequest is the body of POST /v1/categorize/batch.
type BatchRequest struct {
	Items          []CategorizeInput `json:"items"`
	UseAI          *bool             `json:"useAI,omitempty"`
	MaxConcurrency int               `json:"maxConcurrency,omitempty"`
}

// BatchResponse is returned by POST /v1/categorize/batch.
type BatchResponse struct {
	RequestID string             `json:"requestId"`
	Results   []CategorizeOutput `json:"results"`
}
