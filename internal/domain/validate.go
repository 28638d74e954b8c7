package domain

import (
	"math"
	"strings"
)

// Validate checks the schema-level constraints of a categorization request.
func (in CategorizeInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return &ErrValidation{Field: "description", Message: "required"}
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return &ErrValidation{Field: "amount", Message: "must be a finite number"}
	}
	if !in.Currency.Valid() {
		return &ErrValidation{Field: "currency", Message: "must be ARS or USD"}
	}
	if !in.TransactionType.Valid() {
		return &ErrValidation{Field: "transactionType", Message: "must be ingreso, egreso or transferencia"}
	}
	if in.AccountLast4 != "" && len(in.AccountLast4) != 4 {
		return &ErrValidation{Field: "accountLast4", Message: "must have 4 characters"}
	}
	return nil
}

// Validate checks a feedback submission.
func (f FeedbackInput) Validate() error {
	if strings.TrimSpace(f.Description) == "" && strings.TrimSpace(f.Merchant) == "" {
		return &ErrValidation{Field: "description", Message: "description or merchant required"}
	}
	if strings.TrimSpace(f.Category) == "" {
		return &ErrValidation{Field: "category", Message: "required"}
	}
	return nil
}
