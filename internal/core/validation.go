package core

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinDescriptionLength = 3
	MaxDescriptionLength = 300

	// FutureSlackDays is how far past today a transaction date may be.
	FutureSlackDays = 1
)

// Field names as they appear in request bodies and error payloads.
const (
	FieldTransactionType = "transactionType"
	FieldCategoryID      = "categoryId"
	FieldAmount          = "amount"
	FieldDescription     = "description"
	FieldTransactionDate = "transactionDate"
)

// TransactionInput is raw, untrusted transaction input.
type TransactionInput struct {
	TransactionType string
	CategoryID      string
	Amount          string
	Description     string
	TransactionDate string
}

// FieldError attributes a validation failure to one input field.
type FieldError struct {
	Field   string
	Kind    error
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

func (e *FieldError) Unwrap() error { return e.Kind }

// ValidationErrors is every field failure found in one input.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(v))
	for _, fe := range v {
		errs = append(errs, fe)
	}
	return errs
}

// Fields maps field name to message; the first failure per field wins.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// NewFieldError builds a single-field ValidationErrors.
func NewFieldError(field string, kind error, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Kind: kind, Message: message}}
}

// Validator checks transaction input against the ledger rules. It never
// touches storage.
type Validator struct {
	Clock Clock
}

func NewValidator(clock Clock) Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	return Validator{Clock: clock}
}

// Validate returns a normalized payload, or ValidationErrors listing every
// failing field.
func (v Validator) Validate(in TransactionInput) (TransactionPayload, error) {
	var (
		p    TransactionPayload
		errs ValidationErrors
	)
	add := func(field string, kind error, msg string) {
		errs = append(errs, &FieldError{Field: field, Kind: kind, Message: msg})
	}

	t, err := ParseCategoryType(in.TransactionType)
	if err != nil {
		add(FieldTransactionType, ErrInvalidTransactionType, "transaction type must be income or expense")
	}
	p.Type = t

	id, err := strconv.ParseInt(strings.TrimSpace(in.CategoryID), 10, 64)
	if err != nil || id <= 0 {
		add(FieldCategoryID, ErrInvalidCategory, "please select a category")
	}
	p.CategoryID = id

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		add(FieldAmount, ErrInvalidAmount, "amount must be greater than 0")
	}
	p.Amount = amount

	desc := strings.TrimSpace(in.Description)
	switch n := utf8.RuneCountInString(desc); {
	case n < MinDescriptionLength:
		add(FieldDescription, ErrInvalidDescription, "description must be at least 3 characters")
	case n > MaxDescriptionLength:
		add(FieldDescription, ErrInvalidDescription, "description must be at most 300 characters")
	}
	p.Description = desc

	date, err := ParseDate(in.TransactionDate)
	if err != nil {
		add(FieldTransactionDate, ErrInvalidDate, "transaction date must be a valid date")
	} else if latest := v.latestDate(); date.After(latest.Time) {
		add(FieldTransactionDate, ErrInvalidDate, "transaction date cannot be in the future")
	}
	p.TransactionDate = date

	if len(errs) > 0 {
		return TransactionPayload{}, errs
	}
	return p, nil
}

func (v Validator) latestDate() Date {
	clock := v.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return Today(clock).AddDays(FutureSlackDays)
}
