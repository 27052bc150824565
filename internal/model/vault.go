package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VaultItem is a named collection of sensitive financial records.  It is
// the immutable reference target for requests, sessions and records.
type VaultItem struct {
	ID        string    `json:"id"`         // vault_items.id
	Title     string    `json:"title"`      // vault_items.title
	CreatedAt time.Time `json:"created_at"` // vault_items.created_at
}

// VaultRecord is a single investment entry inside a vault item.
type VaultRecord struct {
	ID             string          `json:"id"`
	VaultItemID    string          `json:"vault_item_id"`
	InvestmentName string          `json:"investment_name"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
	InvestmentDate string          `json:"investment_date"`
	InstrumentType string          `json:"instrument_type"`
	Remarks        string          `json:"remarks"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RecordPayload is the caller-supplied body of a record write.
type RecordPayload struct {
	InvestmentName string          `json:"investment_name"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
	InvestmentDate string          `json:"investment_date"`
	InstrumentType string          `json:"instrument_type"`
	Remarks        string          `json:"remarks"`
}

// InvestmentDateLayout is the accepted investment_date format.
const InvestmentDateLayout = "2006-01-02"

// Amounts are stored as DECIMAL(18,2): at most two fractional digits and
// sixteen integral ones.
const amountScale = 2

var maxAmount = decimal.New(1, 16)

// Normalize trims surrounding whitespace from every text field.
func (p RecordPayload) Normalize() RecordPayload {
	p.InvestmentName = strings.TrimSpace(p.InvestmentName)
	p.InvestmentDate = strings.TrimSpace(p.InvestmentDate)
	p.InstrumentType = strings.TrimSpace(p.InstrumentType)
	p.Remarks = strings.TrimSpace(p.Remarks)
	return p
}

// Validate enforces the record store's field rules: a positive amount that
// fits the stored precision, and non-empty name, date and instrument.
// Remarks are optional.
func (p RecordPayload) Validate() error {
	if p.InvestmentName == "" {
		return ErrValidation("investment_name is required")
	}
	if !p.InvestedAmount.IsPositive() {
		return ErrValidation("invested_amount must be a positive number")
	}
	if !p.InvestedAmount.Equal(p.InvestedAmount.Round(amountScale)) {
		return ErrValidation("invested_amount must have at most two decimal places")
	}
	if p.InvestedAmount.GreaterThanOrEqual(maxAmount) {
		return ErrValidation("invested_amount must be less than %s", maxAmount.String())
	}
	if p.InvestmentDate == "" {
		return ErrValidation("investment_date is required")
	}
	if _, err := time.Parse(InvestmentDateLayout, p.InvestmentDate); err != nil {
		return ErrValidation("investment_date must be formatted as YYYY-MM-DD")
	}
	if p.InstrumentType == "" {
		return ErrValidation("instrument_type is required")
	}
	return nil
}
