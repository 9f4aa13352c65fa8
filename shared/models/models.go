package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrCurrencyMismatch = errors.New("currency mismatch")

// ID represents a unique identifier
type ID string

// namespace for IDs derived from caller-supplied tokens
var idNamespace = uuid.MustParse("7c0f3c5e-4a4e-4a3e-9d52-0f6f2a7f1b11")

// GenerateUUID creates a new UUID
func GenerateUUID() ID {
	return ID(uuid.New().String())
}

// DeriveID returns a stable UUID for the given name, so the same token always maps to the same ID
func DeriveID(name string) ID {
	return ID(uuid.NewSHA1(idNamespace, []byte(name)).String())
}

// NewID creates an ID from string
func NewID(id string) (ID, error) {
	_, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	return ID(id), nil
}

// String returns string representation
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is empty
func (id ID) IsZero() bool {
	return id == ""
}

// Timestamps represents creation and update times
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimestamps creates new timestamps
func NewTimestamps(now time.Time) Timestamps {
	return Timestamps{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp
func (t Timestamps) Touch(now time.Time) Timestamps {
	t.UpdatedAt = now
	return t
}

// Money represents a monetary amount
type Money struct {
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Currency string          `json:"currency" yaml:"currency"`
}

// NewMoney creates a new money value
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// IsZero checks if money is zero
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsPositive checks if money is positive
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Add adds two money values (must have same currency)
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{
		Amount:   m.Amount.Add(other.Amount),
		Currency: m.Currency,
	}, nil
}

// Times multiplies the amount by an integer quantity
func (m Money) Times(quantity int64) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(quantity)),
		Currency: m.Currency,
	}
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
