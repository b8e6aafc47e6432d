// Package transfers maintains the allocation of one transaction total across
// multiple destination bank accounts during form entry.
package transfers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"finanzas-core/pkg/constants"
	"finanzas-core/pkg/mathutil"
)

// ErrLastEntry is returned when removing the only remaining entry; a
// distribution always keeps at least one.
var ErrLastEntry = errors.New("una distribución debe tener al menos una entrada")

// ErrEntryNotFound is returned when no entry matches the given id.
var ErrEntryNotFound = errors.New("entrada no encontrada")

// ErrNoCompatibleAccount signals that no destination account exists in the
// distribution's currency, so entries cannot be added yet.
var ErrNoCompatibleAccount = errors.New("cree una cuenta en esta moneda primero")

// Entry is one allocation toward a destination account. ReceiptAttachment is
// an opaque reference into the application's file storage.
type Entry struct {
	ID                   string  `json:"id"`
	DestinationAccountID string  `json:"destinationAccountId"`
	Amount               float64 `json:"amount"`
	ReceiptAttachment    string  `json:"receiptAttachment,omitempty"`
	Notes                string  `json:"notes,omitempty"`
}

// Account is the slice of the account directory the balancer needs for
// compatibility filtering.
type Account struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
}

// Balance is the continuously recomputed validation state of a
// distribution.
type Balance struct {
	CurrentSum float64 `json:"currentSum"`
	Difference float64 `json:"difference"`
	IsValid    bool    `json:"isValid"`
	Label      string  `json:"label,omitempty"`
}

// Distribution holds an ordered list of entries against a fixed total and
// currency. It is form state: created when the form opens, discarded on
// submit or cancel.
type Distribution struct {
	entries     []Entry
	totalAmount float64
	currency    string
}

// NewDistribution starts a distribution with a single entry pre-filled with
// the full total.
func NewDistribution(totalAmount float64, currency string) *Distribution {
	d := &Distribution{
		totalAmount: totalAmount,
		currency:    currency,
	}
	d.entries = append(d.entries, Entry{
		ID:     uuid.NewString(),
		Amount: max(0, totalAmount),
	})
	return d
}

// TotalAmount returns the distribution's target total.
func (d *Distribution) TotalAmount() float64 { return d.totalAmount }

// Currency returns the distribution's currency.
func (d *Distribution) Currency() string { return d.currency }

// Entries returns a copy of the ordered entry list.
func (d *Distribution) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Add appends a new entry whose amount defaults to the unallocated
// remainder, or zero when the total is already covered.
func (d *Distribution) Add() Entry {
	entry := Entry{
		ID:     uuid.NewString(),
		Amount: max(0, d.totalAmount-d.currentSum()),
	}
	d.entries = append(d.entries, entry)
	return entry
}

// Remove deletes an entry by id. The last remaining entry cannot be
// removed.
func (d *Distribution) Remove(id string) error {
	if len(d.entries) == 1 {
		return ErrLastEntry
	}
	for i, entry := range d.entries {
		if entry.ID == id {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// UpdateAmount sets an entry's amount from raw form input. Input that does
// not parse as a number counts as zero.
func (d *Distribution) UpdateAmount(id, raw string) error {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		amount = 0
	}
	return d.update(id, func(entry *Entry) { entry.Amount = amount })
}

// UpdateAccount sets an entry's destination account.
func (d *Distribution) UpdateAccount(id, accountID string) error {
	return d.update(id, func(entry *Entry) { entry.DestinationAccountID = accountID })
}

// UpdateReceipt sets an entry's receipt attachment reference.
func (d *Distribution) UpdateReceipt(id, attachment string) error {
	return d.update(id, func(entry *Entry) { entry.ReceiptAttachment = attachment })
}

// UpdateNotes sets an entry's notes.
func (d *Distribution) UpdateNotes(id, notes string) error {
	return d.update(id, func(entry *Entry) { entry.Notes = notes })
}

// AutoDistribute replaces every entry's amount with an even split of the
// total, rounded to two decimals. The penny-level residual the rounding can
// leave is reported through Balance rather than silently absorbed by the
// last entry.
func (d *Distribution) AutoDistribute() {
	share := mathutil.Round(d.totalAmount / float64(len(d.entries)))
	for i := range d.entries {
		d.entries[i].Amount = share
	}
}

// SetTotal updates the target total. With exactly one entry the entry's
// amount follows the total; with two or more the allocation is considered
// user-owned and left alone.
func (d *Distribution) SetTotal(totalAmount float64) {
	d.totalAmount = totalAmount
	if len(d.entries) == 1 {
		d.entries[0].Amount = max(0, totalAmount)
	}
}

// Balance reports the current allocation state.
func (d *Distribution) Balance() Balance {
	return BalanceFor(d.entries, d.totalAmount)
}

// BalanceFor computes the allocation state for an arbitrary entry list
// against a total, for callers validating a distribution they did not build
// through this package.
func BalanceFor(entries []Entry, totalAmount float64) Balance {
	sum := 0.0
	for _, entry := range entries {
		sum += entry.Amount
	}

	difference := totalAmount - sum
	balance := Balance{
		CurrentSum: sum,
		Difference: difference,
		IsValid:    mathutil.WithinTolerance(sum, totalAmount, constants.CurrencyTolerance),
	}
	if !balance.IsValid {
		if difference > 0 {
			balance.Label = fmt.Sprintf("falta asignar %.2f", difference)
		} else {
			balance.Label = fmt.Sprintf("sobran %.2f", -difference)
		}
	}
	return balance
}

// CompatibleAccounts filters the account directory down to accounts in the
// distribution's currency.
func (d *Distribution) CompatibleAccounts(accounts []Account) []Account {
	var compatible []Account
	for _, account := range accounts {
		if account.Currency == d.currency {
			compatible = append(compatible, account)
		}
	}
	return compatible
}

// CanAdd reports whether a new entry can be added given the available
// account directory. With no account in the distribution's currency, adding
// is disabled and the caller should surface ErrNoCompatibleAccount.
func (d *Distribution) CanAdd(accounts []Account) error {
	if len(d.CompatibleAccounts(accounts)) == 0 {
		return ErrNoCompatibleAccount
	}
	return nil
}

func (d *Distribution) update(id string, apply func(*Entry)) error {
	for i := range d.entries {
		if d.entries[i].ID == id {
			apply(&d.entries[i])
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

func (d *Distribution) currentSum() float64 {
	sum := 0.0
	for _, entry := range d.entries {
		sum += entry.Amount
	}
	return sum
}
