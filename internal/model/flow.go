package model

// EntryType tags money movement direction. The Vietnamese short forms
// are the persisted values: Thu is money in, Chi is money out.
type EntryType string

const (
	EntryIncome  EntryType = "Thu"
	EntryExpense EntryType = "Chi"
)

// Valid reports whether t is one of the two known directions.
func (t EntryType) Valid() bool {
	return t == EntryIncome || t == EntryExpense
}

// Sign is +1 for income and -1 for expense, used for balance math.
func (t EntryType) Sign() int64 {
	if t == EntryExpense {
		return -1
	}
	return 1
}
