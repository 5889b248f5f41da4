package core

// MonthlySummary aggregates one month's flows. A loan contributes to the
// month of its own date (LoansGiven, Interest) and, once returned, to the
// month of its return date (LoansReturned).
type MonthlySummary struct {
	Month         string `json:"month"`
	Contributions Amount `json:"contributions"`
	LoansGiven    Amount `json:"loansGiven"`
	LoansReturned Amount `json:"loansReturned"`
	Interest      Amount `json:"interest"`
	Expenses      Amount `json:"expenses"`
}

// Inflow is the value plotted per month on the dashboard chart.
func (s MonthlySummary) Inflow() Amount {
	return s.Contributions.Add(s.LoansReturned).Add(s.Interest)
}

// Borrower counts loan entries per person name.
type Borrower struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Totals is the dashboard row.
type Totals struct {
	Contributions    Amount `json:"totalContributions"`
	Interest         Amount `json:"totalInterest"`
	LoansGiven       Amount `json:"totalLoansGiven"`
	LoansReturned    Amount `json:"totalLoansReturned"`
	Expenses         Amount `json:"totalExpenses"`
	AvailableBalance Amount `json:"availableBalance"`
}
