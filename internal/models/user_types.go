package models

import "strings"

// Customer is the slice of the 'users' table shown on orders.
// Fields are nil when the account no longer exists.
type Customer struct {
	FirstName *string `db:"first_name"`
	LastName  *string `db:"last_name"`
	Email     *string `db:"email"`
}

// DisplayName joins first and last name, skipping missing parts.
func (c Customer) DisplayName() string {
	var parts []string
	for _, p := range []*string{c.FirstName, c.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}
