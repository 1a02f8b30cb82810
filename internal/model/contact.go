package model

import "strings"

// Contact is one connection parsed from the network export CSV.
// Contacts carry no intrinsic identifier: a contact's zero-based position in
// the parsed slice is its only correlation key to batch results.
type Contact struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ProfileURL   string `json:"profile_url"`
	EmailAddress string `json:"email_address,omitempty"`
	Company      string `json:"company,omitempty"`
	Position     string `json:"position,omitempty"`
	ConnectedOn  string `json:"connected_on,omitempty"`
}

// FullName joins first and last name, tolerating either being empty.
func (c Contact) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}
