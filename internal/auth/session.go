// Package auth owns the authenticated session: an immutable identity value
// created on login, persisted in the secret store, and destroyed on logout.
// Every remote component holds the Session read-only; only this package
// creates or clears it.
package auth

import "strings"

// Session is the authenticated identity for one tracker account. It is a
// plain value: lifecycle transitions return a new Session instead of
// mutating shared state.
type Session struct {
	Domain       string `yaml:"domain"`
	Email        string `yaml:"email"`
	APIToken     string `yaml:"api_token"`
	DisplayName  string `yaml:"display_name"`
	AccountEmail string `yaml:"account_email"`
	AccountRef   string `yaml:"account_ref"`
}

// Myself is the identity payload the tracker returns for the authenticated
// user. Every field is optional on the wire.
type Myself struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Credentials are the user-supplied inputs to a login attempt, before the
// tracker has confirmed them.
type Credentials struct {
	Domain   string
	Email    string
	APIToken string
}

// SessionFromMyself builds the full Session for confirmed credentials,
// filling identity fields from the myself payload. The account email falls
// back to the login email when the tracker hides it.
func SessionFromMyself(creds Credentials, me Myself) Session {
	email := strings.TrimSpace(creds.Email)

	accountEmail := me.EmailAddress
	if accountEmail == "" {
		accountEmail = email
	}

	return Session{
		Domain:       strings.TrimSpace(creds.Domain),
		Email:        email,
		APIToken:     strings.TrimSpace(creds.APIToken),
		DisplayName:  me.DisplayName,
		AccountEmail: accountEmail,
		AccountRef:   me.AccountID,
	}
}
