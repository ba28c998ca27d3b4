package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PaymentMethod represents a checkout payment option
type PaymentMethod string

const (
	PaymentCard      PaymentMethod = "card"
	PaymentApplePay  PaymentMethod = "applepay"
	PaymentGooglePay PaymentMethod = "googlepay"
)

// PaymentMethods lists the selectable options in display order
var PaymentMethods = []PaymentMethod{PaymentCard, PaymentApplePay, PaymentGooglePay}

// Valid reports whether m is one of the supported methods
func (m PaymentMethod) Valid() bool {
	for _, method := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	cnpRegex   = regexp.MustCompile(`^\d{13}$`)
)

// ValidEmail validates email format
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// Buyer holds the purchaser's contact data as entered on the checkout form
type Buyer struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	EmailConfirm string `json:"email_confirm"`
	Phone        string `json:"phone"`
	CNP          string `json:"cnp,omitempty"`
}

// Normalize trims surrounding whitespace from every field
func (b Buyer) Normalize() Buyer {
	return Buyer{
		FirstName:    strings.TrimSpace(b.FirstName),
		LastName:     strings.TrimSpace(b.LastName),
		Email:        strings.TrimSpace(b.Email),
		EmailConfirm: strings.TrimSpace(b.EmailConfirm),
		Phone:        strings.TrimSpace(b.Phone),
		CNP:          strings.TrimSpace(b.CNP),
	}
}

// FullName returns "LastName FirstName", the order used on issued tickets
func (b Buyer) FullName() string {
	return strings.TrimSpace(b.LastName + " " + b.FirstName)
}

// Validate records every missing or malformed buyer field in errs
func (b Buyer) Validate(errs ValidationErrors) {
	if b.FirstName == "" {
		errs.Add("buyer.first_name", "First name is required")
	}
	if b.LastName == "" {
		errs.Add("buyer.last_name", "Last name is required")
	}
	if b.Email == "" {
		errs.Add("buyer.email", "Email is required")
	} else if !ValidEmail(b.Email) {
		errs.Add("buyer.email", "Please enter a valid email address")
	}
	if b.EmailConfirm != "" && b.EmailConfirm != b.Email {
		errs.Add("buyer.email_confirm", "Email addresses do not match")
	}
	if b.Phone == "" {
		errs.Add("buyer.phone", "Phone is required")
	}
	if b.CNP != "" && !cnpRegex.MatchString(b.CNP) {
		errs.Add("buyer.cnp", "CNP must have 13 digits")
	}
}

// BeneficiarySlot names the recipient of one physical ticket
type BeneficiarySlot struct {
	ItemIndex   int    `json:"item_index"`
	TicketIndex int    `json:"ticket_index"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// Key identifies the slot on the checkout form
func (s BeneficiarySlot) Key() string {
	return fmt.Sprintf("beneficiaries.%d.%d", s.ItemIndex, s.TicketIndex)
}

// OrderBuyer is the buyer block of an order submission
type OrderBuyer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CNP       string `json:"cnp,omitempty"`
	Password  string `json:"password,omitempty"`
}

// OrderSubmission is the payload sent to the order endpoint
type OrderSubmission struct {
	Buyer         OrderBuyer        `json:"buyer"`
	Beneficiaries []BeneficiarySlot `json:"beneficiaries"`
	Items         []CartLineItem    `json:"items"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Newsletter    bool              `json:"newsletter"`
	AcceptTerms   bool              `json:"accept_terms"`
	PromoCode     string            `json:"promo_code,omitempty"`
}

// OrderResponse is the order endpoint's reply
type OrderResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    OrderResponseData `json:"data"`
}

// OrderResponseData carries either a payment redirect or a direct confirmation reference
type OrderResponseData struct {
	PaymentURL string `json:"payment_url,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

// ValidationErrors maps a form field to its error messages
type ValidationErrors map[string][]string

// Add appends a message for field
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Empty reports whether no field failed
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(v[field], ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}
