package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/utils"
)

// DefaultConfirmationPath is prefixed to the order reference when no payment redirect is returned
const DefaultConfirmationPath = "/multumim?order="

const (
	submitFailedMessage    = "We could not process your order. Please try again."
	orderNotCreatedMessage = "The order could not be created"
)

// SubmitResult tells the caller where to send the browser after a placed order
type SubmitResult struct {
	RedirectURL string `json:"redirect_url"`
	PaymentURL  string `json:"payment_url,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// CheckoutView is the checkout form state
type CheckoutView struct {
	Items            []CartItemView           `json:"items"`
	Summary          *SummaryView             `json:"summary"`
	Promo            *PromoView               `json:"promo"`
	Timer            *TimerView               `json:"timer"`
	Buyer            models.Buyer             `json:"buyer"`
	SameBeneficiary  bool                     `json:"same_beneficiary"`
	Beneficiaries    []models.BeneficiarySlot `json:"beneficiaries"`
	TicketCount      int                      `json:"ticket_count"`
	PaymentMethod    models.PaymentMethod     `json:"payment_method"`
	PaymentMethods   []models.PaymentMethod   `json:"payment_methods"`
	TermsAccepted    bool                     `json:"terms_accepted"`
	Newsletter       bool                     `json:"newsletter"`
	CreateAccount    bool                     `json:"create_account"`
	CanSubmit        bool                     `json:"can_submit"`
	Busy             bool                     `json:"busy"`
	FormattedPayable string                   `json:"formatted_payable"`
}

// ExpandBeneficiaries emits one slot per physical ticket, ordered by line then unit
func ExpandBeneficiaries(items []models.CartLineItem) []models.BeneficiarySlot {
	slots := make([]models.BeneficiarySlot, 0, models.TicketCount(items))
	for itemIndex, item := range items {
		for ticketIndex := 0; ticketIndex < item.Quantity; ticketIndex++ {
			slots = append(slots, models.BeneficiarySlot{ItemIndex: itemIndex, TicketIndex: ticketIndex})
		}
	}
	return slots
}

// CheckoutPage aggregates the cart and the buyer's form input into an order
type CheckoutPage struct {
	mu               sync.Mutex
	cart             *CartStore
	timer            *ReservationTimer
	orders           OrderSubmitter
	notifier         Notifier
	logger           *zap.Logger
	confirmationPath string

	items           []models.CartLineItem
	buyer           models.Buyer
	sameBeneficiary bool
	slots           []models.BeneficiarySlot
	paymentMethod   models.PaymentMethod
	termsAccepted   bool
	newsletter      bool
	createAccount   bool
	busy            bool
}

// NewCheckoutPage creates a checkout form with the defaults: same beneficiary, card payment
func NewCheckoutPage(cart *CartStore, timer *ReservationTimer, orders OrderSubmitter, notifier Notifier,
	logger *zap.Logger, confirmationPath string) *CheckoutPage {
	if confirmationPath == "" {
		confirmationPath = DefaultConfirmationPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutPage{
		cart:             cart,
		timer:            timer,
		orders:           orders,
		notifier:         notifier,
		logger:           logger,
		confirmationPath: confirmationPath,
		sameBeneficiary:  true,
		paymentMethod:    models.PaymentCard,
	}
}

// Init loads the cart into the form. prefill fills buyer fields that are still blank.
func (p *CheckoutPage) Init(prefill *models.Buyer) (CheckoutView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.cart.GetItems()
	if len(items) == 0 {
		p.items = nil
		p.slots = nil
		return CheckoutView{}, models.ErrCartEmpty
	}

	p.timer.Init()
	if prefill != nil {
		p.buyer = fillBlank(p.buyer, prefill.Normalize())
	}
	p.loadItemsLocked(items)
	return p.viewLocked(), nil
}

// View returns the current form state without reloading the cart
func (p *CheckoutPage) View() CheckoutView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// SetBuyer replaces the buyer's contact data
func (p *CheckoutPage) SetBuyer(buyer models.Buyer) CheckoutView {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buyer = buyer.Normalize()
	if p.sameBeneficiary {
		p.mirrorBuyerLocked()
	}
	return p.viewLocked()
}

// ToggleBeneficiaries switches between buyer-mirrored and individually named tickets
func (p *CheckoutPage) ToggleBeneficiaries(same bool) CheckoutView {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sameBeneficiary = same
	if same {
		p.mirrorBuyerLocked()
	} else {
		for idx := range p.slots {
			p.slots[idx].Name = ""
			p.slots[idx].Email = ""
		}
	}
	return p.viewLocked()
}

// SetBeneficiary names the holder of one ticket
func (p *CheckoutPage) SetBeneficiary(itemIndex, ticketIndex int, name, email string) (CheckoutView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sameBeneficiary {
		return p.viewLocked(), models.ErrBeneficiaryLocked
	}
	for idx := range p.slots {
		if p.slots[idx].ItemIndex == itemIndex && p.slots[idx].TicketIndex == ticketIndex {
			p.slots[idx].Name = strings.TrimSpace(name)
			p.slots[idx].Email = strings.TrimSpace(email)
			return p.viewLocked(), nil
		}
	}
	return p.viewLocked(), fmt.Errorf("%w: ticket %d of line %d", models.ErrItemNotFound, ticketIndex, itemIndex)
}

// SelectPaymentMethod picks one of the supported methods
func (p *CheckoutPage) SelectPaymentMethod(method models.PaymentMethod) (CheckoutView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !method.Valid() {
		return p.viewLocked(), fmt.Errorf("%w: %q", models.ErrInvalidPaymentMethod, method)
	}
	p.paymentMethod = method
	return p.viewLocked(), nil
}

// AcceptTerms records the terms checkbox
func (p *CheckoutPage) AcceptTerms(accepted bool) CheckoutView {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.termsAccepted = accepted
	return p.viewLocked()
}

// SetNewsletter records the newsletter opt-in
func (p *CheckoutPage) SetNewsletter(optIn bool) CheckoutView {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newsletter = optIn
	return p.viewLocked()
}

// SetCreateAccount asks the backend to open an account for the buyer
func (p *CheckoutPage) SetCreateAccount(create bool) CheckoutView {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createAccount = create
	return p.viewLocked()
}

// CanSubmit reports whether the submit control is enabled
func (p *CheckoutPage) CanSubmit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.termsAccepted && !p.busy
}

// Validate checks the form and returns every failing field
func (p *CheckoutPage) Validate() models.ValidationErrors {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validateLocked()
}

// Summary prices the loaded cart with the applied promo
func (p *CheckoutPage) Summary() models.PriceSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SummaryWithPromo(p.items, p.cart.GetPromo())
}

// Submit places the order. On success the cart and countdown are cleared;
// on failure they are left intact so the shopper can retry.
func (p *CheckoutPage) Submit(ctx context.Context) (SubmitResult, error) {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return SubmitResult{}, models.ErrSubmitInProgress
	}

	items := p.cart.GetItems()
	if len(items) == 0 {
		p.mu.Unlock()
		p.notifier.Error("Your cart is empty")
		return SubmitResult{}, models.ErrCartEmpty
	}
	p.loadItemsLocked(items)

	if !p.termsAccepted {
		p.mu.Unlock()
		return SubmitResult{}, models.ErrTermsNotAccepted
	}
	if errs := p.validateLocked(); !errs.Empty() {
		p.mu.Unlock()
		return SubmitResult{}, errs
	}

	submission, err := p.buildSubmissionLocked(items)
	if err != nil {
		p.mu.Unlock()
		return SubmitResult{}, err
	}
	p.busy = true
	p.mu.Unlock()

	resp, err := p.orders.SubmitOrder(ctx, submission)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = false

	if err != nil {
		return SubmitResult{}, p.failLocked(fmt.Errorf("failed to submit order: %w", err), submitFailedMessage)
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = submitFailedMessage
		}
		return SubmitResult{}, p.failLocked(fmt.Errorf("%w: %s", models.ErrOrderRejected, message), message)
	}

	result := SubmitResult{PaymentURL: resp.Data.PaymentURL, Reference: resp.Data.Reference}
	switch {
	case resp.Data.PaymentURL != "":
		result.RedirectURL = resp.Data.PaymentURL
	case resp.Data.Reference != "":
		result.RedirectURL = p.confirmationPath + url.QueryEscape(resp.Data.Reference)
	default:
		return SubmitResult{}, p.failLocked(
			fmt.Errorf("%w: %s", models.ErrOrderRejected, orderNotCreatedMessage),
			orderNotCreatedMessage,
		)
	}

	if err := p.cart.Clear(); err != nil {
		p.logger.Error("failed to clear cart after order", zap.Error(err))
	}
	p.timer.Release()
	p.items = nil
	p.slots = nil
	p.termsAccepted = false

	p.logger.Info("order placed",
		zap.String("payment_method", string(submission.PaymentMethod)),
		zap.Int("tickets", len(submission.Beneficiaries)),
		zap.Bool("payment_redirect", result.PaymentURL != ""),
		zap.String("reference", result.Reference),
	)
	p.notifier.Success("Your order has been registered")
	return result, nil
}

func (p *CheckoutPage) failLocked(err error, message string) error {
	p.logger.Error("order submission failed", zap.Error(err))
	p.notifier.Error(message)
	return err
}

func (p *CheckoutPage) buildSubmissionLocked(items []models.CartLineItem) (*models.OrderSubmission, error) {
	if p.sameBeneficiary {
		p.mirrorBuyerLocked()
	}

	buyer := models.OrderBuyer{
		FirstName: p.buyer.FirstName,
		LastName:  p.buyer.LastName,
		Name:      p.buyer.FullName(),
		Email:     p.buyer.Email,
		Phone:     p.buyer.Phone,
		CNP:       p.buyer.CNP,
	}
	if p.createAccount {
		password, err := utils.GeneratePassword(utils.AccountPasswordLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate account password: %w", err)
		}
		buyer.Password = password
	}

	submission := &models.OrderSubmission{
		Buyer:         buyer,
		Beneficiaries: append([]models.BeneficiarySlot(nil), p.slots...),
		Items:         models.CloneItems(items),
		PaymentMethod: p.paymentMethod,
		Newsletter:    p.newsletter,
		AcceptTerms:   p.termsAccepted,
	}
	if promo := p.cart.GetPromo(); promo != nil {
		submission.PromoCode = promo.Code
	}
	return submission, nil
}

func (p *CheckoutPage) validateLocked() models.ValidationErrors {
	errs := models.ValidationErrors{}
	p.buyer.Validate(errs)

	if !p.sameBeneficiary {
		for _, slot := range p.slots {
			if slot.Name == "" {
				errs.Add(slot.Key()+".name", "Beneficiary name is required")
			}
			if slot.Email == "" {
				errs.Add(slot.Key()+".email", "Beneficiary email is required")
			} else if !models.ValidEmail(slot.Email) {
				errs.Add(slot.Key()+".email", "Please enter a valid email address")
			}
		}
	}
	return errs
}

// loadItemsLocked re-expands the slots for items, keeping names already entered
func (p *CheckoutPage) loadItemsLocked(items []models.CartLineItem) {
	p.items = items

	previous := make(map[string]models.BeneficiarySlot, len(p.slots))
	for _, slot := range p.slots {
		previous[slot.Key()] = slot
	}

	slots := ExpandBeneficiaries(items)
	for idx := range slots {
		if old, ok := previous[slots[idx].Key()]; ok {
			slots[idx].Name = old.Name
			slots[idx].Email = old.Email
		}
	}
	p.slots = slots

	if p.sameBeneficiary {
		p.mirrorBuyerLocked()
	}
}

func (p *CheckoutPage) mirrorBuyerLocked() {
	name := p.buyer.FullName()
	for idx := range p.slots {
		p.slots[idx].Name = name
		p.slots[idx].Email = p.buyer.Email
	}
}

func (p *CheckoutPage) viewLocked() CheckoutView {
	items := make([]CartItemView, len(p.items))
	for idx, item := range p.items {
		items[idx] = newCartItemView(idx, item)
	}

	promo := p.cart.GetPromo()
	summary := SummaryWithPromo(p.items, promo)
	slots := append([]models.BeneficiarySlot{}, p.slots...)

	return CheckoutView{
		Items:            items,
		Summary:          newSummaryView(summary),
		Promo:            newPromoView(promo),
		Timer:            newTimerView(p.timer),
		Buyer:            p.buyer,
		SameBeneficiary:  p.sameBeneficiary,
		Beneficiaries:    slots,
		TicketCount:      models.TicketCount(p.items),
		PaymentMethod:    p.paymentMethod,
		PaymentMethods:   models.PaymentMethods,
		TermsAccepted:    p.termsAccepted,
		Newsletter:       p.newsletter,
		CreateAccount:    p.createAccount,
		CanSubmit:        p.termsAccepted && !p.busy,
		Busy:             p.busy,
		FormattedPayable: utils.FormatCurrency(summary.Total),
	}
}

func fillBlank(current, prefill models.Buyer) models.Buyer {
	if current.FirstName == "" {
		current.FirstName = prefill.FirstName
	}
	if current.LastName == "" {
		current.LastName = prefill.LastName
	}
	if current.Email == "" {
		current.Email = prefill.Email
	}
	if current.EmailConfirm == "" {
		current.EmailConfirm = prefill.EmailConfirm
	}
	if current.Phone == "" {
		current.Phone = prefill.Phone
	}
	if current.CNP == "" {
		current.CNP = prefill.CNP
	}
	return current
}
