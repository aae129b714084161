package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/plans"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderClient is the slice of the Wompi client the lifecycle service
// depends on; tests substitute a fake.
type ProviderClient interface {
	GetAcceptanceToken(ctx context.Context) (string, error)
	CreateTransaction(ctx context.Context, req wompi.TransactionRequest) (*wompi.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*wompi.Transaction, error)
	Config() *wompi.Config
}

// Service orchestrates the payment lifecycle: create-pending, update-status
// and complete-and-activate. The store is the single source of truth; the
// service never retries provider calls on its own.
type Service struct {
	db       *gorm.DB
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	provider ProviderClient
	now      func() time.Time
}

// NewService creates a lifecycle service from injected dependencies.
func NewService(db *gorm.DB, repos *repository.Repositories, provider ProviderClient) *Service {
	return &Service{
		db:       db,
		payments: repos.Payment,
		subs:     repos.Subscription,
		provider: provider,
		now:      time.Now,
	}
}

const referencePrefix = "CFLOW"

// InitiateInput carries a checkout request into the lifecycle service.
type InitiateInput struct {
	PlanID        string
	BillingCycle  string
	Amount        int64 // COP pesos; 0 means "use the catalog price"
	Currency      string
	PaymentMethod string
	CustomerEmail string
	CustomerName  string
	LegalID       string
	LegalIDType   string
	RedirectURL   string
}

// Checkout is what the client needs to continue the provider flow. The URL
// is nil for synchronous payment methods.
type Checkout struct {
	Reference             string  `json:"reference"`
	ProviderTransactionID string  `json:"provider_transaction_id"`
	CheckoutURL           *string `json:"checkout_url"`
}

// Initiate persists a PENDING payment, then creates the remote transaction
// and attaches the provider result. The row is written before the provider
// call so a slow or failed call leaves an inspectable PENDING record with no
// provider id rather than losing the attempt. A provider failure is returned
// together with the already-persisted payment.
func (s *Service) Initiate(ctx context.Context, companyID uint, in InitiateInput) (*models.Payment, *Checkout, error) {
	if companyID == 0 {
		return nil, nil, NewValidationError("company id is required")
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		return nil, nil, NewValidationError("customer email is required")
	}

	plan, ok := plans.ByID(in.PlanID)
	if !ok {
		return nil, nil, NewValidationError("unknown plan %q", in.PlanID)
	}
	cycle := plans.NormalizeCycle(in.BillingCycle)

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "COP"
	}

	amount := in.Amount
	if amount == 0 {
		amount = plan.Price(cycle)
	}
	if amount <= 0 {
		return nil, nil, NewValidationError("amount must be positive")
	}

	// Tax only applies to the local tax-bearing currency; other currencies
	// pass through unchanged.
	subtotal := amount
	var iva, total int64
	if currency == "COP" {
		iva = wompi.CalculateIVA(subtotal, wompi.IVARate)
		total = wompi.CalculateTotalWithIVA(subtotal, wompi.IVARate)
	} else {
		total = subtotal
	}

	amountInCents := total
	if currency == "COP" {
		amountInCents = wompi.FormatCOPAmount(total)
	}

	reference := wompi.GenerateReference(referencePrefix)

	meta := map[string]interface{}{
		"plan_id":       plan.ID,
		"billing_cycle": cycle,
		"subtotal":      subtotal,
		"iva":           iva,
		"iva_rate":      wompi.IVARate,
		"total":         total,
		"reference":     reference,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, nil, err
	}

	payment := &models.Payment{
		CompanyID:     companyID,
		Reference:     reference,
		Provider:      models.PaymentProviderWompi,
		Status:        models.PaymentStatusPending,
		AmountInCents: amountInCents,
		Currency:      currency,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Metadata:      datatypes.JSON(metaJSON),
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, nil, err
	}

	acceptance, err := s.provider.GetAcceptanceToken(ctx)
	if err != nil {
		return payment, nil, fmt.Errorf("payment %d persisted but provider call failed: %w", payment.ID, err)
	}

	cfg := s.provider.Config()
	req := wompi.TransactionRequest{
		AmountInCents:   amountInCents,
		Currency:        currency,
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		Reference:       reference,
		Signature:       wompi.TransactionIntegrity(reference, amountInCents, currency, cfg.IntegritySecret),
		AcceptanceToken: acceptance,
		RedirectURL:     firstNonEmpty(in.RedirectURL, cfg.RedirectURL),
	}
	if in.PaymentMethod != "" {
		req.PaymentMethod = &wompi.PaymentMethod{Type: in.PaymentMethod}
	}
	if in.CustomerName != "" || in.LegalID != "" {
		req.CustomerData = &wompi.CustomerData{
			FullName:    in.CustomerName,
			LegalID:     in.LegalID,
			LegalIDType: in.LegalIDType,
		}
	}

	tx, err := s.provider.CreateTransaction(ctx, req)
	if err != nil {
		return payment, nil, fmt.Errorf("payment %d persisted but provider call failed: %w", payment.ID, err)
	}

	meta["provider_response"] = json.RawMessage(tx.RawJSON)
	metaJSON, err = json.Marshal(meta)
	if err != nil {
		return payment, nil, err
	}
	if err := s.payments.AttachProviderResult(payment.ID, tx.ID, datatypes.JSON(metaJSON)); err != nil {
		return payment, nil, err
	}
	payment.ProviderTransactionID = tx.ID
	payment.Metadata = datatypes.JSON(metaJSON)

	return payment, &Checkout{
		Reference:             reference,
		ProviderTransactionID: tx.ID,
		CheckoutURL:           tx.CheckoutURL,
	}, nil
}

// UpdateStatusOptions are the optional fields a status update may carry.
type UpdateStatusOptions struct {
	ProviderTransactionID string
	PaymentMethod         string
	FailureReason         string
}

// UpdateStatus moves a payment to FAILED or CANCELED. COMPLETED is refused
// here so subscription activation can never be skipped; callers must use
// Complete. Repeating the stored status is a no-op; a different terminal
// status is a conflict.
func (s *Service) UpdateStatus(ctx context.Context, reference, newStatus string, opts UpdateStatusOptions) (*models.Payment, error) {
	_ = ctx
	if !models.IsValidPaymentStatus(newStatus) {
		return nil, NewValidationError("invalid payment status %q", newStatus)
	}
	if newStatus == models.PaymentStatusCompleted {
		return nil, NewValidationError("COMPLETED transitions must go through Complete")
	}
	if newStatus == models.PaymentStatusPending {
		return nil, NewValidationError("a payment cannot be reset to PENDING")
	}

	payment, err := s.payments.GetByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if payment.Status == newStatus {
		return payment, nil
	}
	if payment.IsTerminal() {
		return nil, &ConflictError{
			Reference:       reference,
			CurrentStatus:   payment.Status,
			AttemptedStatus: newStatus,
		}
	}

	now := s.now()
	fields := map[string]interface{}{
		"status":    newStatus,
		"failed_at": &now,
	}
	if opts.FailureReason != "" {
		fields["failure_reason"] = opts.FailureReason
	}
	if opts.PaymentMethod != "" {
		fields["payment_method"] = opts.PaymentMethod
	}
	if opts.ProviderTransactionID != "" {
		fields["provider_transaction_id"] = opts.ProviderTransactionID
	}

	updated, err := s.payments.UpdateByReference(reference, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Complete marks a payment COMPLETED and activates the owning company's
// subscription, as one atomic unit. The first write is conditional on the
// row still being PENDING, so under concurrent duplicate invocation exactly
// one caller applies the activation; the others re-read inside the same
// transaction and return the already-completed pair unchanged.
func (s *Service) Complete(ctx context.Context, reference, providerTransactionID string) (*models.Payment, *models.Subscription, error) {
	_ = ctx
	var (
		outPayment *models.Payment
		outSub     *models.Subscription
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		fields := map[string]interface{}{
			"status":  models.PaymentStatusCompleted,
			"paid_at": &now,
		}
		if providerTransactionID != "" {
			fields["provider_transaction_id"] = providerTransactionID
		}

		rows, err := s.payments.CompletePending(tx, reference, fields)
		if err != nil {
			return err
		}

		payment, err := s.payments.GetByReferenceTx(tx, reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if rows == 0 {
			// Lost the conditional update: either a duplicate delivery of an
			// already-completed payment (idempotent success) or a conflicting
			// terminal state (reject).
			if payment.Status == models.PaymentStatusCompleted {
				sub, err := s.subs.GetByCompanyIDTx(tx, payment.CompanyID)
				if err != nil {
					return err
				}
				outPayment, outSub = payment, sub
				return nil
			}
			return &ConflictError{
				Reference:       reference,
				CurrentStatus:   payment.Status,
				AttemptedStatus: models.PaymentStatusCompleted,
			}
		}

		sub, err := s.subs.GetByCompanyIDTx(tx, payment.CompanyID)
		if err != nil {
			return err
		}
		s.activate(sub, payment, now)
		if err := s.subs.SaveTx(tx, sub); err != nil {
			return err
		}

		outPayment, outSub = payment, sub
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outPayment, outSub, nil
}

// activate applies the completion side effect: the subscription becomes
// ACTIVE, the current period extends by one billing cycle from whichever is
// later (now or the previous period end), and any trial state is cleared.
func (s *Service) activate(sub *models.Subscription, payment *models.Payment, now time.Time) {
	planID, cycle := planInfoFromMetadata(payment.Metadata)
	if planID != "" {
		sub.Plan = planID
		if plan, ok := plans.ByID(planID); ok {
			sub.ReportsLimit = plan.ReportLimit
		}
	}
	if cycle != "" {
		sub.BillingCycle = cycle
	}

	base := now
	if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
		base = *sub.CurrentPeriodEnd
	}
	end := plans.ExtendPeriod(base, sub.BillingCycle)

	if sub.CurrentPeriodStart == nil {
		start := now
		sub.CurrentPeriodStart = &start
	}
	sub.CurrentPeriodEnd = &end
	sub.Status = models.SubscriptionStatusActive
	sub.TrialEndsAt = nil
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil
}

// GetByReference is the read-only projection used by client polling.
func (s *Service) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	_ = ctx
	payment, err := s.payments.GetByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// Reconcile polls the provider for a PENDING payment and applies the same
// transitions the webhook path would. Payments without a provider id are
// left for manual review; the remote side may never have seen them.
func (s *Service) Reconcile(ctx context.Context, payment *models.Payment) error {
	if payment.Status != models.PaymentStatusPending {
		return nil
	}
	if payment.ProviderTransactionID == "" {
		return nil
	}

	tx, err := s.provider.GetTransaction(ctx, payment.ProviderTransactionID)
	if err != nil {
		return err
	}

	switch tx.Status {
	case wompi.TxStatusApproved:
		_, _, err := s.Complete(ctx, payment.Reference, tx.ID)
		return err
	case wompi.TxStatusDeclined, wompi.TxStatusError:
		_, err := s.UpdateStatus(ctx, payment.Reference, models.PaymentStatusFailed, UpdateStatusOptions{
			ProviderTransactionID: tx.ID,
			FailureReason:         tx.StatusMessage,
		})
		return err
	case wompi.TxStatusVoided:
		_, err := s.UpdateStatus(ctx, payment.Reference, models.PaymentStatusCanceled, UpdateStatusOptions{
			ProviderTransactionID: tx.ID,
			FailureReason:         tx.StatusMessage,
		})
		return err
	default:
		return nil
	}
}

func planInfoFromMetadata(meta datatypes.JSON) (planID, cycle string) {
	if len(meta) == 0 {
		return "", ""
	}
	var parsed struct {
		PlanID       string `json:"plan_id"`
		BillingCycle string `json:"billing_cycle"`
	}
	if err := json.Unmarshal(meta, &parsed); err != nil {
		return "", ""
	}
	return parsed.PlanID, parsed.BillingCycle
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
