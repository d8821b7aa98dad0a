package services

import (
	"context"
	"time"

	"emiho-marketplace/internal/models"
	"emiho-marketplace/pkg/logging"

	"github.com/google/uuid"
)

// Outcome says what handling a confirmation did
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeIgnored   Outcome = "ignored"
)

const receiptTimeout = 2 * time.Minute

// PurchaseRecord is everything needed to write one sale
type PurchaseRecord struct {
	PaymentReference string
	SessionID        string
	ProductID        uuid.UUID
	SellerID         uuid.UUID
	BuyerID          uuid.UUID
	BuyerEmail       string
	AmountTotal      int64
	Currency         string
	Status           models.TransactionStatus
}

// Reconciler turns settled payments into transaction rows, at most one per
// payment reference however often the payment is reported.
type Reconciler struct {
	store    Store
	guard    ReplayGuard
	notifier ReceiptNotifier
}

// NewReconciler creates a reconciler; guard and notifier may be nil
func NewReconciler(store Store, guard ReplayGuard, notifier ReceiptNotifier) *Reconciler {
	return &Reconciler{
		store:    store,
		guard:    guard,
		notifier: notifier,
	}
}

// HandleEvent applies a verified confirmation event. Events that can never
// be applied (unknown type, missing metadata, unknown buyer, product or
// seller) return a nil
// error so the processor stops redelivering them; only storage failures are
// returned, as PersistenceError, to trigger redelivery.
func (r *Reconciler) HandleEvent(ctx context.Context, event *models.PaymentEvent) (Outcome, error) {
	if event == nil || event.Kind == models.EventIgnored {
		if event != nil {
			logging.Infof("Ignoring payment event - id: %s, type: %s", event.ID, event.Type)
		}
		return OutcomeIgnored, nil
	}

	if r.guard != nil && r.guard.Seen(ctx, event.ID) {
		return OutcomeDuplicate, nil
	}

	logging.Infof("Processing payment event - id: %s, type: %s, session: %s, amount: %d",
		event.ID, event.Type, event.SessionID, event.AmountTotal)

	pc, ok := models.PurchaseContextFromMetadata(event.Metadata)
	if !ok {
		logging.Warnf("Missing required metadata in session %s (event %s), acknowledging without a transaction",
			event.SessionID, event.ID)
		return OutcomeSkipped, nil
	}

	productID, perr := uuid.Parse(pc.ProductID)
	sellerID, serr := uuid.Parse(pc.SellerID)
	if perr != nil || serr != nil {
		logging.Warnf("Malformed metadata ids in session %s (event %s): product=%q seller=%q",
			event.SessionID, event.ID, pc.ProductID, pc.SellerID)
		return OutcomeSkipped, nil
	}

	buyer, err := r.store.GetProfileByEmail(ctx, pc.BuyerEmail)
	if err != nil {
		if isNotFound(err) {
			logging.Warnf("Buyer profile not found for %s (event %s), acknowledging without a transaction",
				pc.BuyerEmail, event.ID)
			return OutcomeSkipped, nil
		}
		return "", persistence("failed to load buyer profile", err)
	}

	if _, err := r.store.GetProduct(ctx, productID); err != nil {
		if isNotFound(err) {
			logging.Warnf("Product %s not found (event %s), acknowledging without a transaction", productID, event.ID)
			return OutcomeSkipped, nil
		}
		return "", persistence("failed to load product", err)
	}
	if _, err := r.store.GetProfile(ctx, sellerID); err != nil {
		if isNotFound(err) {
			logging.Warnf("Seller profile %s not found (event %s), acknowledging without a transaction", sellerID, event.ID)
			return OutcomeSkipped, nil
		}
		return "", persistence("failed to load seller profile", err)
	}

	outcome, err := r.RecordPurchase(ctx, PurchaseRecord{
		PaymentReference: event.PaymentReference,
		SessionID:        event.SessionID,
		ProductID:        productID,
		SellerID:         sellerID,
		BuyerID:          buyer.ID,
		BuyerEmail:       pc.BuyerEmail,
		AmountTotal:      event.AmountTotal,
		Currency:         event.Currency,
		Status:           statusForKind(event.Kind),
	})
	if err != nil {
		return "", err
	}

	if r.guard != nil {
		r.guard.Remember(ctx, event.ID)
	}
	return outcome, nil
}

func statusForKind(kind models.EventKind) models.TransactionStatus {
	switch kind {
	case models.EventPaymentCompleted:
		return models.TransactionCompleted
	case models.EventPaymentFailed:
		return models.TransactionFailed
	default:
		return models.TransactionPending
	}
}

// RecordPurchase writes the sale unless its payment reference is already
// recorded. The split is computed from the settled amount, not the current
// listing price. An existing pending row is moved forward when rec carries
// a final status.
func (r *Reconciler) RecordPurchase(ctx context.Context, rec PurchaseRecord) (Outcome, error) {
	if rec.PaymentReference == "" {
		return "", invalidRequest("payment reference is required")
	}

	outcome, found, err := r.applyToExisting(ctx, rec)
	if err != nil || found {
		return outcome, err
	}

	split := SplitMinor(rec.AmountTotal)
	transaction := &models.Transaction{
		ProductID:                rec.ProductID,
		BuyerID:                  rec.BuyerID,
		SellerID:                 rec.SellerID,
		ExternalPaymentReference: rec.PaymentReference,
		CheckoutSessionID:        rec.SessionID,
		TotalAmount:              split.TotalDecimal(),
		PlatformFee:              split.FeeDecimal(),
		SellerAmount:             split.SellerDecimal(),
		Currency:                 rec.Currency,
		Status:                   rec.Status,
		BuyerEmail:               rec.BuyerEmail,
	}

	inserted, err := r.store.InsertTransactionIfAbsent(ctx, transaction)
	if err != nil {
		logging.Errorf("Error inserting transaction for payment %s: %v", rec.PaymentReference, err)
		return "", persistence("failed to record transaction", err)
	}
	if !inserted {
		// A concurrent delivery won the insert.
		outcome, _, err := r.applyToExisting(ctx, rec)
		if err != nil {
			return "", err
		}
		return outcome, nil
	}

	logging.Infof("Transaction created - id: %s, payment: %s, status: %s, total: %s",
		transaction.ID, rec.PaymentReference, transaction.Status, transaction.TotalAmount.StringFixed(2))

	if transaction.Status == models.TransactionCompleted {
		r.sendReceiptAsync(rec.PaymentReference)
	}
	return OutcomeRecorded, nil
}

// applyToExisting handles a payment reference that already has a row.
// found is false when there is no row yet.
func (r *Reconciler) applyToExisting(ctx context.Context, rec PurchaseRecord) (Outcome, bool, error) {
	existing, err := r.store.FindTransactionByReference(ctx, rec.PaymentReference)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, persistence("failed to check existing transaction", err)
	}

	if existing.Status.CanTransitionTo(rec.Status) {
		moved, err := r.store.TransitionTransaction(ctx, rec.PaymentReference, existing.Status, rec.Status)
		if err != nil {
			return "", true, persistence("failed to update transaction status", err)
		}
		if moved {
			logging.Infof("Transaction %s moved %s -> %s", rec.PaymentReference, existing.Status, rec.Status)
			if rec.Status == models.TransactionCompleted {
				r.sendReceiptAsync(rec.PaymentReference)
			}
			return OutcomeUpdated, true, nil
		}
	}

	logging.Infof("Transaction already exists for payment %s, skipping insert", rec.PaymentReference)
	return OutcomeDuplicate, true, nil
}

func (r *Reconciler) sendReceiptAsync(reference string) {
	if r.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), receiptTimeout)
		defer cancel()
		if err := r.sendReceipt(ctx, reference); err != nil {
			logging.Errorf("Receipt for payment %s not delivered: %v", reference, err)
		}
	}()
}

func (r *Reconciler) sendReceipt(ctx context.Context, reference string) error {
	transaction, err := r.store.FindTransactionByReference(ctx, reference)
	if err != nil {
		return err
	}
	title := "your purchase"
	if product, err := r.store.GetProduct(ctx, transaction.ProductID); err == nil {
		title = product.Title
	}
	return r.notifier.SendReceipt(ctx, Receipt{
		BuyerEmail:       transaction.BuyerEmail,
		ProductTitle:     title,
		Total:            transaction.TotalAmount,
		Currency:         transaction.Currency,
		PaymentReference: reference,
	})
}
