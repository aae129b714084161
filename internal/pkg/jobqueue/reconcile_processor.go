package jobqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/payments"
)

var (
	paymentSvcMu sync.RWMutex
	paymentSvc   *payments.Service
)

// SetPaymentService injects the lifecycle service used by reconcile jobs.
// Must be called before the manager starts.
func SetPaymentService(svc *payments.Service) {
	paymentSvcMu.Lock()
	defer paymentSvcMu.Unlock()
	paymentSvc = svc
}

func getPaymentService() *payments.Service {
	paymentSvcMu.RLock()
	defer paymentSvcMu.RUnlock()
	return paymentSvc
}

// processPaymentReconcileJob re-reads a stale pending payment from the
// provider and applies the resulting transition.
func (q *Queue) processPaymentReconcileJob(ctx context.Context, job *Job) error {
	payload, err := PaymentReconcileJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid payment reconcile payload: %w", err)
	}

	svc := getPaymentService()
	if svc == nil {
		return fmt.Errorf("payment service not configured")
	}

	payment, err := repository.GetGlobalFactory().GetPaymentRepository().GetByID(payload.PaymentID)
	if err != nil {
		return fmt.Errorf("payment %d not found: %w", payload.PaymentID, err)
	}

	return svc.Reconcile(ctx, payment)
}
