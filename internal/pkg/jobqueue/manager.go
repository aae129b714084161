package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/andinosoft/contaflow/app/repository"
	metrics "github.com/andinosoft/contaflow/internal/pkg/metrics/counter"
)

// How long a payment may sit in PENDING before the reconcile sweep asks the
// provider about it.
const stalePendingAge = 15 * time.Minute

const reconcileBatchSize = 50

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	reconcileTicker    *time.Ticker
	trialExpiryTicker  *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(5),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Reconcile sweep: stale pending payments are re-read from the provider
	m.reconcileTicker = time.NewTicker(5 * time.Minute)
	m.wg.Add(1)
	go m.reconcileWorker()

	// Trial expiry sweep
	m.trialExpiryTicker = time.NewTicker(time.Hour)
	m.wg.Add(1)
	go m.trialExpiryWorker()

	// Counter flush worker (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.reconcileTicker != nil {
		m.reconcileTicker.Stop()
	}
	if m.trialExpiryTicker != nil {
		m.trialExpiryTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// reconcileWorker enqueues a reconcile job for every payment that has been
// pending longer than the threshold.
func (m *Manager) reconcileWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-m.reconcileTicker.C:
			cutoff := time.Now().Add(-stalePendingAge)
			stale, err := repository.GetGlobalFactory().GetPaymentRepository().ListStalePending(cutoff, reconcileBatchSize)
			if err != nil {
				log.Errorf("[JobQueue Manager] Stale pending scan failed: %v", err)
				continue
			}
			for i := range stale {
				payload := PaymentReconcileJobPayload{
					PaymentID: stale[i].ID,
					Reference: stale[i].Reference,
				}
				if _, err := m.queue.EnqueueJob(JobTypePaymentReconcile, payload.ToMap()); err != nil {
					log.Errorf("[JobQueue Manager] Failed to enqueue reconcile for %s: %v", stale[i].Reference, err)
				}
			}
			if len(stale) > 0 {
				log.Infof("[JobQueue Manager] Enqueued %d reconcile jobs", len(stale))
			}
		}
	}
}

// trialExpiryWorker marks overdue trials as expired.
func (m *Manager) trialExpiryWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-m.trialExpiryTicker.C:
			n, err := repository.GetGlobalFactory().GetSubscriptionRepository().ExpireStaleTrials(time.Now())
			if err != nil {
				log.Errorf("[JobQueue Manager] Trial expiry sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("[JobQueue Manager] Expired %d stale trials", n)
			}
		}
	}
}

// counterFlushWorker periodically flushes usage counters from Redis to the DB.
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush failed: %v", err)
			}
		}
	}
}

// EnqueueWebhookArchive queues an S3 archive job for a stored webhook event.
func EnqueueWebhookArchive(eventID uint) error {
	payload := WebhookArchiveJobPayload{EventID: eventID}
	_, err := GetManager().GetQueue().EnqueueJob(JobTypeWebhookArchive, payload.ToMap())
	return err
}
