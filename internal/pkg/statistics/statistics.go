package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/andinosoft/contaflow/app/models"
	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/cache"
)

const (
	CacheKeyCompaniesTotal    = "statistics:companies:total"
	CacheKeyUsersTotal        = "statistics:users:total"
	CacheKeySubsActive        = "statistics:subscriptions:active"
	CacheKeySubsTrial         = "statistics:subscriptions:trial"
	CacheKeyPaymentsCompleted = "statistics:payments:completed"
	CacheKeyPaymentsPending   = "statistics:payments:pending"
	CacheKeyPaymentsFailed    = "statistics:payments:failed"
	CacheKeyRevenueTotalPesos = "statistics:revenue:total_pesos"
	CacheExpiration           = 30 * time.Minute
)

// Data holds the aggregates shown on the staff dashboard.
type Data struct {
	TotalCompanies      int64 `json:"total_companies"`
	TotalUsers          int64 `json:"total_users"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	TrialSubscriptions  int64 `json:"trial_subscriptions"`
	CompletedPayments   int64 `json:"completed_payments"`
	PendingPayments     int64 `json:"pending_payments"`
	FailedPayments      int64 `json:"failed_payments"`
	TotalRevenuePesos   int64 `json:"total_revenue_pesos"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// UpdateCacheIfNeeded refreshes the cached aggregates when they are stale.
func UpdateCacheIfNeeded() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if time.Since(lastCacheUpdate) <= cacheUpdateInterval {
		return
	}
	if err := UpdateStatisticsCache(); err != nil {
		log.Printf("statistics cache refresh failed: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// UpdateStatisticsCache recomputes all aggregates and writes them to Redis.
func UpdateStatisticsCache() error {
	repos := repository.GetGlobalRepositories()

	totalCompanies, err := repos.Company.Count()
	if err != nil {
		return err
	}
	totalUsers, err := repos.User.Count()
	if err != nil {
		return err
	}
	activeSubs, err := repos.Subscription.CountByStatus(models.SubscriptionStatusActive)
	if err != nil {
		return err
	}
	trialSubs, err := repos.Subscription.CountByStatus(models.SubscriptionStatusTrial)
	if err != nil {
		return err
	}
	completed, err := repos.Payment.CountByStatus(models.PaymentStatusCompleted)
	if err != nil {
		return err
	}
	pending, err := repos.Payment.CountByStatus(models.PaymentStatusPending)
	if err != nil {
		return err
	}
	failed, err := repos.Payment.CountByStatus(models.PaymentStatusFailed)
	if err != nil {
		return err
	}
	revenueCents, err := repos.Payment.SumCompletedAmount()
	if err != nil {
		return err
	}

	pairs := map[string]int64{
		CacheKeyCompaniesTotal:    totalCompanies,
		CacheKeyUsersTotal:        totalUsers,
		CacheKeySubsActive:        activeSubs,
		CacheKeySubsTrial:         trialSubs,
		CacheKeyPaymentsCompleted: completed,
		CacheKeyPaymentsPending:   pending,
		CacheKeyPaymentsFailed:    failed,
		CacheKeyRevenueTotalPesos: revenueCents / 100,
	}
	for key, val := range pairs {
		if err := cache.Set(key, strconv.FormatInt(val, 10), CacheExpiration); err != nil {
			return err
		}
	}
	return nil
}

// GetStatistics returns the cached aggregates, refreshing them when stale.
func GetStatistics() Data {
	UpdateCacheIfNeeded()

	return Data{
		TotalCompanies:      cachedInt64(CacheKeyCompaniesTotal),
		TotalUsers:          cachedInt64(CacheKeyUsersTotal),
		ActiveSubscriptions: cachedInt64(CacheKeySubsActive),
		TrialSubscriptions:  cachedInt64(CacheKeySubsTrial),
		CompletedPayments:   cachedInt64(CacheKeyPaymentsCompleted),
		PendingPayments:     cachedInt64(CacheKeyPaymentsPending),
		FailedPayments:      cachedInt64(CacheKeyPaymentsFailed),
		TotalRevenuePesos:   cachedInt64(CacheKeyRevenueTotalPesos),
	}
}

func cachedInt64(key string) int64 {
	val, err := cache.Get(key)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
