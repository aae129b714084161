package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andinosoft/contaflow/internal/pkg/cache"
	"github.com/andinosoft/contaflow/internal/pkg/database"
)

const (
	reportsGeneratedKey = "reports:counters:generated"
	apiRequestsKey      = "api:counters:requests"
)

// AddReportGenerated increments the pending report counter for a company in Redis
func AddReportGenerated(companyID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(companyID), 10)
	return cache.GetClient().HIncrBy(ctx, reportsGeneratedKey, field, 1).Err()
}

// AddAPIRequest increments the pending API request counter for a company in Redis
func AddAPIRequest(companyID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(companyID), 10)
	return cache.GetClient().HIncrBy(ctx, apiRequestsKey, field, 1).Err()
}

// APIRequestTotals returns the pending per-company API request counts. API
// usage has no database column; it only feeds the admin stats view, so the
// hash is read in place rather than drained.
func APIRequestTotals() (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, apiRequestsKey).Result()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64, len(data))
	for company, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		totals[company] = n
	}
	return totals, nil
}

// FlushAll flushes pending usage counters to the database
func FlushAll() error {
	if err := flushHashToTable(reportsGeneratedKey, "subscriptions", "reports_used", "company_id"); err != nil {
		return err
	}
	return nil
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to a table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column, idColumn string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		// Some Redis libs return redis.Nil; treat as empty
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	// Collect ids and increments; sort ids for stable SQL
	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE <table> SET <col> = <col> + CASE <idCol> WHEN ? THEN ? ... END WHERE <idCol> IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE ")
	builder.WriteString(idColumn)
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE ")
	builder.WriteString(idColumn)
	builder.WriteString(" IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	sql := builder.String()
	db := database.GetDB()
	if err := db.Exec(sql, args...).Error; err != nil {
		return err
	}
	return nil
}
