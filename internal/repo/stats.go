// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// TicketsStats returns aggregate metadata for the ticket table: the total
// number of rows and the greatest updated_at value among those rows.
//
// Because updated_at is a TEXT column in the fixed ISO-8601 layout,
// lexicographic MAX ordering coincides with chronological ordering, so a
// simple ORDER BY ... LIMIT 1 suffices. When the table is empty, the returned
// count is 0 and maxUpdatedAt is "".
//
// Return values:
//   - count:        total tickets (optionally filtered by status)
//   - maxUpdatedAt: the greatest updated_at string, or "" if no rows
//   - err:          database error, if any
func TicketsStats(ctx context.Context, db *gorm.DB, status string) (count int64, maxUpdatedAt string, err error) {
	count, err = CountTickets(ctx, db, status)
	if err != nil {
		return 0, "", err
	}
	if count == 0 {
		return 0, "", nil
	}

	var row struct {
		UpdatedAt string
	}
	q := db.WithContext(ctx).Table("support_tickets").Select("updated_at")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err = q.Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, "", err
	}
	return count, row.UpdatedAt, nil
}
