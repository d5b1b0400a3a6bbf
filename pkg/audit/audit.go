// Package audit is a shared audit-log writer for the lifecycle engine's
// managed-channel actions: every create/update/delete decision the lifecycle
// engine makes is written to the audit_log table, giving a tamper-evident
// trail of why a channel exists or was removed independent of the
// scheduler's own logs. Reconciliation fixes are not audited. Ported from the teacher's pkg/audit (database/sql + subscriber/
// admin/reseller actor types), retargeted to pgx/v5 and to this module's
// actor/action vocabulary:
//
// Actor types: "system" | "scheduler" | "admin"
// Action naming convention: "{resource}.{verb}"
//
//	e.g. "channel.create", "channel.update", "channel.delete"
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogAction inserts a row into the audit_log table. Failures are logged by
// the caller but never propagated — audit writes are best-effort and must
// never block a lifecycle decision.
func LogAction(
	ctx context.Context,
	pool *pgxpool.Pool,
	actorType, actorID, action, resourceType, resourceID string,
	details map[string]interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	var actorUUID, resourceUUID *uuid.UUID
	if actorID != "" {
		if id, err := uuid.Parse(actorID); err == nil {
			actorUUID = &id
		}
	}
	if resourceID != "" {
		if id, err := uuid.Parse(resourceID); err == nil {
			resourceUUID = &id
		}
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO audit_log (
			actor_type, actor_id, action,
			resource_type, resource_id, details
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		actorType, actorUUID, action,
		resourceType, resourceUUID, string(detailsJSON),
	)
	return err
}

// LogActionWithRequest is a convenience wrapper that also captures the
// request's IP address and User-Agent. No code in this module calls it.
func LogActionWithRequest(
	r *http.Request,
	pool *pgxpool.Pool,
	actorType, actorID, action, resourceType, resourceID string,
	details map[string]interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	var actorUUID, resourceUUID *uuid.UUID
	if actorID != "" {
		if id, err := uuid.Parse(actorID); err == nil {
			actorUUID = &id
		}
	}
	if resourceID != "" {
		if id, err := uuid.Parse(resourceID); err == nil {
			resourceUUID = &id
		}
	}

	ip := r.Header.Get("CF-Connecting-IP")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	ua := r.Header.Get("User-Agent")

	_, err = pool.Exec(r.Context(), `
		INSERT INTO audit_log (
			actor_type, actor_id, action,
			resource_type, resource_id, details,
			ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		actorType, actorUUID, action,
		resourceType, resourceUUID, string(detailsJSON),
		ip, ua,
	)
	return err
}

// AuditEntry is one row returned from the audit_log query.
type AuditEntry struct {
	ID           string                 `json:"id"`
	ActorType    string                 `json:"actor_type"`
	ActorID      *string                `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id"`
	Details      map[string]interface{} `json:"details"`
	IPAddress    *string                `json:"ip_address"`
	UserAgent    *string                `json:"user_agent"`
	CreatedAt    string                 `json:"created_at"`
}

// QueryAuditLog fetches paginated audit log entries with optional filters.
// filters keys: "actor_id", "action", "resource_id", "resource_type",
// "date_from" (RFC3339), "date_to" (RFC3339).
func QueryAuditLog(
	ctx context.Context,
	pool *pgxpool.Pool,
	filters map[string]string,
	limit, offset int,
) ([]AuditEntry, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if v, ok := filters["actor_id"]; ok && v != "" {
		where += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, v)
		argIdx++
	}
	if v, ok := filters["action"]; ok && v != "" {
		where += fmt.Sprintf(" AND action ILIKE $%d", argIdx)
		args = append(args, "%"+v+"%")
		argIdx++
	}
	if v, ok := filters["resource_type"]; ok && v != "" {
		where += fmt.Sprintf(" AND resource_type = $%d", argIdx)
		args = append(args, v)
		argIdx++
	}
	if v, ok := filters["resource_id"]; ok && v != "" {
		where += fmt.Sprintf(" AND resource_id = $%d", argIdx)
		args = append(args, v)
		argIdx++
	}
	if v, ok := filters["date_from"]; ok && v != "" {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, v)
		argIdx++
	}
	if v, ok := filters["date_to"]; ok && v != "" {
		where += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, v)
		argIdx++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)
	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log "+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := pool.Query(ctx, `
		SELECT id, actor_type, actor_id, action,
		       resource_type, resource_id, details,
		       ip_address::text, user_agent, created_at
		FROM audit_log
		`+where+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprintf("%d", argIdx)+` OFFSET $`+fmt.Sprintf("%d", argIdx+1),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detailsJSON string
		if err := rows.Scan(
			&e.ID, &e.ActorType, &e.ActorID, &e.Action,
			&e.ResourceType, &e.ResourceID, &detailsJSON,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(detailsJSON), &e.Details)
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, total, rows.Err()
}
