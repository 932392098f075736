package services

import (
	"context"
	"strings"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// actorRef normalises an actor identifier into a nullable reference.
func actorRef(actorID string) *string {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil
	}
	return &actorID
}

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	_ = audit.Log(ctx, entry)
}
