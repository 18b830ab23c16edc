// Package worker runs background maintenance for the engine.
package worker

import (
	"context"
	"errors"
	"time"

	"skillstreak/service"

	log "github.com/sirupsen/logrus"
)

// Audit results as recorded in metrics
const (
	AuditOK        = "ok"
	AuditViolation = "violation"
	AuditError     = "error"
)

// VaultVerifier checks that the staking vault holds exactly the sum of deposits
type VaultVerifier interface {
	VerifyVaultConservation(ctx context.Context) error
}

// AuditRecorder receives the result of every audit
type AuditRecorder interface {
	RecordConservationCheck(status string)
}

// ConservationAuditor periodically re-checks the vault invariant. It only
// reads; a violation is logged and counted, never repaired.
type ConservationAuditor struct {
	vault   VaultVerifier
	metrics AuditRecorder
}

// NewConservationAuditor creates a new auditor. metrics may be nil.
func NewConservationAuditor(vault VaultVerifier, metrics AuditRecorder) *ConservationAuditor {
	return &ConservationAuditor{vault: vault, metrics: metrics}
}

// Start runs an audit every interval until ctx is cancelled or the returned stop func is called
func (w *ConservationAuditor) Start(ctx context.Context, interval time.Duration) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", interval).Info("Conservation auditor started")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Conservation auditor shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Conservation auditor shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.Audit(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
		<-done
	}
}

// Audit runs one check and returns its result
func (w *ConservationAuditor) Audit(ctx context.Context) string {
	status := AuditOK
	err := w.vault.VerifyVaultConservation(ctx)
	switch {
	case err == nil:
		log.Debug("Vault conservation holds")
	case errors.Is(err, service.ErrConservationViolation):
		status = AuditViolation
		log.WithError(err).Error("Vault conservation violated")
	default:
		status = AuditError
		log.WithError(err).Warn("Error auditing vault conservation")
	}

	if w.metrics != nil {
		w.metrics.RecordConservationCheck(status)
	}
	return status
}
