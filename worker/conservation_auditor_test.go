package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"skillstreak/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVaultVerifier struct {
	mock.Mock
	calls atomic.Int32
}

func (m *MockVaultVerifier) VerifyVaultConservation(ctx context.Context) error {
	m.calls.Add(1)
	return m.Called(ctx).Error(0)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordConservationCheck(status string) {
	m.Called(status)
}

func TestConservationAuditor_Audit(t *testing.T) {
	vault := new(MockVaultVerifier)
	vault.On("VerifyVaultConservation", mock.Anything).Return(nil).Once()
	vault.On("VerifyVaultConservation", mock.Anything).
		Return(fmt.Errorf("vault holds 9, deposits total 10: %w", service.ErrConservationViolation)).Once()
	vault.On("VerifyVaultConservation", mock.Anything).Return(errors.New("db down")).Once()

	recorder := new(MockAuditRecorder)
	recorder.On("RecordConservationCheck", AuditOK).Once()
	recorder.On("RecordConservationCheck", AuditViolation).Once()
	recorder.On("RecordConservationCheck", AuditError).Once()

	auditor := NewConservationAuditor(vault, recorder)
	assert.Equal(t, AuditOK, auditor.Audit(context.Background()))
	assert.Equal(t, AuditViolation, auditor.Audit(context.Background()))
	assert.Equal(t, AuditError, auditor.Audit(context.Background()))

	vault.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestConservationAuditor_NilRecorder(t *testing.T) {
	vault := new(MockVaultVerifier)
	vault.On("VerifyVaultConservation", mock.Anything).Return(nil)

	assert.Equal(t, AuditOK, NewConservationAuditor(vault, nil).Audit(context.Background()))
}

func TestConservationAuditor_StartAndStop(t *testing.T) {
	vault := new(MockVaultVerifier)
	vault.On("VerifyVaultConservation", mock.Anything).Return(nil)

	stop := NewConservationAuditor(vault, nil).Start(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool { return vault.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	after := vault.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, vault.calls.Load())
}

func TestConservationAuditor_StopsOnContextCancel(t *testing.T) {
	vault := new(MockVaultVerifier)
	vault.On("VerifyVaultConservation", mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	stop := NewConservationAuditor(vault, nil).Start(ctx, time.Hour)
	cancel()

	finished := make(chan struct{})
	go func() {
		stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("auditor did not stop after cancellation")
	}
	assert.Zero(t, vault.calls.Load())
}
