// Package payments defines the external payment gateway boundary. The
// acquisition service only sees the Gateway interface; real settlement is
// someone else's system.
package payments

import (
	"context"
	"strings"
)

// SettlementStatus is the gateway's verdict on a payment reference.
type SettlementStatus string

const (
	SettlementCompleted SettlementStatus = "COMPLETED"
	SettlementPending   SettlementStatus = "PENDING_VERIFICATION"
)

// Settlement is the result of verifying a payment reference.
type Settlement struct {
	Reference string
	Status    SettlementStatus
}

// Gateway verifies payment references against the external provider.
type Gateway interface {
	Verify(ctx context.Context, reference string) (Settlement, error)
}

// SandboxGateway simulates the provider deterministically: references
// prefixed "PEND" settle as pending verification, everything else as
// completed.
type SandboxGateway struct{}

// NewSandbox creates a sandbox gateway.
func NewSandbox() *SandboxGateway {
	return &SandboxGateway{}
}

// Verify implements Gateway.
func (g *SandboxGateway) Verify(_ context.Context, reference string) (Settlement, error) {
	status := SettlementCompleted
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reference)), "PEND") {
		status = SettlementPending
	}
	return Settlement{Reference: reference, Status: status}, nil
}
