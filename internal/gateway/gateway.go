// Package gateway abstracts the external rails that settle payouts and
// resolve recipients. Production adapters live behind these interfaces; the
// mocks here back tests and local development.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/google/uuid"
)

// PayoutInstruction is everything a rail needs to push money out.
type PayoutInstruction struct {
	PayoutID     uuid.UUID
	Method       string
	AmountMicros int64
	Currency     string
	Destination  map[string]string
}

// Gateway submits a payout to the external rail. A returned error means the
// rail rejected or could not accept the instruction; the caller refunds.
type Gateway interface {
	SendPayout(ctx context.Context, instruction PayoutInstruction) (gatewayRef string, err error)
}

// RecipientResolver turns a user-facing identifier (email, phone, handle)
// into an owner ID for p2p transfers.
type RecipientResolver interface {
	Resolve(ctx context.Context, identifier string) (uuid.UUID, error)
}

// MockGateway approves everything unless told to fail, and remembers what it
// was asked to send.
type MockGateway struct {
	mu       sync.Mutex
	FailNext bool
	Sent     []PayoutInstruction
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) SendPayout(ctx context.Context, instruction PayoutInstruction) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailNext {
		g.FailNext = false
		return "", domain.E(domain.KindProviderUnavailable, "%s rail rejected payout %s", instruction.Method, instruction.PayoutID)
	}
	g.Sent = append(g.Sent, instruction)
	return fmt.Sprintf("mock-%s-%s", instruction.Method, instruction.PayoutID), nil
}

// MockResolver resolves identifiers from a fixed table.
type MockResolver struct {
	mu      sync.Mutex
	byIdent map[string]uuid.UUID
}

func NewMockResolver() *MockResolver {
	return &MockResolver{byIdent: make(map[string]uuid.UUID)}
}

// Register maps an identifier to an owner.
func (r *MockResolver) Register(identifier string, ownerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIdent[strings.ToLower(identifier)] = ownerID
}

func (r *MockResolver) Resolve(ctx context.Context, identifier string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ownerID, ok := r.byIdent[strings.ToLower(identifier)]
	if !ok {
		return uuid.Nil, domain.E(domain.KindNotFound, "no recipient for %q", identifier)
	}
	return ownerID, nil
}
