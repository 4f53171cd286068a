package service

import (
	"context"
	"sync"
	"time"

	"propsales_backend/internal/acquisition/domain"
	"propsales_backend/internal/acquisition/repository"
	clientrepo "propsales_backend/internal/clients/repository"
	"propsales_backend/internal/events"
	"propsales_backend/internal/payments"
	"propsales_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store that mirrors the conditional-write
// semantics of the SQL implementation. Error fields inject failures into
// individual methods to drive compensation paths.
type fakeStore struct {
	mu           sync.Mutex
	properties   map[uuid.UUID]repository.Property
	interests    map[uuid.UUID]repository.Interest
	pipelines    map[uuid.UUID]repository.HandoverPipeline
	installments []repository.PaymentInstallment

	markCommittedErr        error
	updateInterestStatusErr error
	createPipelineErr       error
	appendInstallmentErr    error

	releaseCommitmentCalls int
	clearReservationCalls  int
	revertHandoverCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		properties: make(map[uuid.UUID]repository.Property),
		interests:  make(map[uuid.UUID]repository.Interest),
		pipelines:  make(map[uuid.UUID]repository.HandoverPipeline),
	}
}

func (f *fakeStore) putProperty(p repository.Property) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties[p.ID] = p
}

func (f *fakeStore) putInterest(i repository.Interest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interests[i.ID] = i
}

func (f *fakeStore) property(id uuid.UUID) repository.Property {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.properties[id]
}

func (f *fakeStore) interest(id uuid.UUID) repository.Interest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interests[id]
}

func (f *fakeStore) GetProperty(_ context.Context, id uuid.UUID) (repository.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.properties[id]
	if !ok {
		return repository.Property{}, repository.ErrPropertyNotFound
	}
	return p, nil
}

func (f *fakeStore) ClaimCommitment(_ context.Context, propertyID, clientID uuid.UUID, expectedCommitted *uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.properties[propertyID]
	if !ok {
		return repository.ErrStaleRead
	}
	same := (p.CommittedClientID == nil && expectedCommitted == nil) ||
		(p.CommittedClientID != nil && expectedCommitted != nil && *p.CommittedClientID == *expectedCommitted)
	if !same || p.SubdivisionStatus == domain.Subdivided {
		return repository.ErrStaleRead
	}
	p.CommittedClientID = &clientID
	p.CommitmentDate = &now
	p.ReservationStatus = nil
	p.ReservedBy = nil
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) ReleaseCommitment(_ context.Context, propertyID, clientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCommitmentCalls++
	p, ok := f.properties[propertyID]
	if !ok || p.CommittedClientID == nil || *p.CommittedClientID != clientID {
		return repository.ErrStaleRead
	}
	p.CommittedClientID = nil
	p.CommitmentDate = nil
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) ReserveProperty(_ context.Context, propertyID, clientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.properties[propertyID]
	if !ok || p.ReservationStatus != nil || p.CommittedClientID != nil ||
		p.SubdivisionStatus == domain.Subdivided ||
		(p.HandoverStatus != domain.HandoverNotStarted && p.HandoverStatus != domain.HandoverAwaitingStart) {
		return repository.ErrStaleRead
	}
	reserved := domain.ReservationReserved
	p.ReservationStatus = &reserved
	p.ReservedBy = &clientID
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) ClearReservation(_ context.Context, propertyID, clientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearReservationCalls++
	p, ok := f.properties[propertyID]
	if !ok || p.ReservedBy == nil || *p.ReservedBy != clientID {
		return repository.ErrStaleRead
	}
	p.ReservationStatus = nil
	p.ReservedBy = nil
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) SetHandoverStatusIf(_ context.Context, propertyID uuid.UUID, from []domain.HandoverStatus, to domain.HandoverStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.properties[propertyID]
	if !ok {
		return repository.ErrStaleRead
	}
	matched := false
	for _, s := range from {
		if p.HandoverStatus == s {
			matched = true
		}
	}
	if !matched || p.SubdivisionStatus == domain.SubdivisionStarted || p.SubdivisionStatus == domain.Subdivided {
		return repository.ErrStaleRead
	}
	p.HandoverStatus = to
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) RevertHandoverStatus(_ context.Context, propertyID uuid.UUID, current, prior domain.HandoverStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revertHandoverCalls++
	p, ok := f.properties[propertyID]
	if !ok || p.HandoverStatus != current {
		return repository.ErrStaleRead
	}
	p.HandoverStatus = prior
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) SetSubdivisionStatusIf(_ context.Context, propertyID uuid.UUID, expected, target domain.SubdivisionStatus, allowedHandover []domain.HandoverStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.properties[propertyID]
	if !ok || p.SubdivisionStatus != expected {
		return repository.ErrStaleRead
	}
	matched := false
	for _, s := range allowedHandover {
		if p.HandoverStatus == s {
			matched = true
		}
	}
	if !matched {
		return repository.ErrStaleRead
	}
	p.SubdivisionStatus = target
	f.properties[propertyID] = p
	return nil
}

func (f *fakeStore) GetInterest(_ context.Context, clientID, propertyID uuid.UUID) (repository.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range f.interests {
		if i.ClientID == clientID && i.PropertyID == propertyID {
			return i, nil
		}
	}
	return repository.Interest{}, repository.ErrInterestNotFound
}

func (f *fakeStore) ListInterestsForProperty(_ context.Context, propertyID uuid.UUID) ([]repository.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Interest, 0)
	for _, i := range f.interests {
		if i.PropertyID == propertyID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertActiveInterest(_ context.Context, clientID, propertyID uuid.UUID) (repository.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for id, i := range f.interests {
		if i.ClientID == clientID && i.PropertyID == propertyID {
			if i.Status != domain.InterestInactive {
				return repository.Interest{}, repository.ErrInterestNotDormant
			}
			i.Status = domain.InterestActive
			i.AgreedPriceCents = nil
			i.DepositAmountCents = nil
			i.DepositPaidAt = nil
			i.PaymentReference = nil
			i.PaymentVerifiedAt = nil
			i.AgreementGeneratedAt = nil
			i.AgreementSignedAt = nil
			i.Notes = nil
			i.UpdatedAt = now
			f.interests[id] = i
			return i, nil
		}
	}
	i := repository.Interest{
		ID:         uuid.New(),
		ClientID:   clientID,
		PropertyID: propertyID,
		Status:     domain.InterestActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.interests[i.ID] = i
	return i, nil
}

func (f *fakeStore) UpdateInterestStatusIf(_ context.Context, id uuid.UUID, from []domain.InterestStatus, to domain.InterestStatus, note *string) error {
	if f.updateInterestStatusErr != nil {
		return f.updateInterestStatusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.interests[id]
	if !ok {
		return repository.ErrStaleRead
	}
	matched := false
	for _, s := range from {
		if i.Status == s {
			matched = true
		}
	}
	if !matched {
		return repository.ErrStaleRead
	}
	i.Status = to
	if note != nil {
		i.Notes = note
	}
	i.UpdatedAt = time.Now().UTC()
	f.interests[id] = i
	return nil
}

func (f *fakeStore) MarkCommitted(_ context.Context, id uuid.UUID, agreedPriceCents int64) (repository.Interest, error) {
	if f.markCommittedErr != nil {
		return repository.Interest{}, f.markCommittedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.interests[id]
	if !ok || (i.Status != domain.InterestActive && i.Status != domain.InterestReserved) {
		return repository.Interest{}, repository.ErrStaleRead
	}
	i.Status = domain.InterestCommitted
	i.AgreedPriceCents = &agreedPriceCents
	i.UpdatedAt = time.Now().UTC()
	f.interests[id] = i
	return i, nil
}

func (f *fakeStore) SetAgreementSigned(_ context.Context, id uuid.UUID, signedAt time.Time) (repository.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.interests[id]
	if !ok || i.Status != domain.InterestCommitted {
		return repository.Interest{}, repository.ErrStaleRead
	}
	i.AgreementSignedAt = &signedAt
	if i.AgreementGeneratedAt == nil {
		i.AgreementGeneratedAt = &signedAt
	}
	i.UpdatedAt = time.Now().UTC()
	f.interests[id] = i
	return i, nil
}

func (f *fakeStore) MarkConverted(_ context.Context, id uuid.UUID, depositCents int64, reference string, paidAt, verifiedAt time.Time) (repository.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.interests[id]
	if !ok || i.Status != domain.InterestCommitted {
		return repository.Interest{}, repository.ErrStaleRead
	}
	i.Status = domain.InterestConverted
	i.DepositAmountCents = &depositCents
	i.PaymentReference = &reference
	i.DepositPaidAt = &paidAt
	i.PaymentVerifiedAt = &verifiedAt
	i.UpdatedAt = time.Now().UTC()
	f.interests[id] = i
	return i, nil
}

func (f *fakeStore) DeactivateCompetingInterests(_ context.Context, propertyID, winnerClientID uuid.UUID, note string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, i := range f.interests {
		if i.PropertyID == propertyID && i.ClientID != winnerClientID &&
			(i.Status == domain.InterestActive || i.Status == domain.InterestReserved) {
			i.Status = domain.InterestInactive
			i.Notes = &note
			f.interests[id] = i
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetHandoverCandidate(_ context.Context, propertyID, clientID uuid.UUID) (repository.Interest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var committed *repository.Interest
	for _, i := range f.interests {
		if i.PropertyID != propertyID || i.ClientID != clientID {
			continue
		}
		switch i.Status {
		case domain.InterestConverted:
			converted := i
			return converted, nil
		case domain.InterestCommitted:
			c := i
			committed = &c
		}
	}
	if committed != nil {
		return *committed, nil
	}
	return repository.Interest{}, repository.ErrInterestNotFound
}

func (f *fakeStore) CreatePipeline(_ context.Context, params repository.CreatePipelineParams) (repository.HandoverPipeline, error) {
	if f.createPipelineErr != nil {
		return repository.HandoverPipeline{}, f.createPipelineErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pipelines {
		if p.PropertyID == params.PropertyID {
			return repository.HandoverPipeline{}, repository.ErrPipelineExists
		}
	}
	now := time.Now().UTC()
	p := repository.HandoverPipeline{
		ID:              uuid.New(),
		PropertyID:      params.PropertyID,
		ClientID:        params.ClientID,
		CurrentStage:    params.CurrentStage,
		OverallProgress: params.OverallProgress,
		Stages:          params.Stages,
		HandoverStatus:  domain.HandoverInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.pipelines[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetPipelineByProperty(_ context.Context, propertyID uuid.UUID) (repository.HandoverPipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pipelines {
		if p.PropertyID == propertyID {
			return p, nil
		}
	}
	return repository.HandoverPipeline{}, repository.ErrPipelineNotFound
}

func (f *fakeStore) AdvancePipeline(_ context.Context, id uuid.UUID, expectedStage, newStage, newProgress int, stages []domain.PipelineStage, status domain.HandoverStatus) (repository.HandoverPipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[id]
	if !ok || p.CurrentStage != expectedStage {
		return repository.HandoverPipeline{}, repository.ErrStaleRead
	}
	p.CurrentStage = newStage
	p.OverallProgress = newProgress
	p.Stages = stages
	p.HandoverStatus = status
	p.UpdatedAt = time.Now().UTC()
	f.pipelines[id] = p
	return p, nil
}

func (f *fakeStore) AppendInstallment(_ context.Context, params repository.AppendInstallmentParams) (repository.PaymentInstallment, error) {
	if f.appendInstallmentErr != nil {
		return repository.PaymentInstallment{}, f.appendInstallmentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := 1
	for _, inst := range f.installments {
		if inst.PropertyID == params.PropertyID && inst.InstallmentNumber >= next {
			next = inst.InstallmentNumber + 1
		}
	}
	inst := repository.PaymentInstallment{
		ID:                uuid.New(),
		PropertyID:        params.PropertyID,
		ClientID:          params.ClientID,
		InstallmentNumber: next,
		AmountCents:       params.AmountCents,
		Method:            params.Method,
		Reference:         params.Reference,
		Status:            params.Status,
		VerifiedBy:        params.VerifiedBy,
		VerifiedAt:        params.VerifiedAt,
		CreatedAt:         time.Now().UTC(),
	}
	f.installments = append(f.installments, inst)
	return inst, nil
}

func (f *fakeStore) VerifyInstallment(_ context.Context, id uuid.UUID, verifiedBy string, verifiedAt time.Time) (repository.PaymentInstallment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, inst := range f.installments {
		if inst.ID == id {
			if inst.Status != repository.InstallmentPending {
				return repository.PaymentInstallment{}, repository.ErrStaleRead
			}
			inst.Status = repository.InstallmentVerified
			inst.VerifiedBy = &verifiedBy
			inst.VerifiedAt = &verifiedAt
			f.installments[n] = inst
			return inst, nil
		}
	}
	return repository.PaymentInstallment{}, repository.ErrStaleRead
}

func (f *fakeStore) ListInstallments(_ context.Context, propertyID uuid.UUID) ([]repository.PaymentInstallment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.PaymentInstallment, 0)
	for _, inst := range f.installments {
		if inst.PropertyID == propertyID {
			out = append(out, inst)
		}
	}
	return out, nil
}

var _ repository.Store = (*fakeStore)(nil)

// racingPipelineStore makes every pipeline insert lose to a competitor:
// the competitor's row lands between this call's status flip and its own
// insert, which then reports the unique violation.
type racingPipelineStore struct {
	*fakeStore
	competitor uuid.UUID
}

func (r *racingPipelineStore) CreatePipeline(ctx context.Context, params repository.CreatePipelineParams) (repository.HandoverPipeline, error) {
	won := params
	won.ClientID = r.competitor
	if _, err := r.fakeStore.CreatePipeline(ctx, won); err != nil {
		return repository.HandoverPipeline{}, err
	}
	return repository.HandoverPipeline{}, repository.ErrPipelineExists
}

var _ repository.Store = (*racingPipelineStore)(nil)

// fakeClients resolves clients from a fixed map.
type fakeClients struct {
	clients map[uuid.UUID]clientrepo.Client
}

func (f *fakeClients) GetByID(_ context.Context, id uuid.UUID) (clientrepo.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return clientrepo.Client{}, clientrepo.ErrNotFound
	}
	return c, nil
}

// recordingBus captures published events synchronously for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

// fakeGateway settles references by a fixed status map, defaulting to
// completed.
type fakeGateway struct {
	pending map[string]bool
	err     error
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (payments.Settlement, error) {
	if g.err != nil {
		return payments.Settlement{}, g.err
	}
	status := payments.SettlementCompleted
	if g.pending[reference] {
		status = payments.SettlementPending
	}
	return payments.Settlement{Reference: reference, Status: status}, nil
}

func newTestService(store *fakeStore, clients *fakeClients, gateway *fakeGateway, bus *recordingBus) *Service {
	if clients == nil {
		clients = &fakeClients{clients: map[uuid.UUID]clientrepo.Client{}}
	}
	if gateway == nil {
		gateway = &fakeGateway{}
	}
	return New(store, clients, gateway, bus, logger.New("development"))
}
