package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"propsales_backend/internal/acquisition/domain"
	acqrepo "propsales_backend/internal/acquisition/repository"
	clientrepo "propsales_backend/internal/clients/repository"
	"propsales_backend/internal/events"
	"propsales_backend/internal/notification/audit"
	"propsales_backend/internal/notification/outbox"
	"propsales_backend/platform/logger"

	"github.com/google/uuid"
)

type sentEmail struct {
	kind    string
	to      string
	subject string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) record(kind, to string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{kind: kind, to: to})
	return nil
}

func (f *fakeSender) SendInterestReceivedEmail(_ context.Context, to, _, _ string) error {
	return f.record("interest_received", to)
}

func (f *fakeSender) SendReservationEmail(_ context.Context, to, _, _ string) error {
	return f.record("reservation", to)
}

func (f *fakeSender) SendCommitmentEmail(_ context.Context, to, _, _ string, _ int64) error {
	return f.record("commitment", to)
}

func (f *fakeSender) SendAgreementSignedEmail(_ context.Context, to, _, _ string) error {
	return f.record("agreement_signed", to)
}

func (f *fakeSender) SendDepositReceiptEmail(_ context.Context, to, _, _, _ string, _ int64, _ int) error {
	return f.record("deposit_receipt", to)
}

func (f *fakeSender) SendHandoverStartedEmail(_ context.Context, to, _, _, _ string) error {
	return f.record("handover_started", to)
}

func (f *fakeSender) SendHandoverCompletedEmail(_ context.Context, to, _, _ string) error {
	return f.record("handover_completed", to)
}

func (f *fakeSender) SendCustomEmail(_ context.Context, to, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{kind: "custom", to: to, subject: subject})
	return nil
}

type fakeReaders struct {
	client   clientrepo.Client
	property acqrepo.Property
	pipeline *acqrepo.HandoverPipeline
}

func (f *fakeReaders) GetByID(_ context.Context, id uuid.UUID) (clientrepo.Client, error) {
	if id != f.client.ID {
		return clientrepo.Client{}, clientrepo.ErrNotFound
	}
	return f.client, nil
}

func (f *fakeReaders) GetProperty(_ context.Context, id uuid.UUID) (acqrepo.Property, error) {
	if id != f.property.ID {
		return acqrepo.Property{}, acqrepo.ErrPropertyNotFound
	}
	return f.property, nil
}

func (f *fakeReaders) GetPipelineByProperty(_ context.Context, propertyID uuid.UUID) (acqrepo.HandoverPipeline, error) {
	if f.pipeline == nil || f.pipeline.PropertyID != propertyID {
		return acqrepo.HandoverPipeline{}, acqrepo.ErrPipelineNotFound
	}
	return *f.pipeline, nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(_ context.Context, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeOutbox struct {
	records map[uuid.UUID]outbox.Record
	marks   []string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: make(map[uuid.UUID]outbox.Record)}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	f.records[id] = outbox.Record{
		ID:       id,
		ClientID: p.ClientID,
		Kind:     p.Kind,
		Payload:  payload,
		RunAt:    p.RunAt,
		Status:   outbox.StatusPending,
	}
	return id, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("record not found")
	}
	return rec, nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.marks = append(f.marks, "processing:"+id.String())
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.marks = append(f.marks, "succeeded:"+id.String())
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	f.marks = append(f.marks, "failed:"+id.String())
	return nil
}

func (f *fakeOutbox) marked(prefix string) bool {
	for _, m := range f.marks {
		if strings.HasPrefix(m, prefix+":") {
			return true
		}
	}
	return false
}

func newTestModule(sender *fakeSender, readers *fakeReaders, auditLog *fakeAudit, ob *fakeOutbox) *Module {
	return New(sender, readers, readers, readers, auditLog, ob, logger.New("development"))
}

func testReaders() *fakeReaders {
	return &fakeReaders{
		client: clientrepo.Client{
			ID:       uuid.New(),
			FullName: "Wanjiru Kamau",
			Email:    "wanjiru@example.com",
		},
		property: acqrepo.Property{
			ID:   uuid.New(),
			Name: "Kamulu Phase 2 Plot 14",
		},
	}
}

func TestHandleDepositVerified(t *testing.T) {
	sender := &fakeSender{}
	readers := testReaders()
	auditLog := &fakeAudit{}
	m := newTestModule(sender, readers, auditLog, newFakeOutbox())

	err := m.Handle(context.Background(), events.DepositVerified{
		BaseEvent:         events.NewBaseEvent(),
		InterestID:        uuid.New(),
		ClientID:          readers.client.ID,
		PropertyID:        readers.property.ID,
		AmountCents:       18_500_000,
		InstallmentNumber: 1,
		Reference:         "MPX-1001",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].kind != "deposit_receipt" {
		t.Errorf("sent = %+v, want one deposit receipt", sender.sent)
	}
	if sender.sent[0].to != "wanjiru@example.com" {
		t.Errorf("receipt went to %s", sender.sent[0].to)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].EventType != "deposit_verified" {
		t.Errorf("audit entries = %+v", auditLog.entries)
	}
}

func TestHandleHandoverStartedSchedulesReminder(t *testing.T) {
	sender := &fakeSender{}
	readers := testReaders()
	ob := newFakeOutbox()
	m := newTestModule(sender, readers, &fakeAudit{}, ob)

	err := m.Handle(context.Background(), events.HandoverStarted{
		BaseEvent:    events.NewBaseEvent(),
		PipelineID:   uuid.New(),
		ClientID:     readers.client.ID,
		PropertyID:   readers.property.ID,
		CurrentStage: 1,
		TriggerEvent: "deposit_paid",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].kind != "handover_started" {
		t.Errorf("sent = %+v, want one handover started email", sender.sent)
	}
	if len(ob.records) != 1 {
		t.Fatalf("outbox records = %d, want 1", len(ob.records))
	}
	for _, rec := range ob.records {
		if rec.Kind != OutboxKindStageReminder {
			t.Errorf("outbox kind = %s", rec.Kind)
		}
		if time.Until(rec.RunAt) < 71*time.Hour {
			t.Errorf("reminder scheduled too early: %s", rec.RunAt)
		}
	}
}

func TestHandleOutboxDue(t *testing.T) {
	ctx := context.Background()

	t.Run("stalled pipeline gets a reminder", func(t *testing.T) {
		sender := &fakeSender{}
		readers := testReaders()
		readers.pipeline = &acqrepo.HandoverPipeline{
			ID:           uuid.New(),
			PropertyID:   readers.property.ID,
			ClientID:     readers.client.ID,
			CurrentStage: 2,
			Stages: []domain.PipelineStage{
				{Number: 1, Name: "Preparation", Completed: true},
				{Number: 2, Name: "Documentation & Survey"},
			},
		}
		ob := newFakeOutbox()
		m := newTestModule(sender, readers, &fakeAudit{}, ob)

		id, err := ob.Insert(ctx, outbox.InsertParams{
			ClientID: readers.client.ID,
			Kind:     OutboxKindStageReminder,
			Payload:  StageReminderPayload{PropertyID: readers.property.ID.String(), Stage: 2},
			RunAt:    time.Now(),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}

		err = m.Handle(ctx, events.NotificationOutboxDue{
			BaseEvent: events.NewBaseEvent(),
			OutboxID:  id,
			ClientID:  readers.client.ID,
		})
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(sender.sent) != 1 || sender.sent[0].kind != "custom" {
			t.Errorf("sent = %+v, want one reminder", sender.sent)
		}
		if !ob.marked("succeeded") {
			t.Errorf("record not marked succeeded: %v", ob.marks)
		}
	})

	t.Run("advanced pipeline suppresses the reminder", func(t *testing.T) {
		sender := &fakeSender{}
		readers := testReaders()
		readers.pipeline = &acqrepo.HandoverPipeline{
			ID:           uuid.New(),
			PropertyID:   readers.property.ID,
			ClientID:     readers.client.ID,
			CurrentStage: 3,
		}
		ob := newFakeOutbox()
		m := newTestModule(sender, readers, &fakeAudit{}, ob)

		id, err := ob.Insert(ctx, outbox.InsertParams{
			ClientID: readers.client.ID,
			Kind:     OutboxKindStageReminder,
			Payload:  StageReminderPayload{PropertyID: readers.property.ID.String(), Stage: 2},
			RunAt:    time.Now(),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}

		err = m.Handle(ctx, events.NotificationOutboxDue{
			BaseEvent: events.NewBaseEvent(),
			OutboxID:  id,
			ClientID:  readers.client.ID,
		})
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(sender.sent) != 0 {
			t.Errorf("no reminder expected, sent = %+v", sender.sent)
		}
		if !ob.marked("succeeded") {
			t.Errorf("record not marked succeeded: %v", ob.marks)
		}
	})

	t.Run("sender failure marks the record failed", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("smtp down")}
		readers := testReaders()
		readers.pipeline = &acqrepo.HandoverPipeline{
			ID:           uuid.New(),
			PropertyID:   readers.property.ID,
			ClientID:     readers.client.ID,
			CurrentStage: 2,
		}
		ob := newFakeOutbox()
		m := newTestModule(sender, readers, &fakeAudit{}, ob)

		id, err := ob.Insert(ctx, outbox.InsertParams{
			ClientID: readers.client.ID,
			Kind:     OutboxKindStageReminder,
			Payload:  StageReminderPayload{PropertyID: readers.property.ID.String(), Stage: 2},
			RunAt:    time.Now(),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}

		err = m.Handle(ctx, events.NotificationOutboxDue{
			BaseEvent: events.NewBaseEvent(),
			OutboxID:  id,
			ClientID:  readers.client.ID,
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !ob.marked("failed") {
			t.Errorf("record not marked failed: %v", ob.marks)
		}
	})
}

func TestHandleAuditOnlyEvents(t *testing.T) {
	sender := &fakeSender{}
	readers := testReaders()
	auditLog := &fakeAudit{}
	m := newTestModule(sender, readers, auditLog, newFakeOutbox())

	err := m.Handle(context.Background(), events.SubdivisionStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		PropertyID: readers.property.ID,
		From:       "NOT_STARTED",
		To:         "SUB_DIVISION_STARTED",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("audit-only event must not send email, sent = %+v", sender.sent)
	}
	if len(auditLog.entries) != 1 {
		t.Errorf("audit entries = %d, want 1", len(auditLog.entries))
	}
}
