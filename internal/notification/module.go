// Package notification turns domain events into client-facing emails and the
// property audit trail. It subscribes to the event bus and inverts the
// dependency: the acquisition module never knows about email providers or
// audit tables, and a failed notification never fails the operation that
// published the event.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	acqrepo "propsales_backend/internal/acquisition/repository"
	clientrepo "propsales_backend/internal/clients/repository"
	"propsales_backend/internal/email"
	"propsales_backend/internal/events"
	apphttp "propsales_backend/internal/http"
	"propsales_backend/internal/notification/audit"
	"propsales_backend/internal/notification/outbox"
	"propsales_backend/platform/httpkit"
	"propsales_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxKindStageReminder is a deferred reminder nudging the operations team
// when a handover pipeline has not advanced past a stage.
const OutboxKindStageReminder = "handover_stage_reminder"

// stageReminderDelay is how long a pipeline may sit on one stage before the
// reminder fires.
const stageReminderDelay = 72 * time.Hour

// StageReminderPayload is the stored payload of a stage reminder record.
type StageReminderPayload struct {
	PropertyID string `json:"propertyId"`
	Stage      int    `json:"stage"`
}

// ClientReader resolves client contact details.
type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (clientrepo.Client, error)
}

// PropertyReader resolves property display details.
type PropertyReader interface {
	GetProperty(ctx context.Context, id uuid.UUID) (acqrepo.Property, error)
}

// PipelineReader resolves the current handover pipeline for a property.
type PipelineReader interface {
	GetPipelineByProperty(ctx context.Context, propertyID uuid.UUID) (acqrepo.HandoverPipeline, error)
}

// AuditWriter persists audit trail entries.
type AuditWriter interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// AuditReader lists audit trail entries for the admin API.
type AuditReader interface {
	ListForProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]audit.Row, error)
}

// OutboxStore is the slice of the outbox repository the module needs.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

type Module struct {
	sender      email.Sender
	clients     ClientReader
	properties  PropertyReader
	pipelines   PipelineReader
	auditLog    AuditWriter
	auditReader AuditReader
	outbox      OutboxStore
	log         *logger.Logger
}

func New(sender email.Sender, clients ClientReader, properties PropertyReader, pipelines PipelineReader, auditLog AuditWriter, outboxStore OutboxStore, log *logger.Logger) *Module {
	return &Module{
		sender:     sender,
		clients:    clients,
		properties: properties,
		pipelines:  pipelines,
		auditLog:   auditLog,
		outbox:     outboxStore,
		log:        log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// UseAuditReader enables the admin audit trail endpoint. The worker binary
// runs the module without routes and never sets a reader.
func (m *Module) UseAuditReader(reader AuditReader) {
	m.auditReader = reader
}

// RegisterRoutes mounts the admin audit trail on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.auditReader == nil {
		return
	}
	ctx.Admin.GET("/properties/:id/audit", m.listAuditTrail)
}

// GET /api/v1/admin/properties/:id/audit
func (m *Module) listAuditTrail(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid property id", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := m.auditReader.ListForProperty(c.Request.Context(), propertyID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rows)
}

// RegisterHandlers subscribes the module to every event it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	for _, name := range []string{
		events.InterestExpressed{}.EventName(),
		events.InterestCancelled{}.EventName(),
		events.PropertyReserved{}.EventName(),
		events.PropertyCommitted{}.EventName(),
		events.AgreementSigned{}.EventName(),
		events.DepositVerified{}.EventName(),
		events.HandoverStarted{}.EventName(),
		events.HandoverStageAdvanced{}.EventName(),
		events.SubdivisionStatusChanged{}.EventName(),
		events.NotificationOutboxDue{}.EventName(),
	} {
		bus.Subscribe(name, m)
	}
}

// Handle routes events to the appropriate reaction. Errors are returned so
// the bus can log them; they never propagate to the publisher.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InterestExpressed:
		return m.onInterestExpressed(ctx, e)
	case events.InterestCancelled:
		m.recordAudit(ctx, e.PropertyID, &e.ClientID, "interest_cancelled", nil)
		return nil
	case events.PropertyReserved:
		return m.onPropertyReserved(ctx, e)
	case events.PropertyCommitted:
		return m.onPropertyCommitted(ctx, e)
	case events.AgreementSigned:
		return m.onAgreementSigned(ctx, e)
	case events.DepositVerified:
		return m.onDepositVerified(ctx, e)
	case events.HandoverStarted:
		return m.onHandoverStarted(ctx, e)
	case events.HandoverStageAdvanced:
		return m.onHandoverStageAdvanced(ctx, e)
	case events.SubdivisionStatusChanged:
		m.recordAudit(ctx, e.PropertyID, nil, "subdivision_status_changed", map[string]any{
			"from": e.From,
			"to":   e.To,
		})
		return nil
	case events.NotificationOutboxDue:
		return m.onOutboxDue(ctx, e)
	default:
		return nil
	}
}

func (m *Module) onInterestExpressed(ctx context.Context, e events.InterestExpressed) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "interest_expressed", map[string]any{
		"reactivated": e.Reactivated,
	})
	client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
	if err != nil {
		return err
	}
	return m.sender.SendInterestReceivedEmail(ctx, client.Email, client.FullName, property.Name)
}

func (m *Module) onPropertyReserved(ctx context.Context, e events.PropertyReserved) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "property_reserved", nil)
	client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
	if err != nil {
		return err
	}
	return m.sender.SendReservationEmail(ctx, client.Email, client.FullName, property.Name)
}

func (m *Module) onPropertyCommitted(ctx context.Context, e events.PropertyCommitted) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "property_committed", map[string]any{
		"agreedPriceCents": e.AgreedPriceCents,
	})
	client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
	if err != nil {
		return err
	}
	return m.sender.SendCommitmentEmail(ctx, client.Email, client.FullName, property.Name, e.AgreedPriceCents)
}

func (m *Module) onAgreementSigned(ctx context.Context, e events.AgreementSigned) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "agreement_signed", nil)
	client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
	if err != nil {
		return err
	}
	return m.sender.SendAgreementSignedEmail(ctx, client.Email, client.FullName, property.Name)
}

func (m *Module) onDepositVerified(ctx context.Context, e events.DepositVerified) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "deposit_verified", map[string]any{
		"amountCents":       e.AmountCents,
		"reference":         e.Reference,
		"installmentNumber": e.InstallmentNumber,
	})
	client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
	if err != nil {
		return err
	}
	return m.sender.SendDepositReceiptEmail(ctx, client.Email, client.FullName, property.Name, e.Reference, e.AmountCents, e.InstallmentNumber)
}

func (m *Module) onHandoverStarted(ctx context.Context, e events.HandoverStarted) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "handover_started", map[string]any{
		"trigger":      e.TriggerEvent,
		"currentStage": e.CurrentStage,
	})

	m.scheduleStageReminder(ctx, e.ClientID, e.PropertyID, e.CurrentStage)

	client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
	if err != nil {
		return err
	}
	stageName := stageDisplayName(ctx, m.pipelines, e.PropertyID, e.CurrentStage)
	return m.sender.SendHandoverStartedEmail(ctx, client.Email, client.FullName, property.Name, stageName)
}

func (m *Module) onHandoverStageAdvanced(ctx context.Context, e events.HandoverStageAdvanced) error {
	m.recordAudit(ctx, e.PropertyID, &e.ClientID, "handover_stage_advanced", map[string]any{
		"completedStage":  e.CompletedStage,
		"currentStage":    e.CurrentStage,
		"overallProgress": e.OverallProgress,
	})

	if e.Completed {
		client, property, err := m.lookup(ctx, e.ClientID, e.PropertyID)
		if err != nil {
			return err
		}
		return m.sender.SendHandoverCompletedEmail(ctx, client.Email, client.FullName, property.Name)
	}

	m.scheduleStageReminder(ctx, e.ClientID, e.PropertyID, e.CurrentStage)
	return nil
}

// onOutboxDue processes a claimed outbox record. The only kind today is the
// stage reminder: if the pipeline is still sitting on the recorded stage, the
// client gets a nudge email.
func (m *Module) onOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		return nil
	}

	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		return err
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := m.processOutboxRecord(ctx, rec); err != nil {
		if markErr := m.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			m.log.Warn("failed to mark outbox record failed", "outboxId", rec.ID, "error", markErr)
		}
		return err
	}
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) processOutboxRecord(ctx context.Context, rec outbox.Record) error {
	switch rec.Kind {
	case OutboxKindStageReminder:
		var payload StageReminderPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return fmt.Errorf("decode stage reminder payload: %w", err)
		}
		propertyID, err := uuid.Parse(payload.PropertyID)
		if err != nil {
			return fmt.Errorf("parse propertyId: %w", err)
		}

		pipeline, err := m.pipelines.GetPipelineByProperty(ctx, propertyID)
		if err != nil {
			// No pipeline anymore; nothing to remind about.
			return nil
		}
		if pipeline.CurrentStage != payload.Stage {
			return nil
		}

		client, property, err := m.lookup(ctx, rec.ClientID, propertyID)
		if err != nil {
			return err
		}
		stageName := stageDisplayName(ctx, m.pipelines, propertyID, payload.Stage)
		subject := fmt.Sprintf("Handover update for %s", property.Name)
		body := fmt.Sprintf(
			"<p>Dear %s,</p><p>Your handover for <strong>%s</strong> is still in the <strong>%s</strong> stage. Our team is working on it and will update you as soon as it advances.</p>",
			client.FullName, property.Name, stageName,
		)
		return m.sender.SendCustomEmail(ctx, client.Email, subject, body)
	default:
		m.log.Warn("unknown outbox kind", "kind", rec.Kind, "outboxId", rec.ID)
		return nil
	}
}

func (m *Module) scheduleStageReminder(ctx context.Context, clientID, propertyID uuid.UUID, stage int) {
	if m.outbox == nil {
		return
	}
	_, err := m.outbox.Insert(ctx, outbox.InsertParams{
		ClientID: clientID,
		Kind:     OutboxKindStageReminder,
		Payload: StageReminderPayload{
			PropertyID: propertyID.String(),
			Stage:      stage,
		},
		RunAt: time.Now().UTC().Add(stageReminderDelay),
	})
	if err != nil {
		m.log.Warn("failed to schedule stage reminder", "propertyId", propertyID, "stage", stage, "error", err)
	}
}

// recordAudit writes the audit entry best-effort.
func (m *Module) recordAudit(ctx context.Context, propertyID uuid.UUID, clientID *uuid.UUID, eventType string, details map[string]any) {
	if m.auditLog == nil {
		return
	}
	err := m.auditLog.Record(ctx, audit.Entry{
		PropertyID: propertyID,
		ClientID:   clientID,
		EventType:  eventType,
		Details:    details,
	})
	if err != nil {
		m.log.Warn("failed to write audit entry", "propertyId", propertyID, "eventType", eventType, "error", err)
	}
}

func (m *Module) lookup(ctx context.Context, clientID, propertyID uuid.UUID) (clientrepo.Client, acqrepo.Property, error) {
	client, err := m.clients.GetByID(ctx, clientID)
	if err != nil {
		return clientrepo.Client{}, acqrepo.Property{}, fmt.Errorf("resolve client %s: %w", clientID, err)
	}
	property, err := m.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return clientrepo.Client{}, acqrepo.Property{}, fmt.Errorf("resolve property %s: %w", propertyID, err)
	}
	return client, property, nil
}

func stageDisplayName(ctx context.Context, pipelines PipelineReader, propertyID uuid.UUID, stage int) string {
	pipeline, err := pipelines.GetPipelineByProperty(ctx, propertyID)
	if err == nil {
		for _, s := range pipeline.Stages {
			if s.Number == stage {
				return s.Name
			}
		}
	}
	return fmt.Sprintf("stage %d", stage)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
