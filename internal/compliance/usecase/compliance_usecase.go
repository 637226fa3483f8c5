package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	auditService "github.com/heirclark/dataguard/internal/audit/service"
	auditUseCase "github.com/heirclark/dataguard/internal/audit/usecase"
	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	cryptoService "github.com/heirclark/dataguard/internal/crypto/service"
	"github.com/heirclark/dataguard/internal/database"
)

// Config holds the compliance usecase settings.
type Config struct {
	Registry complianceDomain.Registry
	Policy   auditDomain.AnonymizationPolicy

	// Timeout bounds each export or erase. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
}

// complianceUseCase implements ComplianceUseCase.
type complianceUseCase struct {
	txManager    database.TxManager
	locker       database.UserLocker
	userData     UserDataRepository
	auditLogRepo auditUseCase.AuditLogRepository
	audit        auditUseCase.AuditLogUseCase
	scrubber     AuditScrubber
	cipher       cryptoService.FieldCipher
	hasher       auditService.StateHasher
	cfg          Config
	clock        clockwork.Clock
	logger       *slog.Logger
}

// Export reads every registry table for the user and decrypts encrypted fields.
// Cancellation discards the partial document.
func (c *complianceUseCase) Export(
	ctx context.Context,
	req complianceDomain.Request,
) (*complianceDomain.ExportDocument, error) {
	if err := c.validate(req, complianceDomain.RequestExport); err != nil {
		return nil, err
	}

	start := c.clock.Now()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.audit.Record(ctx, auditUseCase.RecordInput{
		CorrelationID: req.CorrelationID,
		Action:        auditDomain.ActionExportStarted,
		ResourceType:  auditDomain.ResourceUser,
		ResourceID:    &req.UserID,
		IPAddress:     req.RequesterIP,
	})

	doc := &complianceDomain.ExportDocument{
		UserID:        req.UserID,
		CorrelationID: req.CorrelationID,
		Domains:       make(map[string][]complianceDomain.Record, len(c.cfg.Registry)),
	}

	for _, table := range c.cfg.Registry {
		if err := ctx.Err(); err != nil {
			return nil, c.exportFailed(ctx, req, start, err)
		}

		rows, err := c.userData.FetchRows(ctx, table, req.UserID)
		if err != nil {
			return nil, c.exportFailed(ctx, req, start, err)
		}

		records := make([]complianceDomain.Record, 0, len(rows))
		for _, row := range rows {
			records = append(records, c.exportRecord(doc, table, row, req))
		}
		doc.Domains[table.Domain] = records
	}

	doc.GeneratedAt = c.clock.Now().UTC()
	duration := doc.GeneratedAt.Sub(start)

	c.audit.Record(ctx, auditUseCase.RecordInput{
		CorrelationID: req.CorrelationID,
		Action:        auditDomain.ActionExportCompleted,
		ResourceType:  auditDomain.ResourceUser,
		ResourceID:    &req.UserID,
		IPAddress:     req.RequesterIP,
		Metadata: map[string]any{
			"records":            doc.RecordCount(),
			"unavailable_fields": len(doc.Errors),
		},
		Duration: &duration,
	})

	c.logger.Info("user data exported",
		slog.String("correlation_id", req.CorrelationID.String()),
		slog.Int("count", doc.RecordCount()),
		slog.Int("unavailable_fields", len(doc.Errors)),
	)

	return doc, nil
}

func (c *complianceUseCase) exportRecord(
	doc *complianceDomain.ExportDocument,
	table complianceDomain.TableSpec,
	row Row,
	req complianceDomain.Request,
) complianceDomain.Record {
	record := complianceDomain.Record{
		Columns: make(map[string]*string, len(table.Columns)),
		Fields:  make(map[string]complianceDomain.FieldValue, len(table.Fields)),
	}
	if id := row[table.IDColumn]; id != nil {
		record.ID = *id
	}
	for _, column := range table.Columns {
		record.Columns[column] = row[column]
	}

	for _, field := range table.Fields {
		envelope := row[field.Column]
		var plaintext *string
		if field.PlaintextColumn != "" {
			plaintext = row[field.PlaintextColumn]
		}

		switch {
		case envelope == nil && plaintext == nil:
			continue
		case envelope == nil:
			record.Fields[field.Column] = complianceDomain.FieldValue{
				Status: complianceDomain.FieldPlaintext,
				Value:  plaintext,
			}
			continue
		}

		value, err := c.cipher.Decrypt(*envelope, field.Context)
		if err == nil {
			record.Fields[field.Column] = complianceDomain.FieldValue{
				Status: complianceDomain.FieldDecrypted,
				Value:  &value,
			}
			continue
		}

		c.logger.Warn("export field unavailable",
			slog.String("correlation_id", req.CorrelationID.String()),
			slog.String("table", table.Table),
			slog.String("field", field.Column),
			slog.Bool("plaintext_fallback", plaintext != nil),
		)

		if plaintext != nil {
			record.Fields[field.Column] = complianceDomain.FieldValue{
				Status: complianceDomain.FieldPlaintextFallback,
				Value:  plaintext,
			}
			continue
		}

		record.Fields[field.Column] = complianceDomain.FieldValue{
			Status: complianceDomain.FieldUnavailable,
			Reason: complianceDomain.ReasonDecryptionFailed,
		}
		doc.Errors = append(doc.Errors, complianceDomain.FieldError{
			Domain:   table.Domain,
			RecordID: record.ID,
			Field:    field.Column,
			Reason:   complianceDomain.ReasonDecryptionFailed,
		})
	}

	return record
}

func (c *complianceUseCase) exportFailed(
	ctx context.Context,
	req complianceDomain.Request,
	start time.Time,
	err error,
) error {
	duration := c.clock.Since(start)
	c.audit.Record(context.WithoutCancel(ctx), auditUseCase.RecordInput{
		CorrelationID: req.CorrelationID,
		Action:        auditDomain.ActionExportFailed,
		ResourceType:  auditDomain.ResourceUser,
		ResourceID:    &req.UserID,
		IPAddress:     req.RequesterIP,
		Duration:      &duration,
		Err:           err,
	})

	c.logger.Error("user data export failed",
		slog.String("correlation_id", req.CorrelationID.String()),
		slog.Any("error", err),
	)

	return &complianceDomain.RequestError{CorrelationID: req.CorrelationID, Type: req.Type, Err: err}
}

// Erase deletes every registry table's rows for the user and anonymizes the
// user's audit rows in one transaction under the per-user lock. Queued audit
// entries for the user are held back while the transaction runs, anonymized once
// it commits and released unchanged when it fails. Audit entries for the erasure
// carry only a keyed hash of the user id.
func (c *complianceUseCase) Erase(
	ctx context.Context,
	req complianceDomain.Request,
) (*complianceDomain.ErasureManifest, error) {
	if err := c.validate(req, complianceDomain.RequestErase); err != nil {
		return nil, err
	}

	start := c.clock.Now()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	subjectRef := c.hasher.HashValue(req.UserID)

	c.audit.Record(ctx, auditUseCase.RecordInput{
		CorrelationID: req.CorrelationID,
		Action:        auditDomain.ActionEraseStarted,
		ResourceType:  auditDomain.ResourceUser,
		IPAddress:     req.RequesterIP,
		Metadata:      map[string]any{"subject_ref": subjectRef},
	})

	c.scrubber.ScrubUser(req.UserID)
	committed := false
	defer func() {
		if !committed {
			c.scrubber.ReleaseUser(req.UserID)
		}
	}()

	manifest := &complianceDomain.ErasureManifest{
		CorrelationID: req.CorrelationID,
		Deleted:       make(map[string]int64),
	}

	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := c.locker.LockUser(ctx, req.UserID); err != nil {
			return err
		}

		for _, table := range c.cfg.Registry {
			count, err := c.userData.DeleteRows(ctx, table, req.UserID)
			if err != nil {
				return err
			}
			if count > 0 {
				manifest.Deleted[table.Domain] = count
			}
		}

		anonymized, err := c.auditLogRepo.Anonymize(ctx, c.cfg.Policy.ForUser(req.UserID, c.clock.Now()))
		if err != nil {
			return err
		}
		manifest.AnonymizedAuditRows = anonymized

		return nil
	})
	if err != nil {
		duration := c.clock.Since(start)
		c.audit.Record(context.WithoutCancel(ctx), auditUseCase.RecordInput{
			CorrelationID: req.CorrelationID,
			Action:        auditDomain.ActionEraseFailed,
			ResourceType:  auditDomain.ResourceUser,
			IPAddress:     req.RequesterIP,
			Metadata:      map[string]any{"subject_ref": subjectRef},
			Duration:      &duration,
			Err:           err,
		})

		c.logger.Error("user erasure failed",
			slog.String("correlation_id", req.CorrelationID.String()),
			slog.Any("error", err),
		)

		return nil, &complianceDomain.RequestError{CorrelationID: req.CorrelationID, Type: req.Type, Err: err}
	}

	committed = true
	scrubbed := c.scrubber.CommitScrub(req.UserID)

	manifest.CompletedAt = c.clock.Now().UTC()
	duration := manifest.CompletedAt.Sub(start)

	deleted := make(map[string]any, len(manifest.Deleted))
	for domain, count := range manifest.Deleted {
		deleted[domain] = count
	}

	c.audit.Record(ctx, auditUseCase.RecordInput{
		CorrelationID: req.CorrelationID,
		Action:        auditDomain.ActionEraseCompleted,
		ResourceType:  auditDomain.ResourceUser,
		IPAddress:     req.RequesterIP,
		Metadata: map[string]any{
			"subject_ref":           subjectRef,
			"deleted":               deleted,
			"anonymized_audit_rows": manifest.AnonymizedAuditRows,
			"scrubbed_queued":       scrubbed,
		},
		Duration: &duration,
	})

	c.logger.Info("user erased",
		slog.String("correlation_id", req.CorrelationID.String()),
		slog.Int64("count", manifest.DeletedTotal()),
		slog.Int64("anonymized_audit_rows", manifest.AnonymizedAuditRows),
	)

	return manifest, nil
}

func (c *complianceUseCase) validate(req complianceDomain.Request, want complianceDomain.RequestType) error {
	if req.Type != want {
		return &complianceDomain.RequestError{
			CorrelationID: req.CorrelationID,
			Type:          want,
			Err:           complianceDomain.ErrRequestTypeMismatch,
		}
	}
	if err := req.Validate(); err != nil {
		return &complianceDomain.RequestError{CorrelationID: req.CorrelationID, Type: want, Err: err}
	}
	return nil
}

func (c *complianceUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// NewComplianceUseCase creates a ComplianceUseCase. The registry must already be
// validated.
func NewComplianceUseCase(
	txManager database.TxManager,
	locker database.UserLocker,
	userData UserDataRepository,
	auditLogRepo auditUseCase.AuditLogRepository,
	audit auditUseCase.AuditLogUseCase,
	scrubber AuditScrubber,
	cipher cryptoService.FieldCipher,
	hasher auditService.StateHasher,
	cfg Config,
	clock clockwork.Clock,
	logger *slog.Logger,
) ComplianceUseCase {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &complianceUseCase{
		txManager:    txManager,
		locker:       locker,
		userData:     userData,
		auditLogRepo: auditLogRepo,
		audit:        audit,
		scrubber:     scrubber,
		cipher:       cipher,
		hasher:       hasher,
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
	}
}
