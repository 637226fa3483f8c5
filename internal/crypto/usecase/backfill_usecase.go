package usecase

import (
	"context"
	"log/slog"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	auditUseCase "github.com/heirclark/dataguard/internal/audit/usecase"
	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	cryptoService "github.com/heirclark/dataguard/internal/crypto/service"
	"github.com/heirclark/dataguard/internal/database"
	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// DefaultBackfillBatchSize is used when BackfillInput.BatchSize is not positive.
const DefaultBackfillBatchSize = 500

// backfillUseCase implements BackfillUseCase.
type backfillUseCase struct {
	txManager database.TxManager
	repo      BackfillRepository
	cipher    cryptoService.FieldCipher
	audit     auditUseCase.AuditLogUseCase
	logger    *slog.Logger
}

// Run walks the pending rows in id order and encrypts each one. Every batch is
// written in its own transaction and counted only once it commits.
func (b *backfillUseCase) Run(ctx context.Context, input BackfillInput) (*cryptoDomain.BackfillResult, error) {
	if err := input.Target.Validate(); err != nil {
		return nil, err
	}

	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBackfillBatchSize
	}

	target := input.Target
	result := &cryptoDomain.BackfillResult{DryRun: input.DryRun}
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rows, err := b.repo.FetchPending(ctx, target, afterID, batchSize)
		if err != nil {
			return result, apperrors.Wrap(err, "failed to fetch pending rows")
		}
		if len(rows) == 0 {
			break
		}

		var batch cryptoDomain.BackfillResult
		if input.DryRun {
			batch = b.scan(rows, target)
		} else {
			err = b.txManager.WithTx(ctx, func(ctx context.Context) error {
				var txErr error
				batch, txErr = b.encryptBatch(ctx, rows, input)
				return txErr
			})
			if err != nil {
				return result, err
			}
		}

		result.Scanned += batch.Scanned
		result.Encrypted += batch.Encrypted
		result.Skipped += batch.Skipped
		afterID = rows[len(rows)-1].ID

		b.logger.Info("backfill batch processed",
			slog.String("table", target.Table),
			slog.String("field", target.EnvelopeColumn),
			slog.Int64("count", result.Scanned),
		)

		if len(rows) < batchSize {
			break
		}
	}

	if !input.DryRun {
		b.audit.Record(ctx, auditUseCase.RecordInput{
			Action:       auditDomain.ActionBackfillCompleted,
			ResourceType: auditDomain.ResourceTable,
			ResourceID:   &target.Table,
			Metadata: map[string]any{
				"field":           target.EnvelopeColumn,
				"scanned":         result.Scanned,
				"encrypted":       result.Encrypted,
				"skipped":         result.Skipped,
				"key_version":     b.cipher.CurrentKeyVersion(),
				"plaintext_clear": input.ClearPlaintext,
			},
		})
	}

	return result, nil
}

// scan counts a batch without writing.
func (b *backfillUseCase) scan(rows []cryptoDomain.BackfillRow, target cryptoDomain.BackfillTarget) cryptoDomain.BackfillResult {
	var batch cryptoDomain.BackfillResult
	for _, row := range rows {
		batch.Scanned++
		if b.envelopeShaped(row, target) {
			batch.Skipped++
		}
	}
	return batch
}

func (b *backfillUseCase) encryptBatch(
	ctx context.Context,
	rows []cryptoDomain.BackfillRow,
	input BackfillInput,
) (cryptoDomain.BackfillResult, error) {
	var batch cryptoDomain.BackfillResult
	target := input.Target

	for _, row := range rows {
		batch.Scanned++

		if b.envelopeShaped(row, target) {
			batch.Skipped++
			continue
		}

		envelope, err := b.cipher.Encrypt(row.Plaintext, target.Context)
		if err != nil {
			if apperrors.Is(err, cryptoDomain.ErrEmptyPlaintext) {
				batch.Skipped++
				continue
			}
			return batch, apperrors.Wrapf(err, "failed to encrypt row %s", row.ID)
		}

		stored, err := b.repo.StoreEnvelope(ctx, target, row.ID, envelope, input.ClearPlaintext)
		if err != nil {
			return batch, apperrors.Wrapf(err, "failed to store row %s", row.ID)
		}
		if !stored {
			batch.Skipped++
			continue
		}
		batch.Encrypted++
	}
	return batch, nil
}

func (b *backfillUseCase) envelopeShaped(row cryptoDomain.BackfillRow, target cryptoDomain.BackfillTarget) bool {
	if !b.cipher.IsEncrypted(row.Plaintext) {
		return false
	}
	b.logger.Warn("plaintext column already holds an envelope, skipping row",
		slog.String("table", target.Table),
		slog.String("field", target.EnvelopeColumn),
		slog.String("id", row.ID),
	)
	return true
}

// NewBackfillUseCase creates a new BackfillUseCase.
func NewBackfillUseCase(
	txManager database.TxManager,
	repo BackfillRepository,
	cipher cryptoService.FieldCipher,
	audit auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) BackfillUseCase {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &backfillUseCase{
		txManager: txManager,
		repo:      repo,
		cipher:    cipher,
		audit:     audit,
		logger:    logger,
	}
}
