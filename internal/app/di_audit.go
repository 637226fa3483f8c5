package app

import (
	"fmt"
	"log/slog"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	auditHTTP "github.com/heirclark/dataguard/internal/audit/http"
	auditRepository "github.com/heirclark/dataguard/internal/audit/repository"
	auditService "github.com/heirclark/dataguard/internal/audit/service"
	auditUseCase "github.com/heirclark/dataguard/internal/audit/usecase"
	"github.com/heirclark/dataguard/internal/database"
	"github.com/heirclark/dataguard/internal/metrics"
)

// StateHasher returns the keyed hasher for audit state and subject references.
func (c *Container) StateHasher() (auditService.StateHasher, error) {
	var err error
	c.stateHasherInit.Do(func() {
		c.stateHasher, err = c.initStateHasher()
		if err != nil {
			c.initErrors["stateHasher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["stateHasher"]; exists {
		return nil, storedErr
	}
	return c.stateHasher, nil
}

// AuditLogRepository returns the audit log repository based on database driver.
func (c *Container) AuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	var err error
	c.auditLogRepositoryInit.Do(func() {
		c.auditLogRepository, err = c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditLogRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogRepository"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepository, nil
}

// AuditSink returns the running audit sink. Shutdown stops it and drains the queue.
func (c *Container) AuditSink() (*auditUseCase.AuditSink, error) {
	var err error
	c.auditSinkInit.Do(func() {
		c.auditSink, err = c.initAuditSink()
		if err != nil {
			c.initErrors["auditSink"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSink"]; exists {
		return nil, storedErr
	}
	return c.auditSink, nil
}

// AuditLogUseCase returns the audit log use case.
func (c *Container) AuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	var err error
	c.auditLogUseCaseInit.Do(func() {
		c.auditLogUseCase, err = c.initAuditLogUseCase()
		if err != nil {
			c.initErrors["auditLogUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditLogUseCase, nil
}

// AuditLogHandler returns the HTTP handler for audit log reads.
func (c *Container) AuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	var err error
	c.auditLogHandlerInit.Do(func() {
		c.auditLogHandler, err = c.initAuditLogHandler()
		if err != nil {
			c.initErrors["auditLogHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogHandler"]; exists {
		return nil, storedErr
	}
	return c.auditLogHandler, nil
}

// AnonymizationPolicy returns the policy shared by erasure and retention.
func (c *Container) AnonymizationPolicy() auditDomain.AnonymizationPolicy {
	return auditDomain.AnonymizationPolicy{RetentionDays: c.config.AuditRetentionDays}
}

// initStateHasher derives the state hasher from the master key.
func (c *Container) initStateHasher() (auditService.StateHasher, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, err
	}
	return auditService.NewStateHasher(masterKey)
}

// initAuditLogRepository creates the audit log repository for the configured driver.
func (c *Container) initAuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return auditRepository.NewMySQLAuditLogRepository(db), nil
	case database.DriverPostgres, database.DriverPgx:
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditSink creates and starts the audit sink, and exports its queue depth
// when metrics are enabled.
func (c *Container) initAuditSink() (*auditUseCase.AuditSink, error) {
	repo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit sink: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit sink: %w", err)
	}

	sink := auditUseCase.NewAuditSink(repo, c.Logger(), businessMetrics, c.Clock(), auditUseCase.SinkConfig{
		BatchSize:       c.config.AuditBatchSize,
		FlushInterval:   c.config.AuditFlushInterval,
		FlushTimeout:    c.config.AuditFlushTimeout,
		MaxQueueSize:    c.config.AuditMaxQueueSize,
		BreakerFailures: uint32(max(c.config.AuditBreakerFailures, 1)),
	})

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for audit sink: %w", err)
	}
	if provider != nil {
		if err := metrics.RegisterQueueDepth(provider.MeterProvider(), c.config.MetricsNamespace, sink.Len); err != nil {
			c.Logger().Warn("failed to register audit queue depth gauge", slog.Any("error", err))
		}
	}

	sink.Start()
	return sink, nil
}

// initAuditLogUseCase creates the audit log use case with all its dependencies.
func (c *Container) initAuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	sink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for audit log use case: %w", err)
	}

	repo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit log use case: %w", err)
	}

	hasher, err := c.StateHasher()
	if err != nil {
		return nil, fmt.Errorf("failed to get state hasher for audit log use case: %w", err)
	}

	baseUseCase := auditUseCase.NewAuditLogUseCase(
		sink,
		repo,
		hasher,
		c.AnonymizationPolicy(),
		c.Clock(),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for audit log use case: %w", err)
		}
		return auditUseCase.NewAuditLogUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuditLogHandler creates the audit log handler.
func (c *Container) initAuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for audit log handler: %w", err)
	}
	return auditHTTP.NewAuditLogHandler(auditLogUseCase, c.Logger()), nil
}
