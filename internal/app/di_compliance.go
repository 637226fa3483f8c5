package app

import (
	"fmt"

	complianceDomain "github.com/heirclark/dataguard/internal/compliance/domain"
	complianceHTTP "github.com/heirclark/dataguard/internal/compliance/http"
	complianceRepository "github.com/heirclark/dataguard/internal/compliance/repository"
	complianceUseCase "github.com/heirclark/dataguard/internal/compliance/usecase"
)

// Registry returns the in-scope user data tables.
func (c *Container) Registry() complianceDomain.Registry {
	return complianceDomain.DefaultRegistry()
}

// UserDataRepository returns the user data repository based on database driver.
func (c *Container) UserDataRepository() (complianceUseCase.UserDataRepository, error) {
	var err error
	c.userDataRepositoryInit.Do(func() {
		c.userDataRepository, err = c.initUserDataRepository()
		if err != nil {
			c.initErrors["userDataRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userDataRepository"]; exists {
		return nil, storedErr
	}
	return c.userDataRepository, nil
}

// ComplianceUseCase returns the export and erasure use case.
func (c *Container) ComplianceUseCase() (complianceUseCase.ComplianceUseCase, error) {
	var err error
	c.complianceUseCaseInit.Do(func() {
		c.complianceUseCase, err = c.initComplianceUseCase()
		if err != nil {
			c.initErrors["complianceUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["complianceUseCase"]; exists {
		return nil, storedErr
	}
	return c.complianceUseCase, nil
}

// ComplianceHandler returns the HTTP handler for export and erasure.
func (c *Container) ComplianceHandler() (*complianceHTTP.ComplianceHandler, error) {
	var err error
	c.complianceHandlerInit.Do(func() {
		c.complianceHandler, err = c.initComplianceHandler()
		if err != nil {
			c.initErrors["complianceHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["complianceHandler"]; exists {
		return nil, storedErr
	}
	return c.complianceHandler, nil
}

// initUserDataRepository creates the user data repository for the configured driver.
func (c *Container) initUserDataRepository() (complianceUseCase.UserDataRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user data repository: %w", err)
	}
	return complianceRepository.NewUserDataRepository(c.config.DBDriver, db), nil
}

// initComplianceUseCase creates the compliance use case with all its dependencies.
// The registry is validated here so a bad table definition fails startup.
func (c *Container) initComplianceUseCase() (complianceUseCase.ComplianceUseCase, error) {
	registry := c.Registry()
	if err := registry.Validate(); err != nil {
		return nil, err
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for compliance use case: %w", err)
	}

	locker, err := c.UserLocker()
	if err != nil {
		return nil, fmt.Errorf("failed to get user locker for compliance use case: %w", err)
	}

	userData, err := c.UserDataRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user data repository for compliance use case: %w", err)
	}

	auditLogRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for compliance use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for compliance use case: %w", err)
	}

	sink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for compliance use case: %w", err)
	}

	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for compliance use case: %w", err)
	}

	hasher, err := c.StateHasher()
	if err != nil {
		return nil, fmt.Errorf("failed to get state hasher for compliance use case: %w", err)
	}

	baseUseCase := complianceUseCase.NewComplianceUseCase(
		txManager,
		locker,
		userData,
		auditLogRepo,
		auditLogUseCase,
		sink,
		fieldCipher,
		hasher,
		complianceUseCase.Config{
			Registry: registry,
			Policy:   c.AnonymizationPolicy(),
			Timeout:  c.config.DBStatementTimeout,
		},
		c.Clock(),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for compliance use case: %w", err)
		}
		return complianceUseCase.NewComplianceUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initComplianceHandler creates the compliance handler.
func (c *Container) initComplianceHandler() (*complianceHTTP.ComplianceHandler, error) {
	useCase, err := c.ComplianceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get compliance use case for compliance handler: %w", err)
	}
	return complianceHTTP.NewComplianceHandler(useCase, c.Logger()), nil
}
