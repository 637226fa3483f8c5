package app

import (
	"fmt"

	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	cryptoRepository "github.com/heirclark/dataguard/internal/crypto/repository"
	cryptoService "github.com/heirclark/dataguard/internal/crypto/service"
	cryptoUseCase "github.com/heirclark/dataguard/internal/crypto/usecase"
)

// MasterKey returns the master key parsed from ENCRYPTION_MASTER_KEY.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	var err error
	c.masterKeyInit.Do(func() {
		c.masterKey, err = c.initMasterKey()
		if err != nil {
			c.initErrors["masterKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// KeyDeriver returns the HKDF subkey deriver.
func (c *Container) KeyDeriver() (*cryptoService.KeyDeriver, error) {
	var err error
	c.keyDeriverInit.Do(func() {
		c.keyDeriver, err = c.initKeyDeriver()
		if err != nil {
			c.initErrors["keyDeriver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyDeriver"]; exists {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// FieldCipher returns the envelope cipher writing with ENCRYPTION_KEY_VERSION.
func (c *Container) FieldCipher() (cryptoService.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		c.fieldCipher, err = c.initFieldCipher()
		if err != nil {
			c.initErrors["fieldCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// BackfillRepository returns the backfill repository based on database driver.
func (c *Container) BackfillRepository() (cryptoUseCase.BackfillRepository, error) {
	var err error
	c.backfillRepositoryInit.Do(func() {
		c.backfillRepository, err = c.initBackfillRepository()
		if err != nil {
			c.initErrors["backfillRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backfillRepository"]; exists {
		return nil, storedErr
	}
	return c.backfillRepository, nil
}

// BackfillUseCase returns the encryption backfill use case.
func (c *Container) BackfillUseCase() (cryptoUseCase.BackfillUseCase, error) {
	var err error
	c.backfillUseCaseInit.Do(func() {
		c.backfillUseCase, err = c.initBackfillUseCase()
		if err != nil {
			c.initErrors["backfillUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backfillUseCase"]; exists {
		return nil, storedErr
	}
	return c.backfillUseCase, nil
}

// initMasterKey parses the configured master key. A missing or malformed key is
// fatal at startup.
func (c *Container) initMasterKey() (*cryptoDomain.MasterKey, error) {
	masterKey, err := cryptoDomain.ParseMasterKey(c.config.EncryptionMasterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	return masterKey, nil
}

// initKeyDeriver creates the key deriver from the master key.
func (c *Container) initKeyDeriver() (*cryptoService.KeyDeriver, error) {
	masterKey, err := c.MasterKey()
	if err != nil {
		return nil, err
	}
	return cryptoService.NewKeyDeriver(masterKey)
}

// initFieldCipher creates the envelope cipher.
func (c *Container) initFieldCipher() (*cryptoService.EnvelopeCipher, error) {
	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for field cipher: %w", err)
	}
	return cryptoService.NewEnvelopeCipher(keyDeriver, c.config.EncryptionKeyVersion, c.Logger())
}

// initBackfillRepository creates the backfill repository for the configured driver.
func (c *Container) initBackfillRepository() (cryptoUseCase.BackfillRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for backfill repository: %w", err)
	}
	return cryptoRepository.NewBackfillRepository(c.config.DBDriver, db), nil
}

// initBackfillUseCase creates the backfill use case with all its dependencies.
func (c *Container) initBackfillUseCase() (cryptoUseCase.BackfillUseCase, error) {
	repo, err := c.BackfillRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get backfill repository for backfill use case: %w", err)
	}

	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for backfill use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for backfill use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for backfill use case: %w", err)
	}

	baseUseCase := cryptoUseCase.NewBackfillUseCase(txManager, repo, fieldCipher, auditLogUseCase, c.Logger())

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for backfill use case: %w", err)
		}
		return cryptoUseCase.NewBackfillUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
