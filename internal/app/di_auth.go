package app

import (
	authService "github.com/heirclark/dataguard/internal/auth/service"
)

// APITokenService returns the operator API token service.
func (c *Container) APITokenService() authService.APITokenService {
	c.apiTokenServiceInit.Do(func() {
		c.apiTokenService = authService.NewAPITokenService()
	})
	return c.apiTokenService
}
