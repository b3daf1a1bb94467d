package azauth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SPNBindingError is returned when a token was issued to a different
// application than the configured clientId.
type SPNBindingError struct {
	ExpectedClient string
	ActualClient   string
}

func (e *SPNBindingError) Error() string {
	return fmt.Sprintf(
		"token was issued to client %s, but the configured clientId is %s",
		e.ActualClient, e.ExpectedClient,
	)
}

// SPNTenantMismatchError is returned when the token's tid claim does not
// match the configured tenantId.
type SPNTenantMismatchError struct {
	ConfigTenant   string
	JWTTenantClaim string
}

func (e *SPNTenantMismatchError) Error() string {
	return fmt.Sprintf(
		"token 'tid' claim (%s) does not match the configured tenantId (%s)",
		e.JWTTenantClaim, e.ConfigTenant,
	)
}

// ValidateTokenBinding checks the tid and appid/azp claims of an access
// token against sp. The signature is not verified here; Entra ID issued the
// token and ARM rejects tampered ones. Undecodable tokens are not an error.
func ValidateTokenBinding(rawToken string, sp *ServicePrincipal) error {
	claims, err := decodeJWTClaims(rawToken)
	if err != nil {
		return nil
	}

	if tid, ok := claims["tid"].(string); ok && tid != "" {
		if !strings.EqualFold(tid, sp.TenantID) {
			return &SPNTenantMismatchError{ConfigTenant: sp.TenantID, JWTTenantClaim: tid}
		}
	}

	for _, claim := range []string{"appid", "azp"} {
		if appID, ok := claims[claim].(string); ok && appID != "" {
			if !strings.EqualFold(appID, sp.ClientID) {
				return &SPNBindingError{ExpectedClient: sp.ClientID, ActualClient: appID}
			}
			return nil
		}
	}
	return nil
}

func decodeJWTClaims(rawToken string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("decoding JWT: %w", err)
	}
	return claims, nil
}
