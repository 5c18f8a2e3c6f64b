package remote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceClaims identifies this device and its active tenant to the
// remote system. The remote treats the token as opaque; signing keeps a
// misconfigured device from posting into another tenant's dataset.
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// tokenExpiry keeps device tokens short-lived; the client re-signs per
// request batch, so expiry only bounds replay.
const tokenExpiry = 15 * time.Minute

// signDeviceToken creates a signed device token.
func signDeviceToken(secret, deviceID, tenantID string, now time.Time) (string, error) {
	claims := DeviceClaims{
		DeviceID: deviceID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing device token: %w", err)
	}
	return signed, nil
}
