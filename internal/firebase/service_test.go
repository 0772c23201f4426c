// File: internal/firebase/service_test.go
package firebase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
)

func TestMapSignInError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want *common.APIError
	}{
		{"email exists", "EMAIL_EXISTS", common.ErrCredentialTaken},
		{"weak password with explanation", "WEAK_PASSWORD : Password should be at least 6 characters", common.ErrWeakCredential},
		{"email not found", "EMAIL_NOT_FOUND", common.ErrInvalidCredential},
		{"invalid password", "INVALID_PASSWORD", common.ErrInvalidCredential},
		{"invalid login credentials", "INVALID_LOGIN_CREDENTIALS", common.ErrInvalidCredential},
		{"user disabled", "USER_DISABLED", common.ErrInvalidCredential},
		{"unknown code", "QUOTA_EXCEEDED", common.ErrServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapSignInError(tc.code), tc.want)
		})
	}
}
