package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

var subject = Subject{UserID: id.NewUserID(), Name: "Vic Vendor", Role: "vendor", VendorID: id.NewVendorID()}

func TestIssueAndValidate(t *testing.T) {
	svc := New("test-signing-key", "contracts")

	signed, expiresAt, err := svc.Issue(subject, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	got, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, subject, *got)
}

func TestValidateRejects(t *testing.T) {
	svc := New("test-signing-key", "contracts")

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		past := New("test-signing-key", "contracts", WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
		signed, _, err := past.Issue(subject, time.Hour)
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		require.Error(t, err)
		assert.Equal(t, "session has expired", dErrors.MessageOf(err))
	})

	t.Run("other key", func(t *testing.T) {
		signed, _, err := New("another-key", "contracts").Issue(subject, time.Hour)
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("other issuer", func(t *testing.T) {
		signed, _, err := New("test-signing-key", "elsewhere").Issue(subject, time.Hour)
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestStaffTokenOmitsVendor(t *testing.T) {
	svc := New("k", "contracts")
	signed, _, err := svc.Issue(Subject{UserID: id.NewUserID(), Name: "Dana", Role: "admin"}, time.Minute)
	require.NoError(t, err)
	got, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.True(t, got.VendorID.IsNil())
}
