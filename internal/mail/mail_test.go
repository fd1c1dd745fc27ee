package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposerVerifyEmail(t *testing.T) {
	c := Composer{ClientURL: "http://app.local/", TokenTTL: 24 * time.Hour}
	m, err := c.VerifyEmail("a@x.com", "tok.en+1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", m.To)
	assert.Equal(t, "Email Verification", m.Subject)
	assert.Contains(t, m.HTML, "http://app.local/verify-email?token=tok.en%2B1")
	assert.Contains(t, m.HTML, "24h0m0s")
}

func TestComposerResetPasswordEscapesRecipient(t *testing.T) {
	c := Composer{ClientURL: "http://app.local"}
	m, err := c.ResetPassword("<b>@x.com", "t")
	require.NoError(t, err)
	assert.Contains(t, m.HTML, "/reset-password?token=t")
	assert.NotContains(t, m.HTML, "<b>@x.com")
}
