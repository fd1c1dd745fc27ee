package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
)

func testManager() *Manager {
	return NewManager(Config{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    7 * 24 * time.Hour,
		PurposeTTL:    time.Hour,
		Issuer:        "test",
	})
}

func TestSignPairAndVerify(t *testing.T) {
	m := testManager()
	p := Payload{UserID: "u-1", Role: model.RoleInstructor, Verify: model.Verified}

	pair, err := m.SignPair(p)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access.Token, pair.Refresh.Token)
	assert.True(t, pair.Refresh.ExpiresAt.After(pair.Access.ExpiresAt))

	ac, err := m.VerifyAccess(pair.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, p, ac.Payload())
	assert.Equal(t, KindAccess, ac.Type)

	rc, err := m.VerifyRefresh(pair.Refresh.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", rc.UserID)
	assert.Equal(t, pair.Refresh.ExpiresAt.Unix(), rc.ExpiresAt.Unix())
}

func TestTokensAreUniqueWithinTheSameSecond(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := testManager().WithClock(func() time.Time { return fixed })
	a, err := m.SignRefresh(Payload{UserID: "u"})
	require.NoError(t, err)
	b, err := m.SignRefresh(Payload{UserID: "u"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestVerifyClassifiesFailures(t *testing.T) {
	m := testManager()
	past := m.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })

	expired, err := past.SignAccess(Payload{UserID: "u"})
	require.NoError(t, err)
	good, err := m.SignAccess(Payload{UserID: "u"})
	require.NoError(t, err)

	foreign := NewManager(Config{AccessSecret: "other", AccessTTL: time.Minute})
	forged, err := foreign.SignAccess(Payload{UserID: "u"})
	require.NoError(t, err)

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"missing", "  ", ErrMissing},
		{"expired", expired.Token, ErrExpired},
		{"bad signature", forged.Token, ErrInvalid},
		{"garbage", "not.a.jwt", ErrInvalid},
		{"tampered", good.Token + "x", ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.VerifyAccess(tc.raw)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	m := testManager()
	pair, err := m.SignPair(Payload{UserID: "u"})
	require.NoError(t, err)
	verify, err := m.SignPurpose("u", KindEmailVerify)
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrInvalid, "refresh secret differs")
	_, err = m.VerifyRefresh(pair.Access.Token)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = m.VerifyAccess(verify.Token)
	assert.ErrorIs(t, err, ErrInvalid, "same secret, wrong typ")
	_, err = m.VerifyPurpose(pair.Access.Token, KindEmailVerify)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = m.VerifyPurpose(verify.Token, KindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalid)

	c, err := m.VerifyPurpose(verify.Token, KindEmailVerify)
	require.NoError(t, err)
	assert.Equal(t, "u", c.UserID)
}

func TestSignPurposeRejectsSessionKinds(t *testing.T) {
	_, err := testManager().SignPurpose("u", KindAccess)
	assert.Error(t, err)
}

func TestAsAppError(t *testing.T) {
	assert.Equal(t, apperr.CodeTokenMissing, apperr.CodeOf(AsAppError(ErrMissing)))
	assert.Equal(t, apperr.CodeTokenExpired, apperr.CodeOf(AsAppError(ErrExpired)))
	assert.Equal(t, apperr.CodeTokenInvalid, apperr.CodeOf(AsAppError(ErrInvalid)))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(AsAppError(ErrExpired)))
	assert.NoError(t, AsAppError(nil))
}
