package auth

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-0123456789")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, ttl time.Duration) (*TokenCodec, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec, err := NewTokenCodec(testSecret, ttl, WithClock(clock.Now))
	require.NoError(t, err)
	return codec, clock
}

// signRaw signs an arbitrary header and payload with HS256.
func signRaw(t *testing.T, header, payload string, secret []byte) string {
	t.Helper()
	input := base64.RawURLEncoding.EncodeToString([]byte(header)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(payload))
	sig, err := jwt.SigningMethodHS256.Sign(input, secret)
	require.NoError(t, err)
	return input + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestNewTokenCodec_RejectsBadConfig(t *testing.T) {
	_, err := NewTokenCodec(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewTokenCodec(testSecret, 0)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	codec, clock := newTestCodec(t, 24*time.Hour)

	token, err := codec.Issue("user-123")
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.True(t, claims.IssuedAt.Time.Equal(clock.now))
	assert.True(t, claims.ExpiresAt.Time.Equal(clock.now.Add(24*time.Hour)))
	assert.NotEmpty(t, claims.ID)
}

func TestIssue_UniqueTokens(t *testing.T) {
	codec, _ := newTestCodec(t, time.Hour)

	a, err := codec.Issue("user-1")
	require.NoError(t, err)
	b, err := codec.Issue("user-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIssue_RequiresSubject(t *testing.T) {
	codec, _ := newTestCodec(t, time.Hour)
	_, err := codec.Issue("")
	assert.Error(t, err)
}

func TestVerify_Expiry(t *testing.T) {
	codec, clock := newTestCodec(t, time.Hour)
	token, err := codec.Issue("user-1")
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour - time.Second)
	_, err = codec.Verify(token)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	clock.now = clock.now.Add(30 * 24 * time.Hour)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_TamperedByteIsBadSignature(t *testing.T) {
	codec, _ := newTestCodec(t, time.Hour)
	token, err := codec.Issue("user-1")
	require.NoError(t, err)

	for i := range token {
		if token[i] == '.' {
			continue
		}
		tampered := []byte(token)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}

		_, err := codec.Verify(string(tampered))
		assert.ErrorIs(t, err, ErrTokenBadSignature, "byte %d", i)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	codec, _ := newTestCodec(t, time.Hour)
	other, err := NewTokenCodec([]byte("another-secret"), time.Hour)
	require.NoError(t, err)

	token, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	codec, clock := newTestCodec(t, time.Hour)
	exp := clock.now.Add(time.Hour).Unix()
	iat := clock.now.Unix()

	header := `{"alg":"HS256","typ":"JWT"}`
	cases := map[string]string{
		"empty":            "",
		"one segment":      "abc",
		"two segments":     "abc.def",
		"four segments":    "a.b.c.d",
		"payload not json": signRaw(t, header, `not json`, testSecret),
		"missing subject":  signRaw(t, header, fmt.Sprintf(`{"iat":%d,"exp":%d}`, iat, exp), testSecret),
		"missing expiry":   signRaw(t, header, fmt.Sprintf(`{"sub":"user-1","iat":%d}`, iat), testSecret),
		"other alg in header": signRaw(t, `{"alg":"HS384","typ":"JWT"}`,
			fmt.Sprintf(`{"sub":"user-1","iat":%d,"exp":%d}`, iat, exp), testSecret),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(token)
			assert.ErrorIs(t, err, ErrTokenMalformed)
		})
	}
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	codec, clock := newTestCodec(t, time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(clock.now),
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrTokenBadSignature)
}
