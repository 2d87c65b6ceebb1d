package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNew_ClampsCost(t *testing.T) {
	t.Parallel()

	require.Equal(t, bcrypt.DefaultCost, New(0).Cost())
	require.Equal(t, bcrypt.MinCost, New(1).Cost())
	require.Equal(t, bcrypt.MaxCost, New(99).Cost())
	require.Equal(t, 6, New(6).Cost())
}

func TestHash_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)

	require.True(t, h.Verify("s3cret-pass", hash))
	require.False(t, h.Verify("wrong-pass", hash))
}

func TestHash_SaltedPerCall(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestHash_Errors(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	_, err := h.Hash("")
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Hash(strings.Repeat("x", 73))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerify_MalformedInputs(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	require.False(t, h.Verify("pass", "not-a-bcrypt-hash"))
	require.False(t, h.Verify("pass", ""))
	require.False(t, h.Verify("", "$2a$04$abcdefghijklmnopqrstuv"))
}
