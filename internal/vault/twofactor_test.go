package vault

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorEnrollAndVerify(t *testing.T) {
	t.Parallel()

	tf := &TwoFactor{Path: filepath.Join(t.TempDir(), "2fa.json")}
	require.False(t, tf.Enabled())

	res, err := tf.Enroll("user@local")
	require.NoError(t, err)
	require.NotEmpty(t, res.Secret)
	require.Contains(t, res.URL, "otpauth://totp/")

	// Not active until the first valid code is seen.
	require.False(t, tf.Enabled())

	code, err := totp.GenerateCode(res.Secret, time.Now())
	require.NoError(t, err)

	ok, err := tf.Verify(code)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, tf.Enabled())
}

func TestTwoFactorRejectsBadCode(t *testing.T) {
	t.Parallel()

	tf := &TwoFactor{Path: filepath.Join(t.TempDir(), "2fa.json")}
	_, err := tf.Enroll("user@local")
	require.NoError(t, err)

	ok, err := tf.Verify("000000")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, tf.Enabled())
}

func TestTwoFactorVerifyWithoutEnroll(t *testing.T) {
	t.Parallel()

	tf := &TwoFactor{Path: filepath.Join(t.TempDir(), "2fa.json")}
	_, err := tf.Verify("123456")
	require.ErrorIs(t, err, ErrTwoFactorNotEnabled)
}

func TestTwoFactorEnrollTwice(t *testing.T) {
	t.Parallel()

	tf := &TwoFactor{Path: filepath.Join(t.TempDir(), "2fa.json")}
	res, err := tf.Enroll("user@local")
	require.NoError(t, err)

	code, err := totp.GenerateCode(res.Secret, time.Now())
	require.NoError(t, err)
	_, err = tf.Verify(code)
	require.NoError(t, err)

	// Once active, a second enrollment must not replace the secret.
	_, err = tf.Enroll("user@local")
	require.ErrorIs(t, err, ErrTwoFactorEnabled)
}

func TestTwoFactorDisable(t *testing.T) {
	t.Parallel()

	tf := &TwoFactor{Path: filepath.Join(t.TempDir(), "2fa.json")}
	res, err := tf.Enroll("user@local")
	require.NoError(t, err)

	code, err := totp.GenerateCode(res.Secret, time.Now())
	require.NoError(t, err)
	_, err = tf.Verify(code)
	require.NoError(t, err)

	require.NoError(t, tf.Disable())
	require.False(t, tf.Enabled())

	// Disabling an already clean state is fine.
	require.NoError(t, tf.Disable())
}
