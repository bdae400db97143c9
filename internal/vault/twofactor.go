package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrTwoFactorEnabled    = errors.New("vault: two-factor already enabled")
	ErrTwoFactorNotEnabled = errors.New("vault: two-factor not enabled")
)

// TwoFactor manages the optional TOTP second factor for unlocking the vault.
// The secret lives in an owner-only JSON file next to the other vault state.
type TwoFactor struct {
	Path   string
	Issuer string
}

type twoFactorState struct {
	Secret  string `json:"secret"`
	Enabled bool   `json:"enabled"`
}

// EnrollResult carries what the user needs to configure their authenticator.
type EnrollResult struct {
	Secret string
	URL    string // otpauth:// provisioning URL
}

func (t *TwoFactor) load() (twoFactorState, error) {
	var state twoFactorState
	data, err := os.ReadFile(t.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("failed to read two-factor state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return twoFactorState{}, fmt.Errorf("two-factor state is corrupt: %w", err)
	}
	return state, nil
}

func (t *TwoFactor) save(state twoFactorState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode two-factor state: %w", err)
	}
	if err := os.WriteFile(t.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write two-factor state: %w", err)
	}
	return nil
}

// Enabled reports whether a verified TOTP secret is active.
func (t *TwoFactor) Enabled() bool {
	state, err := t.load()
	return err == nil && state.Enabled
}

// Enroll generates a new TOTP secret and provisioning URL. The secret is
// stored but not enabled until the first successful Verify, so a user who
// never finishes authenticator setup is not locked out.
func (t *TwoFactor) Enroll(account string) (EnrollResult, error) {
	state, err := t.load()
	if err != nil {
		return EnrollResult{}, err
	}
	if state.Enabled {
		return EnrollResult{}, ErrTwoFactorEnabled
	}

	issuer := t.Issuer
	if issuer == "" {
		issuer = "Secure Password Manager"
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return EnrollResult{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := t.save(twoFactorState{Secret: key.Secret(), Enabled: false}); err != nil {
		return EnrollResult{}, err
	}
	return EnrollResult{Secret: key.Secret(), URL: key.URL()}, nil
}

// Verify checks a TOTP code against the enrolled secret. The first valid
// code after enrollment activates two-factor.
func (t *TwoFactor) Verify(code string) (bool, error) {
	state, err := t.load()
	if err != nil {
		return false, err
	}
	if state.Secret == "" {
		return false, ErrTwoFactorNotEnabled
	}

	if !totp.Validate(code, state.Secret) {
		return false, nil
	}

	if !state.Enabled {
		state.Enabled = true
		if err := t.save(state); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Disable removes the enrolled secret.
func (t *TwoFactor) Disable() error {
	if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove two-factor state: %w", err)
	}
	return nil
}
