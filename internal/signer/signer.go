package signer

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

// ErrManagedKeysDisabled is returned when an account is requested but no
// KeyManager is configured.
var ErrManagedKeysDisabled = errors.New("managed accounts are not enabled")

// Signer resolves request credentials into identities. The KeyManager is
// optional; without it only raw private keys are accepted.
type Signer struct {
	keyManager KeyManager
	log        logrus.FieldLogger
}

// NewSigner creates a new Signer with a given KeyManager, which may be nil.
func NewSigner(keyManager KeyManager, log logrus.FieldLogger) *Signer {
	return &Signer{
		keyManager: keyManager,
		log:        log,
	}
}

// ManagedEnabled reports whether a KeyManager is configured.
func (s *Signer) ManagedEnabled() bool {
	return s.keyManager != nil
}

// Resolve returns the identity for a request. A non-empty account selects a
// managed key; otherwise privateKey is used.
func (s *Signer) Resolve(privateKey, account string) (*Identity, error) {
	if account != "" {
		if s.keyManager == nil {
			return nil, ErrManagedKeysDisabled
		}
		addr, err := validator.ParseAddress(account)
		if err != nil {
			return nil, err
		}
		return Managed(s.keyManager, addr)
	}

	id, err := FromPrivateKey(privateKey)
	if err != nil {
		s.log.WithField("key", format.SanitizePrivateKey(privateKey)).Debug("rejected private key")
		return nil, err
	}
	s.log.WithField("address", id.Address().Hex()).Debug("signer bound")
	return id, nil
}

// GetAccounts returns the list of accounts managed by the underlying KeyManager.
func (s *Signer) GetAccounts() []common.Address {
	if s.keyManager == nil {
		return nil
	}
	return s.keyManager.GetAccounts()
}

// CreateKey creates a new account in the KeyManager and returns its address.
func (s *Signer) CreateKey() (common.Address, error) {
	if s.keyManager == nil {
		return common.Address{}, ErrManagedKeysDisabled
	}
	return s.keyManager.CreateKey()
}
