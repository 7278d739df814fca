package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// LocalKeyManager manages keys stored locally on disk.
type LocalKeyManager struct {
	keyDir   string
	password string
	scryptN  int
	scryptP  int
	keys     map[common.Address]*ecdsa.PrivateKey
	mu       sync.RWMutex
	log      logrus.FieldLogger
}

// LocalOption tweaks a LocalKeyManager.
type LocalOption func(*LocalKeyManager)

// WithScrypt sets the scrypt cost used when encrypting new keys.
func WithScrypt(n, p int) LocalOption {
	return func(km *LocalKeyManager) {
		km.scryptN = n
		km.scryptP = p
	}
}

// NewLocalKeyManager creates a new LocalKeyManager and loads existing keys from disk.
func NewLocalKeyManager(keyDir, password string, log logrus.FieldLogger, opts ...LocalOption) (*LocalKeyManager, error) {
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	km := &LocalKeyManager{
		keyDir:   keyDir,
		password: password,
		scryptN:  keystore.StandardScryptN,
		scryptP:  keystore.StandardScryptP,
		keys:     make(map[common.Address]*ecdsa.PrivateKey),
		log:      log,
	}
	for _, opt := range opts {
		opt(km)
	}

	files, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		filePath := filepath.Join(keyDir, file.Name())
		keyJSON, err := os.ReadFile(filePath)
		if err != nil {
			log.Warnf("failed to read key file %s: %v", file.Name(), err)
			continue
		}
		key, err := keystore.DecryptKey(keyJSON, password)
		if err != nil {
			log.Warnf("failed to decrypt key file %s: %v", file.Name(), err)
			continue
		}
		km.keys[key.Address] = key.PrivateKey
		log.WithField("address", key.Address.Hex()).Info("loaded local key")
	}

	return km, nil
}

// CreateKey generates a new key pair and saves it to disk (encrypted).
func (km *LocalKeyManager) CreateKey() (common.Address, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to generate private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	keyStruct := &keystore.Key{
		Address:    address,
		PrivateKey: privateKey,
	}
	keyJSON, err := keystore.EncryptKey(keyStruct, km.password, km.scryptN, km.scryptP)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	filePath := filepath.Join(km.keyDir, address.Hex()+".json")
	if err := os.WriteFile(filePath, keyJSON, 0600); err != nil {
		return common.Address{}, fmt.Errorf("failed to save encrypted key: %w", err)
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	km.keys[address] = privateKey

	km.log.WithField("address", address.Hex()).Info("created local key")
	return address, nil
}

// GetAccounts returns all managed account addresses.
func (km *LocalKeyManager) GetAccounts() []common.Address {
	km.mu.RLock()
	defer km.mu.RUnlock()

	addresses := make([]common.Address, 0, len(km.keys))
	for addr := range km.keys {
		addresses = append(addresses, addr)
	}
	return addresses
}

// SignTx signs a transaction using a locally stored private key.
func (km *LocalKeyManager) SignTx(address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	km.mu.RLock()
	privateKey, ok := km.keys[address]
	km.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}

	signedTx, err := types.SignTx(tx, types.NewPragueSigner(chainID), privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signedTx, nil
}
