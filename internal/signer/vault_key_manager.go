package signer

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"
	"github.com/sirupsen/logrus"
)

// vaultKeyType is the transit key type for secp256k1. Stock Vault transit
// does not provide it; the mount at transitPath must be served by a
// transit-compatible plugin that adds secp256k1 keys.
const vaultKeyType = "ecdsa-p256k1"

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// VaultKeyManager manages keys stored in HashiCorp Vault.
type VaultKeyManager struct {
	vaultClient  *api.Client
	transitPath  string
	addressToKey map[common.Address]string // Map ETH address to Vault key name
	mu           sync.RWMutex
	log          logrus.FieldLogger
}

// NewVaultKeyManager creates a new VaultKeyManager and initializes it with keys from Vault.
func NewVaultKeyManager(vaultClient *api.Client, transitPath string, log logrus.FieldLogger) (*VaultKeyManager, error) {
	km := &VaultKeyManager{
		vaultClient:  vaultClient,
		transitPath:  transitPath,
		addressToKey: make(map[common.Address]string),
		log:          log,
	}

	if err := km.enableTransitEngine(); err != nil {
		return nil, fmt.Errorf("failed to enable transit secrets engine: %w", err)
	}

	if err := km.loadExistingKeys(); err != nil {
		return nil, fmt.Errorf("failed to load existing keys from vault: %w", err)
	}

	return km, nil
}

func (km *VaultKeyManager) enableTransitEngine() error {
	mounts, err := km.vaultClient.Sys().ListMounts()
	if err != nil {
		return err
	}

	mountPath := km.transitPath + "/"
	if _, ok := mounts[mountPath]; !ok {
		km.log.Infof("transit secrets engine not found at '%s', enabling it", km.transitPath)
		return km.vaultClient.Sys().Mount(km.transitPath, &api.MountInput{
			Type: "transit",
		})
	}
	km.log.Debugf("transit secrets engine already enabled at '%s'", km.transitPath)
	return nil
}

func (km *VaultKeyManager) loadExistingKeys() error {
	path := fmt.Sprintf("%s/keys", km.transitPath)
	secret, err := km.vaultClient.Logical().List(path)
	if err != nil {
		return err
	}

	if secret == nil || secret.Data["keys"] == nil {
		km.log.Info("no existing keys found in vault transit engine")
		return nil
	}

	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return fmt.Errorf("unexpected format for keys from vault")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	for _, k := range keys {
		keyName, ok := k.(string)
		if !ok {
			continue
		}

		address, err := km.getAddressForKey(keyName)
		if err != nil {
			km.log.Warnf("could not get address for key '%s': %v", keyName, err)
			continue
		}
		km.addressToKey[address] = keyName
		km.log.WithField("address", address.Hex()).Infof("loaded vault key '%s'", keyName)
	}

	return nil
}

// CreateKey creates a new key in Vault and returns its Ethereum address.
func (km *VaultKeyManager) CreateKey() (common.Address, error) {
	keyName := "eth-key-" + uuid.NewString()

	path := fmt.Sprintf("%s/keys/%s", km.transitPath, keyName)
	_, err := km.vaultClient.Logical().Write(path, map[string]interface{}{
		"type": vaultKeyType,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to create key in vault: %w", err)
	}

	address, err := km.getAddressForKey(keyName)
	if err != nil {
		deletePath := fmt.Sprintf("%s/keys/%s/config", km.transitPath, keyName)
		_, delErr := km.vaultClient.Logical().Write(deletePath, map[string]interface{}{"deletion_allowed": true})
		if delErr == nil {
			_, _ = km.vaultClient.Logical().Delete(path)
		}
		return common.Address{}, fmt.Errorf("failed to get address for new key: %w", err)
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	km.addressToKey[address] = keyName

	km.log.WithField("address", address.Hex()).Infof("created vault key '%s'", keyName)
	return address, nil
}

// GetAccounts returns all managed account addresses.
func (km *VaultKeyManager) GetAccounts() []common.Address {
	km.mu.RLock()
	defer km.mu.RUnlock()

	addresses := make([]common.Address, 0, len(km.addressToKey))
	for addr := range km.addressToKey {
		addresses = append(addresses, addr)
	}
	return addresses
}

func (km *VaultKeyManager) getAddressForKey(keyName string) (common.Address, error) {
	path := fmt.Sprintf("%s/keys/%s", km.transitPath, keyName)
	secret, err := km.vaultClient.Logical().Read(path)
	if err != nil {
		return common.Address{}, err
	}
	if secret == nil || secret.Data["keys"] == nil {
		return common.Address{}, fmt.Errorf("key '%s' not found in vault", keyName)
	}

	keysData, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected format for key data")
	}

	latestVersion := "0"
	for v := range keysData {
		if v > latestVersion {
			latestVersion = v
		}
	}

	keyData, ok := keysData[latestVersion].(map[string]interface{})
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected format for key version data")
	}

	pubKeyPEM, ok := keyData["public_key"].(string)
	if !ok {
		return common.Address{}, fmt.Errorf("public key not found in key data")
	}

	return addressFromPEM(pubKeyPEM)
}

func addressFromPEM(pubKeyPEM string) (common.Address, error) {
	block, _ := pem.Decode([]byte(pubKeyPEM))
	if block == nil {
		return common.Address{}, fmt.Errorf("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse DER encoded public key: %w", err)
	}

	ecdsaPubKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("key is not an ECDSA public key")
	}

	return crypto.PubkeyToAddress(*ecdsaPubKey), nil
}

func (km *VaultKeyManager) signWithVault(keyName string, digest []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/sign/%s", km.transitPath, keyName)

	resp, err := km.vaultClient.Logical().Write(path, map[string]interface{}{
		"input":                base64.StdEncoding.EncodeToString(digest),
		"prehashed":            true,
		"marshaling_algorithm": "jws",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign with vault: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from vault")
	}

	signature, ok := resp.Data["signature"].(string)
	if !ok {
		return nil, fmt.Errorf("signature not found in vault response")
	}
	return parseVaultSignature(signature)
}

// parseVaultSignature decodes "vault:v<n>:<r>+<s>" into a 64 byte r||s
// with s in canonical low form.
func parseVaultSignature(signature string) ([]byte, error) {
	parts := strings.Split(signature, ":")
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid signature format from vault: %s", signature)
	}

	sigParts := strings.Split(parts[2], "+")
	if len(sigParts) != 2 {
		return nil, fmt.Errorf("invalid signature payload from vault: %s", parts[2])
	}
	r, err := base64.RawURLEncoding.DecodeString(sigParts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode r part of signature: %w", err)
	}
	s, err := base64.RawURLEncoding.DecodeString(sigParts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode s part of signature: %w", err)
	}
	if len(r) > 32 || len(s) > 32 {
		return nil, fmt.Errorf("signature component too long")
	}

	out := make([]byte, 64)
	copy(out[32-len(r):32], r)
	copy(out[64-len(s):], s)
	normalizeS(out)
	return out, nil
}

// normalizeS rewrites s as n-s when it lies in the upper half of the curve
// order. Ethereum only accepts low-S signatures; the matching recovery id
// is found afterwards by recoverV.
func normalizeS(sig []byte) {
	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(secp256k1HalfN) > 0 {
		s.Sub(secp256k1N, s)
		s.FillBytes(sig[32:64])
	}
}

// SignTx signs a transaction using a key stored in Vault.
func (km *VaultKeyManager) SignTx(address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	keyName, err := km.getKeyName(address)
	if err != nil {
		return nil, err
	}

	signer := types.NewPragueSigner(chainID)
	txHash := signer.Hash(tx)

	signature, err := km.signWithVault(keyName, txHash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction with vault: %w", err)
	}

	// Vault returns only r and s; the recovery id has to be found by trial.
	v, err := recoverV(signature, txHash.Bytes(), address)
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(signer, append(signature, v))
}

func (km *VaultKeyManager) getKeyName(address common.Address) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	keyName, ok := km.addressToKey[address]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}
	return keyName, nil
}

// recoverV finds the recovery id (0 or 1) that makes signature recover to
// expectedAddress.
func recoverV(signature, hash []byte, expectedAddress common.Address) (byte, error) {
	if len(signature) != 64 {
		return 0, fmt.Errorf("expected 64 byte signature, got %d", len(signature))
	}
	sigWithV := make([]byte, 65)
	copy(sigWithV, signature)
	for i := byte(0); i < 2; i++ {
		sigWithV[64] = i
		recoveredPub, err := crypto.Ecrecover(hash, sigWithV)
		if err != nil {
			continue
		}

		pubkey, err := crypto.UnmarshalPubkey(recoveredPub)
		if err != nil {
			continue
		}

		if crypto.PubkeyToAddress(*pubkey) == expectedAddress {
			return i, nil
		}
	}
	return 0, fmt.Errorf("could not recover public key for the given signature")
}
