package wallet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/Klingon-tech/assetledger/pkg/crypto"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var (
	// ErrKeyExists is returned when creating a key under a taken name.
	ErrKeyExists = errors.New("key already exists")
	// ErrKeyNotFound is returned for unknown key names.
	ErrKeyNotFound = errors.New("key not found")
)

// Key kinds.
const (
	KindMnemonic = "mnemonic" // encrypted BIP-39 seed + derivation index
	KindRaw      = "raw"      // encrypted 32-byte private key
)

const keyFileExt = ".key"

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// keyFile is the on-disk JSON format of one signing key.
type keyFile struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind"`
	Secret    []byte    `json:"secret"` // Encrypted seed or private key.
	Account   uint32    `json:"account,omitempty"`
	Index     uint32    `json:"index,omitempty"`
	PubKey    string    `json:"pubkey"`
}

// KeyInfo is the public part of a stored key. Reading it needs no password.
type KeyInfo struct {
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	Address   types.Address `json:"address"`
	PubKey    string        `json:"pubkey"`
	Account   uint32        `json:"account"`
	Index     uint32        `json:"index"`
	CreatedAt time.Time     `json:"created_at"`
}

// Keystore stores named signing keys, one encrypted file each.
type Keystore struct {
	path   string
	params EncryptionParams
}

// NewKeystore creates a keystore in dir, creating it if needed.
func NewKeystore(dir string) (*Keystore, error) {
	return NewKeystoreWithParams(dir, DefaultParams())
}

// NewKeystoreWithParams is NewKeystore with explicit Argon2id parameters.
func NewKeystoreWithParams(dir string, params EncryptionParams) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: dir, params: params}, nil
}

func (ks *Keystore) keyPath(name string) string {
	return filepath.Join(ks.path, name+keyFileExt)
}

// CreateFromMnemonic stores the key at m/44'/8888'/account'/0/index of the
// mnemonic's seed.
func (ks *Keystore) CreateFromMnemonic(name, mnemonic, passphrase string, account, index uint32, password []byte) (KeyInfo, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return KeyInfo{}, err
	}
	defer zero(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return KeyInfo{}, err
	}
	key, err := master.DeriveSigningKey(account, index)
	if err != nil {
		return KeyInfo{}, err
	}

	return ks.create(name, keyFile{
		Kind:    KindMnemonic,
		Account: account,
		Index:   index,
		PubKey:  hex.EncodeToString(key.PublicKeyBytes()),
	}, seed, password)
}

// ImportPrivateKey stores a raw 32-byte secp256k1 private key.
func (ks *Keystore) ImportPrivateKey(name string, priv, password []byte) (KeyInfo, error) {
	pk, err := crypto.PrivateKeyFromBytes(priv)
	if err != nil {
		return KeyInfo{}, err
	}
	defer pk.Zero()

	return ks.create(name, keyFile{
		Kind:   KindRaw,
		PubKey: hex.EncodeToString(pk.PublicKey()),
	}, priv, password)
}

func (ks *Keystore) create(name string, kf keyFile, secret, password []byte) (KeyInfo, error) {
	if !validName.MatchString(name) {
		return KeyInfo{}, fmt.Errorf("invalid key name %q (letters, digits, '.', '_' and '-' only)", name)
	}
	path := ks.keyPath(name)
	if _, err := os.Stat(path); err == nil {
		return KeyInfo{}, fmt.Errorf("%w: %q", ErrKeyExists, name)
	}

	sealed, err := Encrypt(secret, password, ks.params)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("encrypt key: %w", err)
	}
	kf.Version = 1
	kf.CreatedAt = time.Now().UTC()
	kf.Secret = sealed

	if err := writeKeyFile(path, &kf); err != nil {
		return KeyInfo{}, err
	}
	return kf.info(name)
}

// Info returns the public details of a key.
func (ks *Keystore) Info(name string) (KeyInfo, error) {
	kf, err := ks.read(name)
	if err != nil {
		return KeyInfo{}, err
	}
	return kf.info(name)
}

// List returns every stored key, sorted by name.
func (ks *Keystore) List() ([]KeyInfo, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var out []KeyInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != keyFileExt {
			continue
		}
		name := e.Name()[:len(e.Name())-len(keyFileExt)]
		info, err := ks.Info(name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Signer decrypts a key. Callers should Zero the key when done.
func (ks *Keystore) Signer(name string, password []byte) (*crypto.PrivateKey, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	secret, err := Decrypt(kf.Secret, password)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", name, err)
	}
	defer zero(secret)

	switch kf.Kind {
	case KindRaw:
		return crypto.PrivateKeyFromBytes(secret)
	case KindMnemonic:
		master, err := NewMasterKey(secret)
		if err != nil {
			return nil, err
		}
		key, err := master.DeriveSigningKey(kf.Account, kf.Index)
		if err != nil {
			return nil, err
		}
		return key.Signer()
	default:
		return nil, fmt.Errorf("key %q: unknown kind %q", name, kf.Kind)
	}
}

// Delete removes a key file.
func (ks *Keystore) Delete(name string) error {
	path := ks.keyPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}
	return os.Remove(path)
}

func (ks *Keystore) read(name string) (*keyFile, error) {
	data, err := os.ReadFile(ks.keyPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, name)
		}
		return nil, fmt.Errorf("read key: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key %q: %w", name, err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported key file version: %d", kf.Version)
	}
	return &kf, nil
}

func (kf *keyFile) info(name string) (KeyInfo, error) {
	pub, err := crypto.ParsePubKeyHex(kf.PubKey)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("key %q: %w", name, err)
	}
	return KeyInfo{
		Name:      name,
		Kind:      kf.Kind,
		Address:   crypto.AddressFromPubKey(pub),
		PubKey:    kf.PubKey,
		Account:   kf.Account,
		Index:     kf.Index,
		CreatedAt: kf.CreatedAt,
	}, nil
}

func writeKeyFile(path string, kf *keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	return nil
}
