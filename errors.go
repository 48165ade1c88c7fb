package backupcodes

import "errors"

var (
	// ErrOwnerRequired is an exported constant or variable used by the backup code manager.
	ErrOwnerRequired = errors.New("owner id required")
	// ErrCodesExist is an exported constant or variable used by the backup code manager.
	ErrCodesExist = errors.New("active backup codes already exist")
	// ErrSetNotFound is an exported constant or variable used by the backup code manager.
	ErrSetNotFound = errors.New("backup code set not found")
	// ErrCryptoFailed is an exported constant or variable used by the backup code manager.
	ErrCryptoFailed = errors.New("cryptographic operation failed")
	// ErrStoreUnavailable is an exported constant or variable used by the backup code manager.
	ErrStoreUnavailable = errors.New("code set backend unavailable")
	// ErrNoRecoverableCodes is an exported constant or variable used by the backup code manager.
	ErrNoRecoverableCodes = errors.New("no recoverable codes stored")
	// ErrEncryptionKeySize is an exported constant or variable used by the backup code manager.
	ErrEncryptionKeySize = errors.New("encryption key must be 16, 24, or 32 bytes")
	// ErrManagerNotReady is an exported constant or variable used by the backup code manager.
	ErrManagerNotReady = errors.New("manager not initialized")
)
