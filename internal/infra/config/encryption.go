package config

// EncryptionConfig selects and parameterizes the cipher protecting stored
// credentials. Exactly one of the local master key or AWS KMS must be
// usable; that constraint is enforced by Config.crossCheck.
type EncryptionConfig struct {
	// MasterKey is the base64-encoded 32-byte AES key for local encryption.
	MasterKey string `mapstructure:"master_key" validate:"omitempty,aes256key"`

	// PreviousKeys are retired master keys still accepted for decryption,
	// newest first. Encryption always uses MasterKey.
	PreviousKeys []string `mapstructure:"previous_keys" validate:"omitempty,dive,aes256key"`

	KMS KMSConfig `mapstructure:"kms"`
}

// KMSConfig enables AWS KMS in place of the local cipher.
type KMSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region" validate:"required_if=Enabled true"`
	KeyID   string `mapstructure:"key_id" validate:"required_if=Enabled true"`
}
