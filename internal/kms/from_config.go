package kms

import (
	"context"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/infra/config"
)

// FromConfig builds the cipher the configuration asks for: AWS KMS when
// enabled, otherwise the local AES cipher keyed by the master key.
func FromConfig(ctx context.Context, cfg config.EncryptionConfig) (Cipher, error) {
	if cfg.KMS.Enabled {
		return NewKMSCipher(ctx, cfg.KMS.Region, cfg.KMS.KeyID)
	}
	return NewAESCipher(cfg.MasterKey, cfg.PreviousKeys)
}
