package kms

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"

	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/execution"
)

const kmsCallTimeout = 10 * time.Second

// KMSCipher encrypts and decrypts credential plaintext through an AWS KMS
// key. Key material never leaves KMS; previous-key fallback is handled by
// the service itself.
type KMSCipher struct {
	client *awskms.Client
	keyID  string
}

// NewKMSCipher loads the default AWS configuration for region and binds the
// cipher to a KMS key.
func NewKMSCipher(ctx context.Context, region, keyID string) (*KMSCipher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load aws config: %v", apperrors.ErrConfiguration, err)
	}

	return &KMSCipher{
		client: awskms.NewFromConfig(awsCfg),
		keyID:  keyID,
	}, nil
}

func (c *KMSCipher) Name() string { return "aws-kms" }

func (c *KMSCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return execution.WithTimeout(ctx, kmsCallTimeout, func(ctx context.Context) ([]byte, error) {
		result, err := c.client.Encrypt(ctx, &awskms.EncryptInput{
			KeyId:     &c.keyID,
			Plaintext: plaintext,
		})
		if err != nil {
			return nil, fmt.Errorf("kms encrypt: %w", err)
		}
		return result.CiphertextBlob, nil
	})
}

func (c *KMSCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return execution.WithTimeout(ctx, kmsCallTimeout, func(ctx context.Context) ([]byte, error) {
		result, err := c.client.Decrypt(ctx, &awskms.DecryptInput{
			CiphertextBlob: ciphertext,
			KeyId:          &c.keyID,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrDecryptionFailure, err)
		}
		return result.Plaintext, nil
	})
}
