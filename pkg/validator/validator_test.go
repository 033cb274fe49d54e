package validator_test

import (
	"encoding/base64"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customvalidator "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/validator"
)

type subject struct {
	Tier      string `validate:"omitempty,tier"`
	Frequency string `validate:"omitempty,rotation_frequency"`
	Key       string `validate:"omitempty,aes256key"`
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, customvalidator.RegisterCustomValidators(v))
	return v
}

func TestTierRule(t *testing.T) {
	v := newValidate(t)

	assert.NoError(t, v.Struct(subject{Tier: "premium"}))
	assert.NoError(t, v.Struct(subject{Tier: "fallback"}))
	assert.Error(t, v.Struct(subject{Tier: "gold"}))
}

func TestRotationFrequencyRule(t *testing.T) {
	v := newValidate(t)

	assert.NoError(t, v.Struct(subject{Frequency: "quarterly"}))
	assert.Error(t, v.Struct(subject{Frequency: "yearly"}))
}

func TestAES256KeyRule(t *testing.T) {
	v := newValidate(t)

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	assert.NoError(t, v.Struct(subject{Key: key}))

	short := base64.StdEncoding.EncodeToString(make([]byte, 16))
	assert.Error(t, v.Struct(subject{Key: short}))

	assert.Error(t, v.Struct(subject{Key: "%%%not-base64%%%"}))
}
