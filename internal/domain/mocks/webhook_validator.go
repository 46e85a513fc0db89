// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockWebhookValidator implements domain.WebhookValidator for testing
type MockWebhookValidator struct {
	mock.Mock
}

func (m *MockWebhookValidator) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockWebhookValidator) Validate(payload []byte, signature string) error {
	args := m.Called(payload, signature)
	return args.Error(0)
}
