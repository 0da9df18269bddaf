/*
Copyright © 2026 The Gauth Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryableCoversEveryMintErrorKind(t *testing.T) {
	cases := []error{
		&TransportError{Cause: errors.New("x")},
		&UnexpectedStatus{Status: 500},
		&DecodeError{Cause: errors.New("x")},
		&CryptoError{Cause: errors.New("x")},
		&ConfigError{Cause: errors.New("x")},
	}
	for _, err := range cases {
		assert.True(t, Retryable(err), "%T should be retryable", err)
	}
}

func TestRetryableRejectsUnrelatedErrors(t *testing.T) {
	assert.False(t, Retryable(errors.New("plain error")))
}
