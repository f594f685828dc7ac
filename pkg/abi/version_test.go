// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package abi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionCtx(t *testing.T) {
	ctx := context.Background()

	v, err := ParseVersionCtx(ctx, "2.3")
	require.NoError(t, err)
	assert.Equal(t, Version{2, 3}, v)

	v, err = ParseVersionCtx(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, Version{2, 0}, v)

	_, err = ParseVersionCtx(ctx, "not-a-version")
	assert.Error(t, err)
}

func TestVersionGates(t *testing.T) {
	assert.False(t, Version1_0.AllowsHeader())
	assert.True(t, Version2_0.AllowsHeader())

	assert.False(t, Version2_1.UsesMaxAccounting())
	assert.True(t, Version2_2.UsesMaxAccounting())

	assert.False(t, Version2_0.SupportsFields())
	assert.True(t, Version2_1.SupportsFields())

	assert.False(t, Version2_3.SupportsInit())
	assert.True(t, Version2_4.SupportsInit())

	assert.True(t, Version2_3.SupportsDataMap())
	assert.False(t, Version2_4.SupportsDataMap())
}

func TestSignaturePreludeByVersion(t *testing.T) {
	assert.Equal(t, PreludeSignatureRef, Version1_0.SignaturePrelude())
	assert.Equal(t, PreludeMaybeBit, Version2_0.SignaturePrelude())
	assert.Equal(t, PreludeMaybeBit, Version2_2.SignaturePrelude())
	assert.Equal(t, PreludeAddress, Version2_3.SignaturePrelude())
	assert.Equal(t, PreludeAddress, Version2_4.SignaturePrelude())
}
