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

func TestEventEncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	ev, err := NewEventSpecCtx(ctx, "Transferred", Version2_2,
		[]Param{{Name: "amount", Type: UintType(128)}}, nil)
	require.NoError(t, err)

	body, err := ev.EncodeCtx(ctx, map[string]interface{}{"amount": "5000"})
	require.NoError(t, err)

	out, err := ev.DecodeCtx(ctx, body, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "5000", out[0].Value.Int.String())
	assert.True(t, ev.IsMyMessage(ev.ID))
}

func TestEventExplicitID(t *testing.T) {
	ctx := context.Background()
	id := uint32(0xDEADBEEF)
	ev, err := NewEventSpecCtx(ctx, "Custom", Version2_2, nil, &id)
	require.NoError(t, err)
	assert.Equal(t, id, ev.ID)
}

func TestEventDecodeWrongSelectorFails(t *testing.T) {
	ctx := context.Background()
	evA, err := NewEventSpecCtx(ctx, "A", Version2_2, nil, nil)
	require.NoError(t, err)
	evB, err := NewEventSpecCtx(ctx, "B", Version2_2, nil, nil)
	require.NoError(t, err)

	body, err := evA.EncodeCtx(ctx, nil)
	require.NoError(t, err)

	_, err = evB.DecodeCtx(ctx, body, false)
	assert.Error(t, err)
}
