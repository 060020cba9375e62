// Copyright 2025 Blink Labs Software
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

package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{
		Stdout: true,
		Writer: &buf,
	})
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "test-span")
	span.End()
	// Shutdown flushes the batcher
	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "test-span")
	assert.Contains(t, buf.String(), DefaultServiceName)
}
