package main

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bizcard/internal/apiclient"
)

func TestReadLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  uno \n\ndos"))

	line, ok := readLine(reader)
	require.True(t, ok)
	require.Equal(t, "uno", line)

	line, ok = readLine(reader)
	require.True(t, ok, "an empty line is still input")
	require.Empty(t, line)

	line, ok = readLine(reader)
	require.True(t, ok, "last line without newline")
	require.Equal(t, "dos", line)

	for i := 0; i < 3; i++ {
		_, ok = readLine(reader)
		require.False(t, ok)
	}
}

func TestPromptKeepsValueOnClosedInput(t *testing.T) {
	value, ok := prompt(bufio.NewReader(strings.NewReader("")), "Nombre", "Jane")
	require.False(t, ok)
	require.Equal(t, "Jane", value)

	value, ok = prompt(bufio.NewReader(strings.NewReader("-\n")), "Nombre", "Jane")
	require.True(t, ok)
	require.Empty(t, value)
}

func TestRunWizardReturnsWhenInputCloses(t *testing.T) {
	inputs := map[string]string{
		"nothing typed":         "",
		"details half filled":   "Jane\nEngineer\n",
		"waiting for an action": "Jane\nEngineer\n\n\n\n",
		"appearance step":       "Jane\nEngineer\n\n\n\nS\n",
	}
	client := apiclient.New("http://127.0.0.1:1", "", zap.NewNop())

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			done := make(chan struct{})
			go func() {
				defer close(done)
				runWizard(context.Background(), bufio.NewReader(strings.NewReader(input)), client, "http://localhost", zap.NewNop())
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				require.FailNow(t, "wizard kept looping after the input closed")
			}
		})
	}
}
