package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	var buf bytes.Buffer
	_, err := buildMessage("noreply@art.test", "a@example.com", "482913").WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "To: a@example.com")
	assert.Contains(t, out, "From: noreply@art.test")
	assert.Contains(t, out, "482913")
	assert.Contains(t, out, "5 minutes")
}

func TestLogSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, LogSender{Logger: logger}.Send(context.Background(), "a@example.com", "000111"))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "000111", hook.LastEntry().Data["code"])
	assert.Equal(t, "a@example.com", hook.LastEntry().Data["to"])
}

func TestSMTPSenderHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSMTPSender("127.0.0.1", 1, "", "", "x@y.z").Send(ctx, "a@example.com", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
