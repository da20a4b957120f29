package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func testMailer(sent *[]sentMail, sendErr error) *Mailer {
	m := NewMailer("127.0.0.1", 1025, "no-reply@billfold.local", slog.New(slog.DiscardHandler))
	m.send = func(addr, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: msg})
		return sendErr
	}
	return m
}

func TestMailerDeliversPayload(t *testing.T) {
	var sent []sentMail
	m := testMailer(&sent, nil)

	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "accounts@meridianlabs.in",
		Subject: "Payment reminder: invoice INV-2025-0001",
		Body:    "Hi,\n\nInvoice INV-2025-0001 is due in 2 days.",
	})
	require.NoError(t, err)

	require.NoError(t, m.HandleSendEmailTask(context.Background(), task))
	require.Len(t, sent, 1)
	require.Equal(t, "127.0.0.1:1025", sent[0].addr)
	require.Equal(t, "no-reply@billfold.local", sent[0].from)
	require.Equal(t, []string{"accounts@meridianlabs.in"}, sent[0].to)
	require.Contains(t, string(sent[0].msg), "To: accounts@meridianlabs.in\r\n")
	require.Contains(t, string(sent[0].msg), "Subject: Payment reminder: invoice INV-2025-0001\r\n")
	require.Contains(t, string(sent[0].msg), "due in 2 days")
}

func TestMailerSkipsMalformedTask(t *testing.T) {
	var sent []sentMail
	m := testMailer(&sent, nil)

	err := m.HandleSendEmailTask(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewSendEmailTask(SendEmailPayload{Subject: "no recipient"})
	require.NoError(t, err)
	require.ErrorIs(t, m.HandleSendEmailTask(context.Background(), task), asynq.SkipRetry)

	require.Empty(t, sent)
}

func TestMailerSurfacesRelayFailure(t *testing.T) {
	var sent []sentMail
	relayErr := errors.New("connection refused")
	m := testMailer(&sent, relayErr)

	task, err := NewSendEmailTask(SendEmailPayload{To: "billing@northwind.example", Subject: "x"})
	require.NoError(t, err)

	err = m.HandleSendEmailTask(context.Background(), task)
	require.ErrorIs(t, err, relayErr)
	require.Contains(t, err.Error(), "billing@northwind.example")
}
