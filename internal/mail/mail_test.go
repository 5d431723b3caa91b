package mail

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", "587", "bot", "secret", "Bug Tracker <noreply@example.com>")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), Message{To: "ann@example.com", Subject: "Hi", Body: "line1\nline2"})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hi\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nline1\r\nline2")
}

func TestSMTPSender_NoAuthWithoutUser(t *testing.T) {
	s := NewSMTPSender("localhost", "25", "", "", "noreply@example.com")
	var gotAuth smtp.Auth
	called := false
	s.sendMail = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		called = true
		gotAuth = a
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "x@example.com"}))
	assert.True(t, called)
	assert.Nil(t, gotAuth)
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "a@b.c", envelopeAddress("Name <a@b.c>"))
	assert.Equal(t, "a@b.c", envelopeAddress("a@b.c"))
}
