package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridBuild(t *testing.T) {
	sg := NewSendGrid("key", "Academy", "no-reply@academy.test")
	m := sg.Build(Message{ToName: "Ana", ToEmail: "ana@x.com", Subject: "Enrollment approved", Text: "hi", HTML: "<p>hi</p>"})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Academy] Enrollment approved", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "ana@x.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "no-reply@academy.test", m.From.Address)
	assert.Len(t, m.Content, 2)
}

func TestSendGridRequiresRecipient(t *testing.T) {
	sg := NewSendGrid("key", "Academy", "no-reply@academy.test")
	assert.Error(t, sg.Send(context.Background(), Message{Subject: "x"}))
}
