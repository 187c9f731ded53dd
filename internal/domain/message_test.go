package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"plain text", "see you at the gym", nil},
		{"empty", "", ErrEmptyMessage},
		{"whitespace only", "   \t\n", ErrEmptyMessage},
		{"exactly max length", strings.Repeat("a", MaxContentLength), nil},
		{"one over max length", strings.Repeat("a", MaxContentLength+1), ErrMessageTooLong},
		{"multibyte runes count as one", strings.Repeat("ü", MaxContentLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.content)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewMessage(t *testing.T) {
	now := time.Now()

	msg, err := NewMessage("m1", "c1", 7, "hello", now)
	assert.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, now, msg.SentAt)
	assert.Nil(t, msg.DeliveredAt)
	assert.Nil(t, msg.ReadAt)
	assert.False(t, msg.Deleted)

	_, err = NewMessage("m2", "c1", 7, "  ", now)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
