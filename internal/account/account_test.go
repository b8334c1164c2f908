package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/relaychat/internal/store"
)

func TestValidColor(t *testing.T) {
	tests := []struct {
		color string
		valid bool
	}{
		{"#112233", true},
		{"#1A2b3C", true},
		{"#000000", true},
		{"#FFFFFF", true},
		{"red", false},
		{"112233", false},
		{"#12345", false},
		{"#1234567", false},
		{"#GGGGGG", false},
		{"", false},
		{" #112233", false},
	}

	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidColor(tt.color))
		})
	}
}

func TestColorDefaultsWhenUnset(t *testing.T) {
	accounts := NewMemory()

	color, err := accounts.Color(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, DefaultColor, color)
}

func TestUpdateColorRoundTrip(t *testing.T) {
	accounts := NewMemory()
	ctx := context.Background()

	require.NoError(t, accounts.UpdateColor(ctx, "alice", "#1A2B3C"))

	color, err := accounts.Color(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "#1A2B3C", color)

	// Another user's preference is untouched.
	color, err = accounts.Color(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, DefaultColor, color)
}

func TestAuthenticate(t *testing.T) {
	accounts := NewMemory()
	accounts.AddSession("token-1", "alice")
	ctx := context.Background()

	username, err := accounts.Authenticate(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = accounts.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, ErrUnknownSession)

	_, err = accounts.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestFailingBackendSurfacesUnavailable(t *testing.T) {
	accounts := NewMemory()
	accounts.AddSession("token-1", "alice")
	accounts.SetFailing(true)
	ctx := context.Background()

	_, err := accounts.Authenticate(ctx, "token-1")
	assert.ErrorIs(t, err, store.ErrUnavailable)

	color, err := accounts.Color(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, DefaultColor, color)

	assert.ErrorIs(t, accounts.UpdateColor(ctx, "alice", "#112233"), store.ErrUnavailable)
}
