package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot123:good/getMe":
			w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Shake","username":"shake_bot"}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		}
	}))
	defer srv.Close()

	bot, err := (&BotClient{Token: "123:good", BaseURL: srv.URL, HTTP: srv.Client()}).GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shake_bot", bot.Username)
	assert.True(t, bot.IsBot)

	_, err = (&BotClient{Token: "123:bad", BaseURL: srv.URL, HTTP: srv.Client()}).GetMe(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = (&BotClient{BaseURL: srv.URL}).GetMe(context.Background())
	assert.ErrorIs(t, err, ErrNoBotToken)
}
