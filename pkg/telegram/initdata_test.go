package telegram

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:ABC-test-token"

func signedInitData(t *testing.T, authDate time.Time, token string) string {
	t.Helper()
	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", `{"id":279058397,"first_name":"Vladislav","last_name":"Kibenko","username":"vdkfrost","language_code":"ru"}`)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", Sign(values, token))
	return values.Encode()
}

func TestValidateInitData(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signedInitData(t, now.Add(-time.Minute), testToken)

	data, err := ValidateInitData(raw, testToken, time.Hour, now)
	require.NoError(t, err)
	require.NotNil(t, data.User)
	assert.Equal(t, int64(279058397), data.User.ID)
	assert.Equal(t, "Vladislav Kibenko", data.User.DisplayName())
	assert.Equal(t, "AAHdF6IQAAAAAN0XohDhrOrc", data.QueryID)
}

func TestValidateInitDataRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("wrong token", func(t *testing.T) {
		raw := signedInitData(t, now, "other:token")
		_, err := ValidateInitData(raw, testToken, 0, now)
		assert.ErrorIs(t, err, ErrInvalidHash)
	})

	t.Run("tampered user", func(t *testing.T) {
		values, err := url.ParseQuery(signedInitData(t, now, testToken))
		require.NoError(t, err)
		values.Set("user", `{"id":1,"first_name":"Mallory"}`)
		_, err = ValidateInitData(values.Encode(), testToken, 0, now)
		assert.ErrorIs(t, err, ErrInvalidHash)
	})

	t.Run("expired", func(t *testing.T) {
		raw := signedInitData(t, now.Add(-48*time.Hour), testToken)
		_, err := ValidateInitData(raw, testToken, 24*time.Hour, now)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("missing hash", func(t *testing.T) {
		_, err := ValidateInitData("auth_date=1", testToken, 0, now)
		assert.ErrorIs(t, err, ErrMissingHash)
	})

	t.Run("no token", func(t *testing.T) {
		_, err := ValidateInitData("auth_date=1&hash=00", "", 0, now)
		assert.ErrorIs(t, err, ErrNoBotToken)
	})
}

func TestParseInitDataErrors(t *testing.T) {
	_, err := ParseInitData("auth_date=yesterday")
	assert.Error(t, err)

	_, err = ParseInitData("user=%7Bnot-json")
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, "Guest"},
		{"first only", &User{FirstName: "Ada"}, "Ada"},
		{"full", &User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"username", &User{Username: "ada"}, "@ada"},
		{"empty", &User{}, "Guest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}
