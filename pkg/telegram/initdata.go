// Package telegram handles the data a Telegram Mini App host hands to its
// web-view: signed init data, theme parameters, viewport and main button.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for init data validation.
var (
	// ErrMissingHash is returned when init data carries no hash field.
	ErrMissingHash = errors.New("telegram: init data has no hash")

	// ErrInvalidHash is returned when the signature does not match the bot token.
	ErrInvalidHash = errors.New("telegram: init data hash mismatch")

	// ErrExpired is returned when auth_date is older than the allowed age.
	ErrExpired = errors.New("telegram: init data expired")

	// ErrNoBotToken is returned when validation is attempted without a token.
	ErrNoBotToken = errors.New("telegram: bot token required")
)

// User is the Telegram user launching the Mini App.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// DisplayName returns the name shown in the UI.
func (u *User) DisplayName() string {
	if u == nil {
		return "Guest"
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Guest"
}

// InitData is the parsed launch payload (Telegram.WebApp.initData).
type InitData struct {
	QueryID      string
	User         *User
	AuthDate     time.Time
	ChatType     string
	ChatInstance string
	StartParam   string
	Hash         string

	values url.Values
}

// ParseInitData parses the raw query string without checking its signature.
func ParseInitData(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("telegram: parse init data: %w", err)
	}

	data := &InitData{
		QueryID:      values.Get("query_id"),
		ChatType:     values.Get("chat_type"),
		ChatInstance: values.Get("chat_instance"),
		StartParam:   values.Get("start_param"),
		Hash:         values.Get("hash"),
		values:       values,
	}

	if s := values.Get("auth_date"); s != "" {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram: invalid auth_date %q: %w", s, err)
		}
		data.AuthDate = time.Unix(sec, 0)
	}

	if s := values.Get("user"); s != "" {
		var u User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, fmt.Errorf("telegram: invalid user field: %w", err)
		}
		data.User = &u
	}

	return data, nil
}

// ValidateInitData parses raw and verifies its HMAC signature against the
// bot token. maxAge <= 0 disables the expiry check.
func ValidateInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	if botToken == "" {
		return nil, ErrNoBotToken
	}
	data, err := ParseInitData(raw)
	if err != nil {
		return nil, err
	}
	if data.Hash == "" {
		return nil, ErrMissingHash
	}

	expected := Sign(data.values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(data.Hash))) {
		return nil, ErrInvalidHash
	}

	if maxAge > 0 && (data.AuthDate.IsZero() || now.Sub(data.AuthDate) > maxAge) {
		return nil, ErrExpired
	}
	return data, nil
}

// Sign computes the hex hash Telegram attaches to init data: HMAC-SHA256 of
// the sorted key=value lines, keyed by HMAC-SHA256("WebAppData", botToken).
func Sign(values url.Values, botToken string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}
