package gnauth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/store"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{
			"timeout",
			&wpapi.RequestError{Kind: wpapi.KindTimeout, URL: "https://x/wp-json/"},
			CodeRequestTimeout,
		},
		{
			"network",
			&wpapi.RequestError{Kind: wpapi.KindNetwork},
			CodeServerUnreachable,
		},
		{
			"route not found",
			&wpapi.RequestError{Kind: wpapi.KindRouteNotFound, StatusCode: 404},
			CodeRouteNotFound,
		},
		{
			"invalid credentials",
			&wpapi.RequestError{Kind: wpapi.KindInvalidCredentials, Message: "the password is incorrect."},
			CodeInvalidCredentials,
		},
		{
			"unauthorized",
			&wpapi.RequestError{Kind: wpapi.KindUnauthorized, StatusCode: 401},
			CodeUnauthorized,
		},
		{
			"server fault",
			&wpapi.RequestError{Kind: wpapi.KindServerFault, StatusCode: 500, Message: "There has been a critical error on this website."},
			CodeMalformedServerResponse,
		},
		{
			"wrapped request error",
			fmt.Errorf("login: %w", &wpapi.RequestError{Kind: wpapi.KindTimeout}),
			CodeRequestTimeout,
		},
		{"expired token", token.ErrExpired, CodeTokenExpired},
		{"underivable expiry", token.ErrNoExpiry, CodeTokenExpired},
		{"store down", fmt.Errorf("get: %w", store.ErrUnavailable), CodeStoreUnavailable},
		{
			"lifetime drift",
			&token.LifetimeError{Lifetime: 14 * 24 * time.Hour, Nominal: 7 * 24 * time.Hour},
			CodeTokenLifetimeMismatch,
		},
		{"already classified", ErrIncorrectPin, CodeIncorrectPin},
		{"unknown", errors.New("boom"), CodeMalformedServerResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if got == nil {
				t.Fatal("classified to nil")
			}
			if got.Code != tc.want {
				t.Fatalf("code = %s, want %s", got.Code, tc.want)
			}
		})
	}
}

func TestClassifyKeepsSanitizedMessage(t *testing.T) {
	reqErr := &wpapi.RequestError{
		Kind:    wpapi.KindInvalidCredentials,
		Message: "Error: the password you entered is incorrect.",
	}
	got := classify(reqErr)
	if got.Message != reqErr.Message {
		t.Fatalf("message = %q, want backend text preserved", got.Message)
	}
	if !errors.Is(got, ErrInvalidCredentials) {
		t.Fatal("detail-carrying error no longer matches its sentinel")
	}
}

func TestErrorLocalizationKey(t *testing.T) {
	if key := ErrTokenExpired.LocalizationKey(); key != "auth.error.token_expired" {
		t.Fatalf("key = %q", key)
	}
}
