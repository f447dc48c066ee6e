package gnauth

import (
	"errors"

	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/store"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// classify converts boundary errors (wire, token, store) into the public
// classified form. Already-classified errors pass through unchanged.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var reqErr *wpapi.RequestError
	if errors.As(err, &reqErr) {
		return classifyRequest(reqErr)
	}

	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrNoExpiry):
		return ErrTokenExpired.WithRaw("expiry not derivable")
	case errors.Is(err, store.ErrUnavailable):
		return ErrStoreUnavailable.WithRaw("%v", err)
	}

	var drift *token.LifetimeError
	if errors.As(err, &drift) {
		return ErrTokenLifetimeMismatch.WithRaw("%v", drift)
	}

	return ErrMalformedServerResponse.WithRaw("%v", err)
}

func classifyRequest(reqErr *wpapi.RequestError) *Error {
	raw := reqErr.Kind
	detail := func(e *Error) *Error {
		return e.WithRaw("%s %s -> %d", raw, reqErr.URL, reqErr.StatusCode)
	}

	switch reqErr.Kind {
	case wpapi.KindTimeout:
		return detail(ErrRequestTimeout)
	case wpapi.KindNetwork:
		return detail(ErrServerUnreachable)
	case wpapi.KindRouteNotFound:
		return detail(ErrRouteNotFound)
	case wpapi.KindInvalidCredentials:
		e := ErrInvalidCredentials
		if reqErr.Message != "" {
			e = e.WithMessage(reqErr.Message)
		}
		return detail(e)
	case wpapi.KindUnauthorized:
		return detail(ErrUnauthorized)
	case wpapi.KindServerFault, wpapi.KindMalformed:
		e := ErrMalformedServerResponse
		if reqErr.Message != "" {
			e = e.WithMessage(reqErr.Message)
		}
		return detail(e)
	default:
		e := ErrServerUnreachable
		if reqErr.Message != "" {
			e = e.WithMessage(reqErr.Message)
		}
		return detail(e)
	}
}
