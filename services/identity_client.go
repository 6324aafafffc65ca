package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/Hephaestack/pnoh-eshop/errs"
)

// VerifiedIdentity is the identity provider's answer for a bearer token.
type VerifiedIdentity struct {
	UserID    string
	SessionID string
}

// IdentityVerifier validates a bearer credential with the external identity
// provider. The core treats the provider as an opaque verifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*VerifiedIdentity, error)
}

// IdentityClient calls the hosted identity provider's session verification
// endpoint. Every call carries a bounded timeout; transport failures are
// ServiceUnavailable, not Unauthorized.
type IdentityClient struct {
	verifyURL string
	apiKey    string
	http      *http.Client
}

func NewIdentityClient(verifyURL, apiKey string) *IdentityClient {
	return &IdentityClient{
		verifyURL: verifyURL,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *IdentityClient) Verify(ctx context.Context, token string) (*VerifiedIdentity, error) {
	endpoint := c.verifyURL + "?" + url.Values{"session_token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindServiceUnavailable, "failed to build verify request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindServiceUnavailable, "auth service unavailable", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errs.New(errs.KindUnauthorized, "invalid or expired token")
	}

	var body struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Sub    string `json:"sub"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, errs.Wrap(errs.KindServiceUnavailable, "malformed auth service response", err)
	}

	userID := body.UserID
	if userID == "" {
		userID = body.Sub
	}
	if userID == "" {
		return nil, errs.New(errs.KindUnauthorized, "token verified but user id missing")
	}

	return &VerifiedIdentity{UserID: userID, SessionID: body.ID}, nil
}
