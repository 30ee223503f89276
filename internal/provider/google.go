package provider

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidGoogleAudience = errors.New("invalid google audience")
)

// GoogleVerifier validates Google ID tokens against a configured OAuth client ID.
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a new GoogleVerifier instance.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// ValidateIDToken introspects the ID token with Google and checks that the
// token was issued for this application.
func (v *GoogleVerifier) ValidateIDToken(ctx context.Context, idToken string) (*oauth2.Tokeninfo, error) {
	oauth2Service, err := oauth2.NewService(ctx, option.WithHTTPClient(&http.Client{}))
	if err != nil {
		return nil, err
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.IdToken(idToken)
	tokenInfo, err := tokenInfoCall.Do()
	if err != nil {
		return nil, err
	}

	if tokenInfo.Audience != v.clientID {
		return nil, ErrInvalidGoogleAudience
	}

	return tokenInfo, nil
}
