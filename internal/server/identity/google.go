package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProfileExchanger turns an authorization code returned by an identity
// provider into the user's profile.
type ProfileExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.Profile, error)
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleExchanger implements ProfileExchanger for Google OpenID Connect.
type GoogleExchanger struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleExchanger(clientID, clientSecret, redirectURL string) *GoogleExchanger {
	return &GoogleExchanger{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"profile", "email"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleExchanger) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

type googleUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

// Exchange redeems code and fetches the userinfo document. Every failure
// wraps common.ErrDependency.
func (g *GoogleExchanger) Exchange(ctx context.Context, code string) (*models.Profile, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", common.ErrDependency)
	}

	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %w", common.ErrDependency, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDependency, err)
	}

	resp, err := g.config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", common.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", common.ErrDependency, resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %w", common.ErrDependency, err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo without subject", common.ErrDependency)
	}

	return &models.Profile{ProviderID: info.Sub, DisplayName: info.Name}, nil
}
