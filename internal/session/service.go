package session

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"stagedesk/internal/models"
	"stagedesk/internal/platform"
)

// ProfileStore is the slice of the profile repository sign-up needs.
type ProfileStore interface {
	Create(ctx context.Context, profile models.Profile) error
}

// ProfileFields are the free-form fields supplied at sign-up. They are
// written both into the identity's metadata and into the profiles table.
type ProfileFields struct {
	DisplayName string
	Company     string
}

// AuthService performs identity operations against the hosted platform.
// It returns tagged errors and never logs; callers decide whether to log,
// display, or both.
type AuthService struct {
	client   *platform.Client
	profiles ProfileStore
	baseURL  string
}

func NewAuthService(client *platform.Client, profiles ProfileStore, baseURL string) *AuthService {
	return &AuthService{
		client:   client,
		profiles: profiles,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (models.Session, models.User, error) {
	return s.client.SignInWithPassword(ctx, email, password)
}

// SignUp creates the identity record, then the profile row. The two steps
// share no transaction: if the profile insert fails the identity stays
// behind, orphaned, and the whole operation reports failure.
func (s *AuthService) SignUp(ctx context.Context, email, password string, fields ProfileFields) (models.User, error) {
	metadata := map[string]any{}
	if fields.DisplayName != "" {
		metadata["display_name"] = fields.DisplayName
	}
	if fields.Company != "" {
		metadata["company"] = fields.Company
	}

	user, err := s.client.SignUp(ctx, email, password, metadata)
	if err != nil {
		return models.User{}, err
	}

	if err := s.profiles.Create(ctx, models.Profile{
		UserID:      user.ID,
		DisplayName: fields.DisplayName,
		Company:     fields.Company,
	}); err != nil {
		return models.User{}, fmt.Errorf("create profile row: %w", err)
	}

	return user, nil
}

func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	return s.client.SignOut(ctx, accessToken)
}

func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	return s.client.SendPasswordReset(ctx, email, s.baseURL+"/reset-password")
}

func (s *AuthService) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return s.client.UpdatePassword(ctx, accessToken, newPassword)
}

func (s *AuthService) UpdateMetadata(ctx context.Context, accessToken string, metadata map[string]any) (models.User, error) {
	return s.client.UpdateUserMetadata(ctx, accessToken, metadata)
}

func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (models.User, error) {
	return s.client.GetUser(ctx, accessToken)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.Session, models.User, error) {
	return s.client.RefreshSession(ctx, refreshToken)
}

// GoogleAuthURL returns the browser redirect URL for the platform's Google
// flow plus the PKCE verifier the callback exchange will need.
func (s *AuthService) GoogleAuthURL() (authURL string, verifier string) {
	verifier = oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)
	authURL = s.client.AuthorizeURL("google", s.baseURL+"/auth/callback", challenge)
	return authURL, verifier
}

func (s *AuthService) ExchangeCode(ctx context.Context, code, verifier string) (models.Session, models.User, error) {
	return s.client.ExchangeCode(ctx, code, verifier)
}
