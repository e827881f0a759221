package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"postlens-be/internal/config"
	"postlens-be/internal/dto"
	"postlens-be/internal/model"
	"postlens-be/internal/repository"
	"postlens-be/pkg/events"
	pkgNats "postlens-be/pkg/nats"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type IOAuthService interface {
	GetLoginURL(provider string) (string, error)
	HandleCallback(ctx context.Context, provider string, code string) (*dto.LoginResponse, error)
}

type oauthService struct {
	userRepo       repository.UserRepository
	eventPublisher *pkgNats.Publisher
	googleConf     *oauth2.Config
}

func NewOAuthService(cfg config.OAuthConfig, userRepo repository.UserRepository, eventPublisher *pkgNats.Publisher) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &oauthService{
		userRepo:       userRepo,
		eventPublisher: eventPublisher,
		googleConf:     conf,
	}
}

func (s *oauthService) GetLoginURL(provider string) (string, error) {
	if provider != "google" {
		return "", errors.New("unsupported provider")
	}

	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)

	return s.googleConf.AuthCodeURL(state), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, provider string, code string) (*dto.LoginResponse, error) {
	if provider != "google" {
		return nil, errors.New("unsupported provider")
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %v", err)
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %v", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %v", err)
	}

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(content, &googleUser); err != nil {
		return nil, err
	}
	if !googleUser.VerifiedEmail {
		return nil, errors.New("google account email is not verified")
	}

	user, err := s.userRepo.FindByEmail(ctx, googleUser.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = &model.User{
			ID:            uuid.New(),
			Email:         googleUser.Email,
			FullName:      googleUser.Name,
			GoogleID:      &googleUser.ID,
			AvatarURL:     &googleUser.Picture,
			Role:          model.UserRoleUser,
			Status:        model.UserStatusActive,
			EmailVerified: true,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		if s.eventPublisher != nil {
			_ = s.eventPublisher.Publish(ctx, events.NewUserRegistered(user.ID, user.Email))
		}
	} else if user.GoogleID == nil {
		// Link the Google identity to an existing email/password account.
		user.GoogleID = &googleUser.ID
		user.Status = model.UserStatusActive
		user.EmailVerified = true
		user.UpdatedAt = time.Now()
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	signedToken, expiresAt, err := issueToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:     signedToken,
		ExpiresAt: expiresAt,
		User: dto.UserDTO{
			Id:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}
