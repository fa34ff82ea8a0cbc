package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/crypto/bcrypt"

	"github.com/amiyamandal-dev/spacesfeed/internal/auth"
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/repository"
	"github.com/amiyamandal-dev/spacesfeed/internal/search"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// UserService handles accounts, profiles, search and the follow graph
type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	index      search.Index
	jwtManager *auth.JWTManager
	bcryptCost int
	markdown   goldmark.Markdown
	sanitizer  *bluemonday.Policy
	logger     *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	index search.Index,
	jwtManager *auth.JWTManager,
	bcryptCost int,
	logger *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		followRepo: followRepo,
		index:      index,
		jwtManager: jwtManager,
		bcryptCost: bcryptCost,
		markdown:   goldmark.New(),
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.WithComponent("user-service"),
	}
}

// Register registers a new user
func (s *UserService) Register(ctx context.Context, req *domain.UserRegisterRequest) (*domain.UserSummary, error) {
	if len(req.Password) < 8 {
		return nil, domain.NewValidationError("password", "password must be at least 8 characters")
	}

	exists, err := s.userRepo.ExistsByHandle(ctx, req.Handle)
	if err != nil {
		s.logger.Error("Failed to check handle existence", "error", err)
		return nil, fmt.Errorf("failed to check handle: %w", err)
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Handle
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Handle:       req.Handle,
		DisplayName:  displayName,
		Bio:          strings.TrimSpace(req.Bio),
		AvatarURL:    req.AvatarURL,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error("Failed to create user", "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// the account exists even if indexing fails; ReindexAll repairs it
	if err := s.index.IndexUser(ctx, user); err != nil {
		s.logger.Warn("Failed to index new user", "user_id", user.ID, "error", err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "handle", user.Handle)

	summary := user.ToSummary(false)
	return &summary, nil
}

// Login authenticates a user and returns tokens
func (s *UserService) Login(ctx context.Context, req *domain.UserLoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.GetByHandle(ctx, req.Handle)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user", "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Handle)
	if err != nil {
		s.logger.Error("Failed to generate tokens", "error", err)
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "handle", user.Handle)

	return &domain.LoginResponse{
		User:   user.ToSummary(false),
		Tokens: tokens,
	}, nil
}

// RefreshToken refreshes an access token using a refresh token
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Handle)
	if err != nil {
		s.logger.Error("Failed to generate tokens", "error", err)
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("Token refreshed successfully", "user_id", user.ID)

	return tokens, nil
}

// GetProfile returns the public profile of userID as seen by viewerID.
// viewerID may be empty for anonymous requests.
func (s *UserService) GetProfile(ctx context.Context, viewerID, userID string) (*domain.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != "" && viewerID != userID {
		following, err = s.followRepo.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow: %w", err)
		}
	}

	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}

	return &domain.UserProfile{
		UserSummary:   user.ToSummary(following),
		Bio:           user.Bio,
		BioHTML:       s.renderBio(user.Bio),
		FollowerCount: followers,
		CreatedAt:     user.CreatedAt,
	}, nil
}

// UpdateProfile applies the non-nil fields of req to userID
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *domain.UserUpdateRequest) (*domain.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	user.UpdatedAt = time.Now().UTC()

	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := s.index.IndexUser(ctx, user); err != nil {
		s.logger.Warn("Failed to reindex user", "user_id", userID, "error", err)
	}

	return s.GetProfile(ctx, userID, userID)
}

// Search returns users matching keyword, flagged with whether viewerID
// follows them. viewerID may be empty.
func (s *UserService) Search(ctx context.Context, viewerID, keyword string, limit int) ([]domain.UserSummary, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []domain.UserSummary{}, nil
	}

	result, err := s.index.Search(ctx, &search.SearchQuery{Keyword: keyword, Limit: limit})
	if err != nil {
		s.logger.Error("Search failed", "keyword", keyword, "error", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	users := make([]*domain.User, 0, len(result.IDs))
	for _, id := range result.IDs {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				// index is ahead of the store
				s.logger.Debug("Skipped stale search hit", "user_id", id)
				continue
			}
			return nil, fmt.Errorf("failed to load search hit: %w", err)
		}
		users = append(users, user)
	}

	following := map[string]bool{}
	if viewerID != "" && len(users) > 0 {
		ids := make([]string, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		following, err = s.followRepo.FollowingSet(ctx, viewerID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load follow state: %w", err)
		}
	}

	summaries := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.ToSummary(following[u.ID]))
	}

	s.logger.Debug("Search completed", "keyword", keyword, "results", len(summaries), "time_ms", result.QueryTime)
	return summaries, nil
}

// SetFollowing makes followerID follow or unfollow followeeID
func (s *UserService) SetFollowing(ctx context.Context, followerID, followeeID string, follow bool) error {
	if followerID == followeeID {
		return domain.ErrSelfFollow
	}

	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	if follow {
		if err := s.followRepo.Follow(ctx, followerID, followeeID); err != nil {
			return fmt.Errorf("failed to follow: %w", err)
		}
	} else {
		if err := s.followRepo.Unfollow(ctx, followerID, followeeID); err != nil {
			return fmt.Errorf("failed to unfollow: %w", err)
		}
	}

	s.logger.Info("Follow state changed", "follower_id", followerID, "followee_id", followeeID, "follow", follow)
	return nil
}

// ReindexAll rebuilds the search index from the user store
func (s *UserService) ReindexAll(ctx context.Context) (int, error) {
	count := 0
	err := s.userRepo.List(ctx, func(u *domain.User) error {
		if err := s.index.IndexUser(ctx, u); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to reindex users: %w", err)
	}

	s.logger.Info("Rebuilt user search index", "count", count)
	return count, nil
}

// renderBio converts a markdown bio to sanitized HTML
func (s *UserService) renderBio(bio string) string {
	if bio == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(bio), &buf); err != nil {
		s.logger.Debug("Failed to render bio", "error", err)
		return ""
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(buf.String()))
}
