package service

import (
	"context"
	"errors"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/policy"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// FavoriteService manages a user's bookmarked products and pharmacies
type FavoriteService struct {
	favorites FavoriteStore
	subjects  *SubjectDirectory
	logger    logger.Logger
}

// NewFavoriteService creates a new FavoriteService
func NewFavoriteService(favorites FavoriteStore, subjects *SubjectDirectory, logger logger.Logger) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		subjects:  subjects,
		logger:    logger,
	}
}

// List returns the actor's favorites, newest first
func (s *FavoriteService) List(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Favorite, error) {
	if !policy.Allows(actor.Role, policy.ResourceFavorite, policy.CapView) {
		return nil, apperrors.NewForbiddenError("role has no favorites")
	}

	favorites, err := s.favorites.ListByUser(ctx, actor.UserID, limit, offset)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to list favorites")
	}

	if favorites == nil {
		favorites = []*models.Favorite{}
	}

	return favorites, nil
}

// Add bookmarks a product or pharmacy for the actor. Favoriting the same
// subject twice is a conflict.
func (s *FavoriteService) Add(ctx context.Context, actor models.Actor, subject models.SubjectRef) (*models.Favorite, error) {
	if !policy.Allows(actor.Role, policy.ResourceFavorite, policy.CapCreate) {
		return nil, apperrors.NewForbiddenError("role cannot create favorites")
	}

	if subject.Kind == models.SubjectOrder {
		return nil, apperrors.NewValidationError("orders cannot be favorited")
	}

	if err := s.subjects.Resolve(ctx, subject); err != nil {
		return nil, err
	}

	exists, err := s.favorites.Exists(ctx, actor.UserID, subject)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to check favorite")
	}

	if exists {
		return nil, apperrors.NewConflictError("already favorited", "")
	}

	favorite := models.NewFavorite(actor.UserID, subject)

	if err := s.favorites.Create(ctx, favorite); err != nil {
		return nil, apperrors.NewInternalError("failed to create favorite")
	}

	s.logger.Info("Favorite added", "favoriteID", favorite.ID, "userID", actor.UserID,
		"subjectKind", subject.Kind, "subjectID", subject.ID)
	return favorite, nil
}

// Remove deletes one of the actor's favorites. Someone else's favorite reads
// as not found.
func (s *FavoriteService) Remove(ctx context.Context, actor models.Actor, id string) error {
	if !policy.Allows(actor.Role, policy.ResourceFavorite, policy.CapDelete) {
		return apperrors.NewForbiddenError("role cannot delete favorites")
	}

	favorite, err := s.favorites.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError("favorite not found")
		}
		return apperrors.NewInternalError("failed to get favorite")
	}

	if actor.Role != models.RoleAdmin && favorite.UserID != actor.UserID {
		return apperrors.NewNotFoundError("favorite not found")
	}

	if err := s.favorites.Delete(ctx, favorite.ID); err != nil {
		return apperrors.NewInternalError("failed to delete favorite")
	}

	return nil
}

// Check reports whether the actor has favorited the subject
func (s *FavoriteService) Check(ctx context.Context, actor models.Actor, subject models.SubjectRef) (bool, error) {
	if !policy.Allows(actor.Role, policy.ResourceFavorite, policy.CapView) {
		return false, apperrors.NewForbiddenError("role has no favorites")
	}

	exists, err := s.favorites.Exists(ctx, actor.UserID, subject)

	if err != nil {
		return false, apperrors.NewInternalError("failed to check favorite")
	}

	return exists, nil
}
