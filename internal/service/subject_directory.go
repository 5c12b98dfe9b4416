package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// SubjectDirectory resolves tagged subject references against their backing
// stores. Each kind maps to one lookup in an explicit table, so the set of
// things that can be favorited or reviewed is closed and visible here.
type SubjectDirectory struct {
	lookups map[models.SubjectKind]func(ctx context.Context, id string) error
}

// NewSubjectDirectory builds the lookup table over the given stores
func NewSubjectDirectory(products ProductStore, pharmacies PharmacyStore, orders OrderStore) *SubjectDirectory {
	return &SubjectDirectory{
		lookups: map[models.SubjectKind]func(ctx context.Context, id string) error{
			models.SubjectProduct: func(ctx context.Context, id string) error {
				_, err := products.GetByID(ctx, id)
				return err
			},
			models.SubjectPharmacy: func(ctx context.Context, id string) error {
				_, err := pharmacies.GetByID(ctx, id)
				return err
			},
			models.SubjectOrder: func(ctx context.Context, id string) error {
				_, err := orders.GetByID(ctx, id)
				return err
			},
		},
	}
}

// Resolve checks that the reference points at a known kind and an existing
// record
func (d *SubjectDirectory) Resolve(ctx context.Context, subject models.SubjectRef) error {
	lookup, ok := d.lookups[subject.Kind]

	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown subject kind %q", subject.Kind))
	}

	if subject.ID == "" {
		return apperrors.NewValidationError("subject_id is required")
	}

	if err := lookup(ctx, subject.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError(fmt.Sprintf("%s %s not found", subject.Kind, subject.ID))
		}
		return apperrors.NewInternalError("failed to resolve subject")
	}

	return nil
}
