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

// AddressInput carries the writable fields of an address book entry
type AddressInput struct {
	Label         string             `json:"label"`
	RecipientName string             `json:"recipient_name"`
	PhoneNumber   string             `json:"phone_number"`
	AddressLine1  string             `json:"address_line1"`
	AddressLine2  *string            `json:"address_line2"`
	City          string             `json:"city"`
	State         string             `json:"state"`
	PostalCode    string             `json:"postal_code"`
	Country       string             `json:"country"`
	Landmark      *string            `json:"landmark"`
	Type          models.AddressType `json:"type"`
	IsDefault     bool               `json:"is_default"`
}

// AddressService manages a user's address book. It owns the one-default
// invariant: a user's first address becomes the default, marking another
// address default unmarks the rest, and deleting the default promotes the
// oldest remaining address.
type AddressService struct {
	addresses  AddressStore
	pharmacies PharmacyStore
	logger     logger.Logger
}

// NewAddressService creates a new AddressService
func NewAddressService(addresses AddressStore, pharmacies PharmacyStore, logger logger.Logger) *AddressService {
	return &AddressService{
		addresses:  addresses,
		pharmacies: pharmacies,
		logger:     logger,
	}
}

// List returns the actor's addresses, default first
func (s *AddressService) List(ctx context.Context, actor models.Actor) ([]*models.Address, error) {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapView) {
		return nil, apperrors.NewForbiddenError("role has no address book")
	}

	addresses, err := s.addresses.ListByUser(ctx, actor.UserID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to list addresses")
	}

	if addresses == nil {
		addresses = []*models.Address{}
	}

	return addresses, nil
}

// Get retrieves one of the actor's addresses. Someone else's address reads
// as not found rather than forbidden, hiding which IDs exist.
func (s *AddressService) Get(ctx context.Context, actor models.Actor, id string) (*models.Address, error) {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapView) {
		return nil, apperrors.NewForbiddenError("role has no address book")
	}

	return s.ownedAddress(ctx, actor, id)
}

// GetDefault retrieves the actor's default address
func (s *AddressService) GetDefault(ctx context.Context, actor models.Actor) (*models.Address, error) {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapView) {
		return nil, apperrors.NewForbiddenError("role has no address book")
	}

	address, err := s.addresses.GetDefault(ctx, actor.UserID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("no default address")
		}
		return nil, apperrors.NewInternalError("failed to get default address")
	}

	return address, nil
}

// Create adds an address to the actor's book. The first address always
// becomes the default; a later address marked default displaces the current
// one.
func (s *AddressService) Create(ctx context.Context, actor models.Actor, input AddressInput) (*models.Address, error) {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapCreate) {
		return nil, apperrors.NewForbiddenError("role cannot create addresses")
	}

	if err := validateAddressInput(input); err != nil {
		return nil, err
	}

	count, err := s.addresses.CountByUser(ctx, actor.UserID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to count addresses")
	}

	address := models.NewAddress(actor.UserID)
	applyAddressInput(address, input)

	if count == 0 {
		address.IsDefault = true
	}

	tx, err := s.addresses.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if address.IsDefault {
		if err = s.addresses.UnsetDefaultsInTx(ctx, tx, actor.UserID, address.ID); err != nil {
			return nil, apperrors.NewInternalError("failed to clear previous default")
		}
	}

	if err = s.addresses.CreateInTx(ctx, tx, address); err != nil {
		return nil, apperrors.NewInternalError("failed to create address")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit address")
	}

	s.logger.Info("Address created", "addressID", address.ID, "userID", actor.UserID, "isDefault", address.IsDefault)
	return address, nil
}

// Update rewrites one of the actor's addresses. Marking it default displaces
// the current default; unmarking the only default is refused so the book
// never silently loses its default.
func (s *AddressService) Update(ctx context.Context, actor models.Actor, id string, input AddressInput) (*models.Address, error) {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapUpdate) {
		return nil, apperrors.NewForbiddenError("role cannot update addresses")
	}

	if err := validateAddressInput(input); err != nil {
		return nil, err
	}

	address, err := s.ownedAddress(ctx, actor, id)

	if err != nil {
		return nil, err
	}

	if address.IsDefault && !input.IsDefault {
		return nil, apperrors.NewConflictError("cannot unset the default address, set another address as default instead", "default")
	}

	applyAddressInput(address, input)

	tx, err := s.addresses.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if address.IsDefault {
		if err = s.addresses.UnsetDefaultsInTx(ctx, tx, actor.UserID, address.ID); err != nil {
			return nil, apperrors.NewInternalError("failed to clear previous default")
		}
	}

	if err = s.addresses.UpdateInTx(ctx, tx, address); err != nil {
		return nil, apperrors.NewInternalError("failed to update address")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit address update")
	}

	return address, nil
}

// SetDefault makes one of the actor's addresses the default and unmarks the
// rest
func (s *AddressService) SetDefault(ctx context.Context, actor models.Actor, id string) (*models.Address, error) {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapUpdate) {
		return nil, apperrors.NewForbiddenError("role cannot update addresses")
	}

	address, err := s.ownedAddress(ctx, actor, id)

	if err != nil {
		return nil, err
	}

	if address.IsDefault {
		return address, nil
	}

	address.IsDefault = true

	tx, err := s.addresses.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.addresses.UnsetDefaultsInTx(ctx, tx, actor.UserID, address.ID); err != nil {
		return nil, apperrors.NewInternalError("failed to clear previous default")
	}

	if err = s.addresses.UpdateInTx(ctx, tx, address); err != nil {
		return nil, apperrors.NewInternalError("failed to update address")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit default change")
	}

	s.logger.Info("Default address changed", "addressID", address.ID, "userID", actor.UserID)
	return address, nil
}

// Delete removes one of the actor's addresses. Deleting the default promotes
// the oldest remaining address so the book keeps a default while non-empty.
func (s *AddressService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !policy.Allows(actor.Role, policy.ResourceAddress, policy.CapDelete) {
		return apperrors.NewForbiddenError("role cannot delete addresses")
	}

	address, err := s.ownedAddress(ctx, actor, id)

	if err != nil {
		return err
	}

	tx, err := s.addresses.BeginTx(ctx)

	if err != nil {
		return apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.addresses.DeleteInTx(ctx, tx, address.ID); err != nil {
		return apperrors.NewInternalError("failed to delete address")
	}

	if address.IsDefault {
		if err = s.addresses.PromoteAnotherInTx(ctx, tx, actor.UserID, address.ID); err != nil {
			return apperrors.NewInternalError("failed to promote replacement default")
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit address deletion")
	}

	s.logger.Info("Address deleted", "addressID", address.ID, "userID", actor.UserID)
	return nil
}

// NearbyPharmacies lists the active pharmacies in the same city as one of
// the actor's addresses
func (s *AddressService) NearbyPharmacies(ctx context.Context, actor models.Actor, id string) ([]*models.Pharmacy, error) {
	address, err := s.Get(ctx, actor, id)

	if err != nil {
		return nil, err
	}

	pharmacies, err := s.pharmacies.ListByCity(ctx, address.City)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to list pharmacies")
	}

	if pharmacies == nil {
		pharmacies = []*models.Pharmacy{}
	}

	return pharmacies, nil
}

// ownedAddress loads an address and checks it belongs to the actor. Admins
// may address any record.
func (s *AddressService) ownedAddress(ctx context.Context, actor models.Actor, id string) (*models.Address, error) {
	address, err := s.addresses.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("address not found")
		}
		return nil, apperrors.NewInternalError("failed to get address")
	}

	if actor.Role != models.RoleAdmin && address.UserID != actor.UserID {
		return nil, apperrors.NewNotFoundError("address not found")
	}

	return address, nil
}

func validateAddressInput(input AddressInput) error {
	switch {
	case input.RecipientName == "":
		return apperrors.NewValidationError("recipient_name is required")
	case input.PhoneNumber == "":
		return apperrors.NewValidationError("phone_number is required")
	case input.AddressLine1 == "":
		return apperrors.NewValidationError("address_line1 is required")
	case input.City == "":
		return apperrors.NewValidationError("city is required")
	case input.PostalCode == "":
		return apperrors.NewValidationError("postal_code is required")
	case input.Country == "":
		return apperrors.NewValidationError("country is required")
	}

	if input.Type != "" && !models.ValidAddressType(input.Type) {
		return apperrors.NewValidationError("type must be home, work, or other")
	}

	return nil
}

func applyAddressInput(address *models.Address, input AddressInput) {
	address.Label = input.Label
	address.RecipientName = input.RecipientName
	address.PhoneNumber = input.PhoneNumber
	address.AddressLine1 = input.AddressLine1
	address.AddressLine2 = input.AddressLine2
	address.City = input.City
	address.State = input.State
	address.PostalCode = input.PostalCode
	address.Country = input.Country
	address.Landmark = input.Landmark
	address.IsDefault = input.IsDefault

	if input.Type != "" {
		address.Type = input.Type
	}
}
