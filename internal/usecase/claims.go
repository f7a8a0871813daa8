package usecase

import (
	"context"
	"errors"
	"time"

	"echodeed/internal/domain"
	"echodeed/internal/infra/crypto"
)

type ClaimCodeRepository interface {
	Create(ctx context.Context, code domain.ClaimCode) error
	GetByHash(ctx context.Context, codeHash string) (*domain.ClaimCode, error)
	MarkRedeemed(ctx context.Context, id, userID string, at time.Time) error
}

// ClaimService issues and redeems one-time claim codes. Codes are stored
// as salted hashes only; redemption validates the presented plaintext in
// constant time before any state changes.
type ClaimService struct {
	Codes ClaimCodeRepository
	Salt  string
	Now   func() time.Time
}

func NewClaimService(codes ClaimCodeRepository, salt string) *ClaimService {
	return &ClaimService{Codes: codes, Salt: salt, Now: time.Now}
}

// Issue generates a fresh claim code for an offer and persists its hash.
// The plaintext is returned once and never stored.
func (s *ClaimService) Issue(ctx context.Context, id, offerID string) (string, error) {
	plain, err := crypto.GenerateSecureCode(12)
	if err != nil {
		return "", err
	}
	code := domain.ClaimCode{
		ID:        id,
		OfferID:   offerID,
		CodeHash:  crypto.HashClaimCode(plain, s.Salt),
		CreatedAt: s.now(),
	}
	if err := s.Codes.Create(ctx, code); err != nil {
		return "", err
	}
	return plain, nil
}

// Redeem validates a presented code and marks it spent. Lookup happens by
// hash equality; the stored hash is then re-checked with the constant-time
// comparator so the decision path does not depend on match position.
func (s *ClaimService) Redeem(ctx context.Context, plainCode, userID string) (*domain.ClaimCode, error) {
	hash := crypto.HashClaimCode(plainCode, s.Salt)
	code, err := s.Codes.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrClaimCodeInvalid
		}
		return nil, err
	}
	if !crypto.ValidateClaimCodeHash(plainCode, code.CodeHash, s.Salt) {
		return nil, domain.ErrClaimCodeInvalid
	}
	if code.RedeemedAt != nil {
		return nil, domain.ErrClaimCodeRedeemed
	}

	at := s.now()
	if err := s.Codes.MarkRedeemed(ctx, code.ID, userID, at); err != nil {
		return nil, err
	}
	code.RedeemedBy = userID
	code.RedeemedAt = &at
	return code, nil
}

func (s *ClaimService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
