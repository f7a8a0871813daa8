package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"echodeed/internal/domain"
	"echodeed/internal/infra/crypto"
)

type memClaimCodeRepo struct {
	byHash map[string]*domain.ClaimCode
}

func newMemClaimCodeRepo() *memClaimCodeRepo {
	return &memClaimCodeRepo{byHash: make(map[string]*domain.ClaimCode)}
}

func (r *memClaimCodeRepo) Create(_ context.Context, code domain.ClaimCode) error {
	stored := code
	r.byHash[code.CodeHash] = &stored
	return nil
}

func (r *memClaimCodeRepo) GetByHash(_ context.Context, codeHash string) (*domain.ClaimCode, error) {
	code, ok := r.byHash[codeHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *code
	return &copied, nil
}

func (r *memClaimCodeRepo) MarkRedeemed(_ context.Context, id, userID string, at time.Time) error {
	for _, code := range r.byHash {
		if code.ID == id {
			if code.RedeemedAt != nil {
				return domain.ErrClaimCodeRedeemed
			}
			code.RedeemedBy = userID
			code.RedeemedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func TestClaimIssueAndRedeem(t *testing.T) {
	repo := newMemClaimCodeRepo()
	svc := NewClaimService(repo, "test-salt")
	ctx := context.Background()

	plain, err := svc.Issue(ctx, "code-1", "offer-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(plain) != 14 {
		t.Fatalf("issued code %q has unexpected shape", plain)
	}

	stored := repo.byHash[crypto.HashClaimCode(plain, "test-salt")]
	if stored == nil {
		t.Fatal("issued code not stored by hash")
	}
	if stored.CodeHash == plain {
		t.Fatal("plaintext stored instead of hash")
	}

	code, err := svc.Redeem(ctx, plain, "student-1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if code.OfferID != "offer-1" || code.RedeemedBy != "student-1" || code.RedeemedAt == nil {
		t.Fatalf("redeemed code = %+v", code)
	}
}

func TestClaimRedeemUnknownCode(t *testing.T) {
	svc := NewClaimService(newMemClaimCodeRepo(), "test-salt")

	_, err := svc.Redeem(context.Background(), "NOPE-NOPE-NOPE", "student-1")
	if !errors.Is(err, domain.ErrClaimCodeInvalid) {
		t.Fatalf("err = %v, want ErrClaimCodeInvalid", err)
	}
}

func TestClaimRedeemTwice(t *testing.T) {
	repo := newMemClaimCodeRepo()
	svc := NewClaimService(repo, "test-salt")
	ctx := context.Background()

	plain, err := svc.Issue(ctx, "code-1", "offer-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Redeem(ctx, plain, "student-1"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := svc.Redeem(ctx, plain, "student-2"); !errors.Is(err, domain.ErrClaimCodeRedeemed) {
		t.Fatalf("second redeem err = %v, want ErrClaimCodeRedeemed", err)
	}
}
