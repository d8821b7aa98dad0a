package services

import (
	"context"
	"strings"

	"emiho-marketplace/pkg/logging"
)

// SellerAccount is the result of starting payout onboarding
type SellerAccount struct {
	StripeAccountID string `json:"stripeAccountId"`
	OnboardingURL   string `json:"onboardingUrl"`
}

// SellerOnboarding connects seller profiles to payout accounts
type SellerOnboarding struct {
	store   Store
	gateway PaymentGateway
}

// NewSellerOnboarding creates the onboarding service
func NewSellerOnboarding(store Store, gateway PaymentGateway) *SellerOnboarding {
	return &SellerOnboarding{
		store:   store,
		gateway: gateway,
	}
}

// Onboard creates (or reuses) the seller's payout account and returns a
// hosted onboarding link for it.
func (s *SellerOnboarding) Onboard(ctx context.Context, userID, email string) (*SellerAccount, error) {
	email = strings.TrimSpace(email)
	if userID == "" || email == "" {
		return nil, invalidRequest("Missing userId or email")
	}
	id, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, lookupError("Profile", err)
	}

	accountID := ""
	if profile.CanReceivePayouts() {
		accountID = *profile.StripeAccountID
		logging.Infof("Reusing payout account %s for seller %s", accountID, profile.ID)
	} else {
		accountID, err = s.gateway.CreatePayoutAccount(ctx, email)
		if err != nil {
			logging.Errorf("Failed to create payout account for seller %s: %v", profile.ID, err)
			return nil, upstream(describeUpstream(err), err)
		}
		if err := s.store.SetStripeAccountID(ctx, profile.ID, accountID); err != nil {
			logging.Errorf("Failed to save payout account %s for seller %s: %v", accountID, profile.ID, err)
			return nil, persistence("failed to save payout account", err)
		}
		logging.Infof("Payout account %s created for seller %s", accountID, profile.ID)
	}

	url, err := s.gateway.CreateOnboardingLink(ctx, accountID)
	if err != nil {
		logging.Errorf("Failed to create onboarding link for account %s: %v", accountID, err)
		return nil, upstream(describeUpstream(err), err)
	}

	return &SellerAccount{
		StripeAccountID: accountID,
		OnboardingURL:   url,
	}, nil
}

// LoginLink returns a one-time link into the seller's payout dashboard
func (s *SellerOnboarding) LoginLink(ctx context.Context, accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", invalidRequest("Missing accountId")
	}
	url, err := s.gateway.CreateLoginLink(ctx, accountID)
	if err != nil {
		logging.Errorf("Failed to create login link for account %s: %v", accountID, err)
		return "", upstream(describeUpstream(err), err)
	}
	return url, nil
}

// OwnsAccount reports whether accountID is the payout account of userID
func (s *SellerOnboarding) OwnsAccount(ctx context.Context, userID, accountID string) (bool, error) {
	id, err := parseID("userId", userID)
	if err != nil {
		return false, err
	}
	profile, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return false, lookupError("Profile", err)
	}
	return profile.CanReceivePayouts() && *profile.StripeAccountID == accountID, nil
}
