package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

func TestGetNewDeals_Uses24HourWindow(t *testing.T) {
	repo := &fakePricingRepo{recently: []entity.Pricing{
		{PropFirmID: "apex", AccountSize: 50000},
	}}
	uc := NewPricingUsecase(repo)

	deals, err := uc.GetNewDeals(context.Background())
	require.NoError(t, err)
	assert.Len(t, deals, 1)

	want := time.Now().Add(-24 * time.Hour)
	assert.WithinDuration(t, want, repo.lastSince, 5*time.Second)
}

func TestGetPricingForFirm_NotFoundPropagates(t *testing.T) {
	uc := NewPricingUsecase(&fakePricingRepo{})

	_, err := uc.GetPricingForFirm(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetPricingList_PassesFilters(t *testing.T) {
	repo := &fakePricingRepo{}
	uc := NewPricingUsecase(repo)

	minDiscount := 20.0
	filters := repository.PricingFilters{
		PropFirmIDs:    []string{"ftmo"},
		MinDiscount:    &minDiscount,
		HasChangedOnly: true,
	}
	_, err := uc.GetPricingList(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, filters, repo.lastFilters)
}
