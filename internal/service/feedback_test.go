package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/infra/sqlite"
	"github.com/boddenberg/categorizer-go/internal/rules"
	"github.com/boddenberg/categorizer-go/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemoryStore(t *testing.T) *sqlite.MemoryStore {
	t.Helper()
	store, err := sqlite.NewMemoryStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFeedback_Record(t *testing.T) {
	fb := service.NewFeedback(newMemoryStore(t), observability.NewMetrics(), zap.NewNop())

	in := domain.FeedbackInput{TransactionID: "tx-9", Description: "COTO SUC 45", Merchant: "MERPAGO*COTO SUC 123456", Category: " Regalos "}
	first, err := fb.Record(context.Background(), in)
	require.NoError(t, err)
	second, err := fb.Record(context.Background(), in)
	require.NoError(t, err)

	_, err = uuid.Parse(first.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "m:coto suc", first.Key)
	assert.Equal(t, "Regalos", first.Category)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 2, second.Count)
}

func TestFeedback_RejectsInvalid(t *testing.T) {
	fb := service.NewFeedback(newMemoryStore(t), observability.NewMetrics(), zap.NewNop())

	_, err := fb.Record(context.Background(), domain.FeedbackInput{Description: "x"})
	var verr *domain.ErrValidation
	assert.True(t, errors.As(err, &verr))
}

func TestFeedback_StoreFailure(t *testing.T) {
	fb := service.NewFeedback(&fakeMemory{}, observability.NewMetrics(), zap.NewNop())

	_, err := fb.Record(context.Background(), domain.FeedbackInput{Description: "x", Category: "Y"})
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "memory", ext.Service)
}

func TestFeedback_TeachesCategorizer(t *testing.T) {
	store := newMemoryStore(t)
	metrics := observability.NewMetrics()
	fb := service.NewFeedback(store, metrics, zap.NewNop())
	svc := service.NewCategorizer(rules.Default(), newFakeCache(), store, nil, "0.6", metrics, zap.NewNop())

	in := input("NETFLIX.COM", -4500)
	before, err := svc.Categorize(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "Suscripciones", before.Category)

	_, err = fb.Record(context.Background(), domain.FeedbackInput{Description: "NETFLIX.COM", Category: "Entretenimiento"})
	require.NoError(t, err)

	in.Amount = -4600 // new cache key
	after, err := svc.Categorize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Entretenimiento", after.Category)
	assert.Equal(t, 1.0, after.Confidence)
	assert.Equal(t, []string{"memory:user_feedback:1"}, after.Reasons)
}

func TestFeedback_WalletMerchantsStaySeparate(t *testing.T) {
	store := newMemoryStore(t)
	metrics := observability.NewMetrics()
	fb := service.NewFeedback(store, metrics, zap.NewNop())
	svc := service.NewCategorizer(rules.Default(), newFakeCache(), store, nil, "0.6", metrics, zap.NewNop())

	receipt, err := fb.Record(context.Background(), domain.FeedbackInput{
		Description: "ramo de flores", Merchant: "MERCADOPAGO*FLORERIA", Category: "Regalos",
	})
	require.NoError(t, err)
	assert.Equal(t, "m:floreria", receipt.Key)

	in := input("compra", -8000)
	in.Merchant = "MERCADOPAGO*COTO"
	out, err := svc.Categorize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Supermercado", out.Category)
	assert.Equal(t, "coto", out.MerchantClean)
	assert.Equal(t, []string{"rule:super-brand"}, out.Reasons)
}
