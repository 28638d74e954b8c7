package merchant_test

import (
	"testing"

	"github.com/boddenberg/categorizer-go/internal/merchant"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"MERPAGO*COTO SUC 123456", "coto suc"},
		{"Café Martínez S.A.", "cafe martinez"},
		{"MercadoPago", "mercado pago"},
		{"Mercado Pago", "mercado pago"},
		{"MERCADOPAGO*COTO", "coto"},
		{"MERCADOPAGO *SPOTIFY", "spotify"},
		{"MERCADO PAGO*FLORERIA LAS ROSAS", "floreria las rosas"},
		{"McDonald's", "mcdonalds"},
		{"UBER *TRIP HELP.UBER.COM", "uber"},
		{"COMPRA DEBITO   Farmacity SRL", "farmacity"},
		{"VISA", "visa"},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, merchant.Normalize(tc.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"MERPAGO*COTO SUC 123456", "Café Martínez S.A.", "Netflix.com", "MercadoPago", "MERCADOPAGO*COTO"} {
		once := merchant.Normalize(raw)
		assert.Equal(t, once, merchant.Normalize(once))
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "electricidad edenor", merchant.Fold("  ELECTRICIDAD   Edénor "))
	assert.Equal(t, "nino", merchant.Fold("Niño"))
}

func TestMemoryKey(t *testing.T) {
	assert.Equal(t, "m:coto", merchant.MemoryKey("MERPAGO*COTO", "anything"))
	assert.Equal(t, "m:coto", merchant.MemoryKey("MERCADOPAGO*COTO", "anything"))
	assert.Equal(t, "d:pago alquiler marzo", merchant.MemoryKey("", "Pago ALQUILER  marzo"))
	assert.Equal(t, "", merchant.MemoryKey(" ", " "))
}
