package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDecimal_RoundsHalfUp(t *testing.T) {
	cases := []struct {
		input string
		want  Amount
	}{
		{"10", 1000},
		{"10.005", 1001},
		{"10.004", 1000},
		{"0.015", 2},
		{"6000.00", 600000},
	}
	for _, c := range cases {
		got := FromDecimal(decimal.RequireFromString(c.input))
		if got != c.want {
			t.Errorf("FromDecimal(%q) = %d, want %d", c.input, got, c.want)
		}
	}
}

func TestMulRate(t *testing.T) {
	basic := FromMajor(30000)

	assert.Equal(t, FromMajor(6000), basic.MulRate(decimal.RequireFromString("0.20")))
	assert.Equal(t, FromMajor(4500), basic.MulRate(decimal.RequireFromString("0.15")))
	// 333.33 * 0.15 = 49.9995 -> 50.00
	assert.Equal(t, Amount(5000), Amount(33333).MulRate(decimal.RequireFromString("0.15")))
}

func TestParse(t *testing.T) {
	a, err := Parse("1500.25")
	require.NoError(t, err)
	assert.Equal(t, Amount(150025), a)

	_, err = Parse("1.005")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Parse("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmount_JSON(t *testing.T) {
	var payload struct {
		Amount Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 141750.5}`), &payload))
	assert.Equal(t, Amount(14175050), payload.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "12.30"}`), &payload))
	assert.Equal(t, Amount(1230), payload.Amount)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 12.30}`, string(out))
}

func TestSum(t *testing.T) {
	assert.Equal(t, FromMajor(141750), Sum(FromMajor(40500), FromMajor(47250), FromMajor(54000)))
	assert.Equal(t, Zero, Sum())
}
