package integrity

import (
	"math/big"
	"testing"

	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	snap := model.Snapshot{
		Metrics: model.AggregateMetrics{WeightedAPY: 7.0, TotalTVL: big.NewInt(1_750_000), ProtocolCount: 3},
	}

	env, err := signer.Sign(snap)
	require.NoError(t, err)

	assert.Equal(t, signer.PublicKey(), env.PublicKey)
	assert.NoError(t, Verify(env), "a freshly signed envelope should verify")
}

func TestVerify_TamperedPayload(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	env, err := signer.Sign(map[string]float64{"apy": 7.0})
	require.NoError(t, err)

	env.Payload = []byte(`{"apy":70}`)
	assert.Error(t, Verify(env), "a modified payload must fail verification")
}

func TestVerify_WrongKey(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)
	other, err := NewSigner()
	require.NoError(t, err)

	env, err := signer.Sign(map[string]float64{"apy": 7.0})
	require.NoError(t, err)

	env.PublicKey = other.PublicKey()
	assert.Error(t, Verify(env), "an envelope claiming another key must fail verification")
}
