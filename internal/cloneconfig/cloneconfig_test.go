package cloneconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPopulatesPublishedDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, 1000, c.JoinAlgOpt.MaxDiffs)
	require.Equal(t, 15, c.JoinAlgOpt.MaxCDR3Diffs)
	require.Equal(t, 100_000.0, c.JoinAlgOpt.MaxScore)
	require.Equal(t, 4, c.AlleleAlgOpt.MinAlt)
}

func TestValidateRejectsHeavyPredicateWithoutHeavyChains(t *testing.T) {
	c := Default()
	c.ClonoGroupOpt.HeavyPC = 90
	err := c.Validate(false, true)
	require.Error(t, err)
}

func TestValidateRejectsLightPredicateWithoutLightChains(t *testing.T) {
	c := Default()
	c.ClonoGroupOpt.CDR3LightLen = true
	err := c.Validate(true, false)
	require.Error(t, err)
}

func TestValidateRejectsAsymmetricBoundWithoutAsymmetricStyle(t *testing.T) {
	c := Default()
	c.ClonoGroupOpt.AsymmetricDistBound = "top=5"
	err := c.Validate(true, true)
	require.Error(t, err)
}

func TestValidateAcceptsConsistentConfiguration(t *testing.T) {
	c := Default()
	c.ClonoGroupOpt.Style = "asymmetric"
	c.ClonoGroupOpt.AsymmetricDistBound = "top=5"
	c.ClonoGroupOpt.HeavyPC = 90
	require.NoError(t, c.Validate(true, true))
}

func TestCrossFilterDisabledByDefault(t *testing.T) {
	c := Default()
	require.Equal(t, 0, c.ClonoFiltOpt.NCross)
}
