package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContract() *Contract {
	terms := Terms{
		Rent:      decimal.NewFromInt(1000),
		Utilities: Utilities{Water: decimal.NewFromInt(50), Electricity: decimal.NewFromInt(150)},
		Tenants:   []string{"t1", "t2"},
	}
	return NewContract("c1", "a1", "o1", terms, 1700000000, 1731536000, "o1", 1700000000)
}

// ============================================================================
// VERSION LABELS
// ============================================================================

func TestFormatAndParseVersion(t *testing.T) {
	assert.Equal(t, "1.00", FormatVersion(1, 0))
	assert.Equal(t, "3.07", FormatVersion(3, 7))
	assert.Equal(t, "2.12", FormatVersion(2, 12))

	major, minor, err := ParseVersion("4.09")
	require.NoError(t, err)
	assert.Equal(t, 4, major)
	assert.Equal(t, 9, minor)

	_, _, err = ParseVersion("4")
	assert.Error(t, err)
	_, _, err = ParseVersion("0.01")
	assert.Error(t, err)
}

// ============================================================================
// MAJOR / MINOR UPDATES
// ============================================================================

func TestNewContract_StartsAtOne(t *testing.T) {
	c := newTestContract()

	assert.Equal(t, "1.00", c.CurrentVersion)
	assert.Equal(t, ContractActive, c.Status)
	require.Len(t, c.Versions, 1)
	require.NoError(t, c.CheckVersions())
}

func TestApplyMajorUpdate_AppendsVersion(t *testing.T) {
	c := newTestContract()

	v, err := c.ApplyMajorUpdate(Terms{Rent: decimal.NewFromInt(1200)}, "renewal", "o1", 1700100000)
	require.NoError(t, err)

	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, 0, v.MinorVersion)
	assert.Equal(t, "2.00", c.CurrentVersion)
	require.Len(t, c.Versions, 2)
	assert.True(t, c.Versions[0].Rent.Equal(decimal.NewFromInt(1000)), "old version must be untouched")
	require.NoError(t, c.CheckVersions())
}

func TestApplyMinorUpdate_AmendsLatestInPlace(t *testing.T) {
	c := newTestContract()
	newRent := decimal.NewFromInt(1100)

	v, err := c.ApplyMinorUpdate(Amendment{Description: "rent adjustment", Rent: &newRent}, "o1", 1700200000)
	require.NoError(t, err)

	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, 1, v.MinorVersion)
	assert.Equal(t, "1.01", c.CurrentVersion)
	require.Len(t, c.Versions, 1)
	require.Len(t, v.Appendices, 1)
	assert.Equal(t, 1, v.Appendices[0].Number)
	assert.Equal(t, []string{"rent: 1000.00 -> 1100.00"}, v.Appendices[0].Changes)
	assert.Len(t, v.Changelog, 2)
	require.NoError(t, c.CheckVersions())
}

func TestMixedUpdates_KeepCurrentVersionOnLast(t *testing.T) {
	c := newTestContract()

	_, err := c.ApplyMinorUpdate(Amendment{Description: "a"}, "o1", 1)
	require.NoError(t, err)
	_, err = c.ApplyMinorUpdate(Amendment{Description: "b", Tenants: []string{"t1"}}, "o1", 2)
	require.NoError(t, err)
	_, err = c.ApplyMajorUpdate(Terms{Rent: decimal.NewFromInt(900)}, "", "o1", 3)
	require.NoError(t, err)
	_, err = c.ApplyMinorUpdate(Amendment{Description: "c"}, "o1", 4)
	require.NoError(t, err)

	assert.Equal(t, "2.01", c.CurrentVersion)
	assert.Equal(t, "1.02", c.Versions[0].Label())
	assert.Equal(t, []string{"t1"}, []string(c.Versions[0].Tenants))
	require.NoError(t, c.CheckVersions())

	latest, err := c.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, "2.01", latest.Label())
}

func TestLatestVersion_UsesNumericOrder(t *testing.T) {
	c := &Contract{Versions: []ContractVersion{
		{VersionNumber: 10, MinorVersion: 0},
		{VersionNumber: 9, MinorVersion: 12},
		{VersionNumber: 2, MinorVersion: 3},
	}}

	latest, err := c.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, "10.00", latest.Label())

	_, err = (&Contract{}).LatestVersion()
	assert.ErrorIs(t, err, ErrNoContractVersion)
}

func TestVersionLookup(t *testing.T) {
	c := newTestContract()
	_, _ = c.ApplyMinorUpdate(Amendment{Description: "a"}, "o1", 1)
	_, _ = c.ApplyMajorUpdate(Terms{Rent: decimal.NewFromInt(900)}, "", "o1", 2)

	v, err := c.Version("1.01")
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)

	v, err = c.Version("2.00")
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)

	_, err = c.Version("3.00")
	assert.Error(t, err)

	_, err = c.Version("1.00")
	assert.ErrorIs(t, err, ErrSupersededVersion)
}

func TestCheckVersions_DetectsDrift(t *testing.T) {
	c := newTestContract()
	c.CurrentVersion = "1.03"
	assert.Error(t, c.CheckVersions())
}
