package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckNetworkID(t *testing.T) {
	assert.NoError(t, checkNetworkID("31337"))
	assert.NoError(t, checkNetworkID("1"))
	assert.Error(t, checkNetworkID("base"))
	assert.Error(t, checkNetworkID(""))
	assert.Error(t, checkNetworkID("-1"))
}

func TestMapTxError(t *testing.T) {
	err := mapTxError("mint", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "mint")
}
