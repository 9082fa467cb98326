package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")
	store := NewJSONStore(path)

	wallets := []*Wallet{
		{Name: "alice", Address: "0x1111", Type: TypeWatchOnly},
		{Name: "bob", Address: "0x2222", Type: TypeSigning, KeyRef: "presalectl.bob", IsDefault: true},
	}
	require.NoError(t, store.Save(wallets))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Name)
	assert.Equal(t, TypeSigning, loaded[1].Type)
	assert.Equal(t, "presalectl.bob", loaded[1].KeyRef)
	assert.True(t, loaded[1].IsDefault)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestJSONStoreLoadNoFile(t *testing.T) {
	wallets, err := NewJSONStore(filepath.Join(t.TempDir(), "nonexistent.json")).Load()
	require.NoError(t, err)
	assert.Nil(t, wallets)
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewJSONStore(path).Load()
	assert.Error(t, err)
}

func TestManagerPersistsThroughJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	keys := NewInMemoryKeystore()

	mgr := NewManager(WithStore(NewJSONStore(path)), WithKeystore(keys))
	_, err := mgr.AddWithKey("deployer", "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	require.NoError(t, mgr.SetDefault("deployer"))

	reopened := NewManager(WithStore(NewJSONStore(path)), WithKeystore(keys))
	w := reopened.Default()
	require.NotNil(t, w)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address)
}
