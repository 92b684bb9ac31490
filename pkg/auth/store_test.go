package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv("GOPRODL_PASSPHRASE", "test-passphrase-123")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)
	return store
}

func testAccount(name string) *Account {
	return &Account{
		Name: name,
		Cookies: []Cookie{
			{Name: "gp_access_token", Value: "secret-token-value"},
			{Name: "gp_session", Value: "secret-session-value"},
		},
		LastModified: time.Now(),
	}
}

func TestEncryptedFileStore(t *testing.T) {
	store := newTestEncryptedStore(t)
	account := testAccount("personal")

	require.NoError(t, store.Store(account))
	assert.True(t, store.Exists("personal"))

	retrieved, err := store.Retrieve("personal")
	require.NoError(t, err)
	assert.Equal(t, account.Name, retrieved.Name)
	require.Len(t, retrieved.Cookies, 2)
	assert.Equal(t, "secret-token-value", retrieved.Cookies[0].Value)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, store.Delete("personal"))
	assert.False(t, store.Exists("personal"))

	_, err = store.Retrieve("personal")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileIsNotPlaintext(t *testing.T) {
	store := newTestEncryptedStore(t)
	require.NoError(t, store.Store(testAccount("personal")))

	content, err := os.ReadFile(store.filepath)
	require.NoError(t, err)

	assert.False(t, bytes.Contains(content, []byte("secret-token-value")),
		"cookie values must not appear in plaintext")
	assert.False(t, bytes.Contains(content, []byte("secret-session-value")))
}

func TestEncryptedFileStorePersistsAcrossInstances(t *testing.T) {
	t.Setenv("GOPRODL_PASSPHRASE", "test-passphrase-123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	first, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Store(testAccount("personal")))

	second, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	retrieved, err := second.Retrieve("personal")
	require.NoError(t, err)
	assert.Equal(t, "secret-token-value", retrieved.Cookies[0].Value)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("GOPRODL_PASSPHRASE", "right-passphrase")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("personal")))

	t.Setenv("GOPRODL_PASSPHRASE", "wrong-passphrase")
	tampered, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = tampered.Retrieve("personal")
	assert.Error(t, err)
}

func TestManagerValidation(t *testing.T) {
	manager := NewManagerWithStores(newTestEncryptedStore(t))

	assert.Error(t, manager.Store(&Account{Cookies: []Cookie{{Name: "a", Value: "1"}}}),
		"account name is required")
	assert.Error(t, manager.Store(&Account{Name: "personal"}),
		"at least one cookie is required")
}

func TestManagerRoundTrip(t *testing.T) {
	manager := NewManagerWithStores(newTestEncryptedStore(t))

	require.NoError(t, manager.Store(testAccount("personal")))

	retrieved, err := manager.Retrieve("personal")
	require.NoError(t, err)
	assert.Equal(t, "personal", retrieved.Name)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("personal"))
	_, err = manager.Retrieve("personal")
	assert.Error(t, err)
}

func TestManagerRetrieveDefault(t *testing.T) {
	manager := NewManagerWithStores(newTestEncryptedStore(t))

	_, err := manager.RetrieveDefault()
	assert.Error(t, err, "no credentials stored yet")

	require.NoError(t, manager.Store(testAccount("personal")))

	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "personal", account.Name)
}

func TestManagerPrefersMostRecent(t *testing.T) {
	older := newTestEncryptedStore(t)
	newer := newTestEncryptedStore(t)

	stale := testAccount("personal")
	stale.LastModified = time.Now().Add(-time.Hour)
	stale.Cookies[0].Value = "stale-token"
	require.NoError(t, older.Store(stale))

	fresh := testAccount("personal")
	require.NoError(t, newer.Store(fresh))

	manager := NewManagerWithStores(older, newer)
	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "secret-token-value", accounts[0].Cookies[0].Value)
}
