package azureblob_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/azureblob"
)

// testKey is base64 for "not-a-real-account-key".
const testKey = "bm90LWEtcmVhbC1hY2NvdW50LWtleQ=="

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("shared key can sign", func(t *testing.T) {
		t.Parallel()
		d, err := azureblob.New(azureblob.Options{Account: "acct", AccountKey: testKey})
		require.NoError(t, err)

		_, ok := d.Signer()
		assert.True(t, ok)
	})

	t.Run("sas token cannot sign", func(t *testing.T) {
		t.Parallel()
		d, err := azureblob.New(azureblob.Options{Account: "acct", SASToken: "?sv=2022-11-02&sig=abc"})
		require.NoError(t, err)

		_, ok := d.Signer()
		assert.False(t, ok)
	})

	t.Run("key not base64", func(t *testing.T) {
		t.Parallel()
		_, err := azureblob.New(azureblob.Options{Account: "acct", AccountKey: "%%%not-base64"})
		assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
	})

	t.Run("no credential", func(t *testing.T) {
		t.Parallel()
		_, err := azureblob.New(azureblob.Options{Account: "acct"})
		assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
	})
}

func TestSigner(t *testing.T) {
	t.Parallel()

	d, err := azureblob.New(azureblob.Options{Account: "acct", AccountKey: testKey})
	require.NoError(t, err)

	s, ok := d.Signer()
	require.True(t, ok)

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := s.SignedURL(context.Background(), "resources", "resources/abc/f.csv", expiry)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "acct.blob.core.windows.net", u.Host)
	q := u.Query()
	assert.Equal(t, "r", q.Get("sp"), "read-only permission")
	assert.Equal(t, "b", q.Get("sr"), "scoped to a single blob")
	assert.Equal(t, "2030-01-02T03:04:05Z", q.Get("se"))
	assert.NotEmpty(t, q.Get("sig"))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		literal string
		valid   bool
	}{
		{name: "account key", literal: `{"key": "acct", "secret": "a2V5"}`, valid: true},
		{name: "sas token", literal: `{"key": "acct", "sas_token": "sv=2022"}`, valid: true},
		{name: "azurite endpoint", literal: `{"key": "devstoreaccount1", "secret": "a2V5", "host": "http://127.0.0.1:10000/devstoreaccount1"}`, valid: true},
		{name: "missing account", literal: `{"secret": "a2V5"}`, valid: false},
		{name: "missing credential", literal: `{"key": "acct"}`, valid: false},
		{name: "both credentials", literal: `{"key": "acct", "secret": "a2V5", "sas_token": "sv=2022"}`, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := storage.ParseOptions(tt.literal)
			require.NoError(t, err)

			err = opts.Validate(azureblob.Schema)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
			}
		})
	}
}
