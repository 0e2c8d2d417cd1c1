package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

const testSchema = `{
	"type": "object",
	"required": ["key", "secret"],
	"properties": {
		"key":    {"type": "string", "minLength": 1},
		"secret": {"type": "string", "minLength": 1},
		"secure": {"type": "boolean"}
	}
}`

func TestParseOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		literal string
		want    storage.Options
		wantErr error
	}{
		{name: "empty", literal: "", want: storage.Options{}},
		{name: "empty mapping", literal: "{}", want: storage.Options{}},
		{name: "json", literal: `{"key": "AKIA", "secret": "s3cr3t"}`, want: storage.Options{"key": "AKIA", "secret": "s3cr3t"}},
		{name: "python dict", literal: `{'key': 'AKIA', 'secret': 's3cr3t'}`, want: storage.Options{"key": "AKIA", "secret": "s3cr3t"}},
		{name: "yaml flow with bool", literal: `{key: AKIA, secure: true}`, want: storage.Options{"key": "AKIA", "secure": true}},
		{name: "list", literal: `["a", "b"]`, wantErr: storage.ErrConfigParse},
		{name: "scalar", literal: `just a string`, wantErr: storage.ErrConfigParse},
		{name: "unterminated", literal: `{"key": "AKIA"`, wantErr: storage.ErrConfigParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := storage.ParseOptions(tt.literal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		opts := storage.Options{"key": "AKIA", "secret": "s3cr3t"}
		assert.NoError(t, opts.Validate(testSchema))
	})

	t.Run("empty schema accepts anything", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, storage.Options{"anything": 1}.Validate(""))
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Parallel()
		err := storage.Options{"key": "AKIA"}.Validate(testSchema)
		require.ErrorIs(t, err, storage.ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "secret")
	})

	t.Run("value not echoed", func(t *testing.T) {
		t.Parallel()
		err := storage.Options{"key": "AKIA", "secret": 12345}.Validate(testSchema)
		require.ErrorIs(t, err, storage.ErrInvalidCredentials)
		assert.NotContains(t, err.Error(), "12345")
	})
}

func TestOptions_Decode(t *testing.T) {
	t.Parallel()

	var dst struct {
		Key    string `json:"key"`
		Secure bool   `json:"secure"`
	}

	opts, err := storage.ParseOptions(`{'key': 'AKIA', 'secure': true}`)
	require.NoError(t, err)
	require.NoError(t, opts.Decode(&dst))

	assert.Equal(t, "AKIA", dst.Key)
	assert.True(t, dst.Secure)
	assert.Equal(t, "AKIA", opts.String("key"))
	assert.Empty(t, opts.String("secure"))
	assert.Empty(t, opts.String("missing"))

	var wrong struct {
		Secure string `json:"secure"`
	}
	assert.ErrorIs(t, opts.Decode(&wrong), storage.ErrInvalidCredentials)
}
