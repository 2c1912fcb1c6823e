// Package secrets loads the ingestion account and API key from a dotenv file.
package secrets

import (
	"os"

	"codeberg.org/mutker/envirotel/internal/errors"
	"github.com/joho/godotenv"
)

const (
	AccountKey = "AIO_USERNAME"
	APIKeyKey  = "AIO_KEY"
)

const (
	ErrSecretsUnreadable = errors.ErrorCode("secrets_unreadable")
	ErrSecretMissing     = errors.ErrorCode("secrets_missing_key")
)

// Credentials identify the agent to the ingestion endpoint.
type Credentials struct {
	Account string
	APIKey  string
}

// Load reads credentials from path. Process environment variables with the
// same names take precedence over the file. A missing file or key is a
// startup-fatal condition for the caller.
func Load(path string) (Credentials, error) {
	errFactory := errors.New()

	values, err := godotenv.Read(path)
	if err != nil {
		values = map[string]string{}
		if os.Getenv(AccountKey) == "" || os.Getenv(APIKeyKey) == "" {
			return Credentials{}, errFactory.Wrap(errors.ErrStartupFatal,
				errFactory.Wrap(ErrSecretsUnreadable, err))
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return values[key]
	}

	creds := Credentials{
		Account: lookup(AccountKey),
		APIKey:  lookup(APIKeyKey),
	}

	for key, v := range map[string]string{AccountKey: creds.Account, APIKeyKey: creds.APIKey} {
		if v == "" {
			return Credentials{}, errFactory.Wrap(errors.ErrStartupFatal,
				errFactory.WithData(ErrSecretMissing, key))
		}
	}

	return creds, nil
}
