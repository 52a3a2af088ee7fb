package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv reads inline JSON or a credentials file path. Nil means application default
// credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
