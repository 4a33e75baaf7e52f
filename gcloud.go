// Package gcloud holds the connection plumbing shared by the service
// bindings: project resolution, credential loading, and the client options
// every binding passes to its underlying transport.
package gcloud

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Version is the library version reported in the request user agent.
const Version = "0.1.0"

// UserAgent identifies this library to the Google APIs.
const UserAgent = "gcloud-go/" + Version

// Environment variables consulted by Project and Credentials. The
// credentials variable holds base64-encoded service account JSON so it can
// travel through .env files and deploy configs without newline mangling.
const (
	ProjectEnv         = "GCLOUD_PROJECT"
	projectEnvFallback = "GOOGLE_CLOUD_PROJECT"
	CredentialsEnv     = "GCLOUD_CREDENTIALS"
)

// Project resolves the default project id from the environment. Returns ""
// when no project is configured; callers that require a project should treat
// that as an error.
func Project() string {
	if p := os.Getenv(ProjectEnv); p != "" {
		return p
	}
	return os.Getenv(projectEnvFallback)
}

// Credentials decodes the base64 service account JSON from the environment
// into a client option.
func Credentials() (option.ClientOption, error) {
	encoded := os.Getenv(CredentialsEnv)
	if encoded == "" {
		return nil, fmt.Errorf("%s environment variable not set", CredentialsEnv)
	}
	creds, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", CredentialsEnv, err)
	}
	return option.WithCredentialsJSON(creds), nil
}

// Options assembles the option slice used by every binding constructor:
// user agent, scope, env credentials when present, then any caller
// overrides. Callers passing their own credential or endpoint options get
// them appended last so they win.
func Options(scope string, extra ...option.ClientOption) []option.ClientOption {
	opts := []option.ClientOption{option.WithUserAgent(UserAgent)}
	if scope != "" {
		opts = append(opts, option.WithScopes(scope))
	}
	if creds, err := Credentials(); err == nil {
		opts = append(opts, creds)
	}
	return append(opts, extra...)
}

// IsNotFound reports whether err is the service saying a resource does not
// exist, over either the REST or gRPC transport.
func IsNotFound(err error) bool {
	var ae *googleapi.Error
	if errors.As(err, &ae) {
		return ae.Code == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}
