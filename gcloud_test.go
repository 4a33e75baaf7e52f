package gcloud

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestProject(t *testing.T) {
	t.Setenv(ProjectEnv, "")
	t.Setenv(projectEnvFallback, "")
	assert.Equal(t, "", Project())

	t.Setenv(projectEnvFallback, "fallback-project")
	assert.Equal(t, "fallback-project", Project())

	t.Setenv(ProjectEnv, "main-project")
	assert.Equal(t, "main-project", Project())
}

func TestCredentials(t *testing.T) {
	t.Setenv(CredentialsEnv, "")
	_, err := Credentials()
	require.Error(t, err)

	t.Setenv(CredentialsEnv, "not base64!!")
	_, err = Credentials()
	require.Error(t, err)

	t.Setenv(CredentialsEnv, base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`)))
	opt, err := Credentials()
	require.NoError(t, err)
	assert.NotNil(t, opt)
}

func TestOptions(t *testing.T) {
	t.Setenv(CredentialsEnv, "")

	opts := Options("")
	assert.Len(t, opts, 1) // user agent only

	opts = Options("https://www.googleapis.com/auth/datastore")
	assert.Len(t, opts, 2)

	t.Setenv(CredentialsEnv, base64.StdEncoding.EncodeToString([]byte(`{}`)))
	opts = Options("scope")
	assert.Len(t, opts, 3)
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("boom")))

	restErr := &googleapi.Error{Code: http.StatusNotFound, Message: "no such dataset"}
	assert.True(t, IsNotFound(restErr))
	assert.True(t, IsNotFound(fmt.Errorf("bigquery datasets.get error: %w", restErr)))
	assert.False(t, IsNotFound(&googleapi.Error{Code: http.StatusForbidden}))

	grpcErr := status.Error(codes.NotFound, "no such entity")
	assert.True(t, IsNotFound(grpcErr))
	assert.False(t, IsNotFound(status.Error(codes.PermissionDenied, "nope")))
}
