// Package secret resolves the Google Secret Manager client used to bootstrap
// ERP, Drive, and AWS credentials, and to fetch the database connection
// string when it is not supplied inline.
package secret

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"

	"github.com/kabsikabs/integration-core/internal/config"
)

// Resolver builds and caches the Secret Manager client for the lifetime of
// the process, following the credential-bootstrap preference order: inline
// JSON, inline base64 JSON, application default credentials, then a
// bootstrap secret name that itself requires ADC to reach.
type Resolver struct {
	cfg *config.Config

	mu     sync.Mutex
	client *secretmanager.Client
}

// New creates a Resolver. The underlying Secret Manager client is built
// lazily on first use and cached for the process lifetime.
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

func (r *Resolver) client_(ctx context.Context) (*secretmanager.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client, err := r.buildClient(ctx)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

func (r *Resolver) buildClient(ctx context.Context) (*secretmanager.Client, error) {
	if b64 := r.cfg.GoogleServiceAccountJSONB64; b64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decoding GOOGLE_SERVICE_ACCOUNT_JSON_B64: %w", err)
		}
		return secretmanager.NewClient(ctx, option.WithCredentialsJSON(decoded))
	}

	if inline := r.cfg.GoogleServiceAccountJSON; inline != "" {
		return secretmanager.NewClient(ctx, option.WithCredentialsJSON([]byte(inline)))
	}

	// Application default credentials (GOOGLE_APPLICATION_CREDENTIALS, GCE/GKE
	// metadata server, or gcloud's local config).
	client, err := secretmanager.NewClient(ctx)
	if err == nil {
		return client, nil
	}

	// Last resort: a bootstrap secret name whose content is the service
	// account JSON. Reaching it still requires ADC to already be valid.
	if name := r.cfg.GoogleServiceAccountSecret; name != "" {
		bootstrap, bErr := secretmanager.NewClient(ctx)
		if bErr != nil {
			return nil, fmt.Errorf("building bootstrap secret client: %w", bErr)
		}
		defer bootstrap.Close()

		saJSON, aErr := accessSecret(ctx, bootstrap, r.cfg.GoogleProjectID, name)
		if aErr != nil {
			return nil, fmt.Errorf("fetching bootstrap service account secret %s: %w", name, aErr)
		}
		return secretmanager.NewClient(ctx, option.WithCredentialsJSON([]byte(saJSON)))
	}

	return nil, fmt.Errorf("building secret manager client: %w", err)
}

// Get returns the plaintext payload of secretName's latest version.
// secretName may be a bare name (resolved under GOOGLE_PROJECT_ID) or a
// fully-qualified "projects/.../secrets/.../versions/..." path.
func (r *Resolver) Get(ctx context.Context, secretName string) (string, error) {
	client, err := r.client_(ctx)
	if err != nil {
		return "", err
	}
	return accessSecret(ctx, client, r.cfg.GoogleProjectID, secretName)
}

// GetAWSCredentials fetches and decodes the AWS_SECRET_NAME secret as JSON,
// returning an empty map if no secret name is configured.
func (r *Resolver) GetAWSCredentials(ctx context.Context) (map[string]string, error) {
	if r.cfg.AWSSecretName == "" {
		return map[string]string{}, nil
	}
	payload, err := r.Get(ctx, r.cfg.AWSSecretName)
	if err != nil {
		return nil, fmt.Errorf("fetching aws credentials secret: %w", err)
	}
	var creds map[string]string
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return nil, fmt.Errorf("decoding aws credentials secret: %w", err)
	}
	return creds, nil
}

func accessSecret(ctx context.Context, client *secretmanager.Client, projectID, secretName string) (string, error) {
	name, err := versionPath(projectID, secretName)
	if err != nil {
		return "", err
	}
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("accessing secret version %s: %w", name, err)
	}
	return string(resp.Payload.Data), nil
}

func versionPath(projectID, secretName string) (string, error) {
	if strings.HasPrefix(secretName, "projects/") {
		if strings.Contains(secretName, "/versions/") {
			return secretName, nil
		}
		return secretName + "/versions/latest", nil
	}
	if projectID == "" {
		return "", fmt.Errorf("GOOGLE_PROJECT_ID is required to resolve secret %q", secretName)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretName), nil
}

// Close releases the cached Secret Manager client, if one was built.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
