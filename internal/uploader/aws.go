package uploader

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/endpoints"
	"github.com/aws/aws-sdk-go/aws/session"

	appErrors "glacier-backup/internal/errors"
)

// LoadCredentials resolves a named profile from a shared credentials file.
// An empty file uses the SDK default location.
func LoadCredentials(profile, file string) (*credentials.Credentials, error) {
	creds := credentials.NewSharedCredentials(file, profile)
	if _, err := creds.Get(); err != nil {
		return nil, appErrors.NewCredentialsError(fmt.Sprintf("unable to load credentials for profile %q", profile), err).
			WithUserMessage("Unable to get credentials - exiting!")
	}
	return creds, nil
}

// ValidateRegion checks that region is known to one of the SDK partitions
func ValidateRegion(region string) error {
	for _, p := range endpoints.DefaultPartitions() {
		if _, ok := p.Regions()[region]; ok {
			return nil
		}
	}
	return appErrors.NewConfigurationError(fmt.Sprintf("unknown region %q", region), nil).
		WithUserMessage("Unable to find region - exiting!")
}

func newAWSSession(region string, creds *credentials.Credentials) (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: creds,
	})
	if err != nil {
		return nil, appErrors.NewConfigurationError("failed to create AWS session", err)
	}
	return sess, nil
}
