// Package archive stores raw snapshot payloads in blob storage for audit
// history. Archiving is optional; the pipeline works without it.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
)

// Archive persists raw snapshots outside the database.
type Archive interface {
	StoreSnapshot(ctx context.Context, snap *models.Snapshot) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// AzureArchive writes snapshots to an Azure Blob Storage container.
type AzureArchive struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureArchive implements Archive
var _ Archive = (*AzureArchive)(nil)

// NewAzureArchive creates a blob archive authenticated via managed identity.
func NewAzureArchive(accountName, containerName string) (*AzureArchive, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	a := &AzureArchive{client: client, containerName: containerName}

	_, err = client.CreateContainer(context.Background(), containerName, nil)
	if err != nil && !strings.Contains(err.Error(), "ContainerAlreadyExists") {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return a, nil
}

// StoreSnapshot uploads the raw payload named by fetch date and fingerprint.
func (a *AzureArchive) StoreSnapshot(ctx context.Context, snap *models.Snapshot) error {
	name := fmt.Sprintf("snapshots/%s-%s.json",
		snap.FetchedAt.Format("2006-01-02-15-04-05"), snap.Fingerprint[:12])

	_, err := a.client.UploadBuffer(ctx, a.containerName, name, snap.Raw, &azblob.UploadBufferOptions{
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", name, err)
	}

	logrus.Debugf("Archived snapshot %s", name)
	return nil
}

// List returns archived blob names under the given prefix.
func (a *AzureArchive) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := a.client.NewListBlobsFlatPager(a.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				names = append(names, *blob.Name)
			}
		}
	}

	return names, nil
}
