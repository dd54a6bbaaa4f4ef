package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/google/uuid"

	"github.com/AsliddinWeb/online-course-platform/config"
)

// AzureProvider stores lesson materials in Azure Blob Storage.
type AzureProvider struct {
	client        *azblob.Client
	containerName string
	config        config.AzureCloudConfig
}

func NewAzureProvider(cfg config.AzureCloudConfig) (*AzureProvider, error) {
	if err := validateAzureConfig(cfg); err != nil {
		return nil, err
	}

	var client *azblob.Client
	var err error

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.StorageAccountName)
		credential, credErr := azblob.NewSharedKeyCredential(cfg.StorageAccountName, cfg.StorageAccountKey)
		if credErr != nil {
			return nil, &StorageError{
				Code:    "AZURE_CREDENTIAL_ERROR",
				Message: "failed to create Azure credentials",
				Cause:   credErr,
			}
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	}
	if err != nil {
		return nil, &StorageError{
			Code:    "AZURE_CLIENT_ERROR",
			Message: "failed to create Azure Blob Storage client",
			Cause:   err,
		}
	}

	if !cfg.UseHTTPS && cfg.ConnectionString == "" {
		cfg.UseHTTPS = true
	}

	return &AzureProvider{
		client:        client,
		containerName: cfg.ContainerName,
		config:        cfg,
	}, nil
}

func validateAzureConfig(cfg config.AzureCloudConfig) error {
	if cfg.ConnectionString == "" {
		if cfg.StorageAccountName == "" {
			return &StorageError{
				Code:    "MISSING_AZURE_ACCOUNT",
				Message: "Azure storage account name or connection string is required",
			}
		}
		if cfg.StorageAccountKey == "" {
			return &StorageError{
				Code:    "MISSING_AZURE_KEY",
				Message: "Azure storage account key is required when not using connection string",
			}
		}
	}
	if cfg.ContainerName == "" {
		return &StorageError{
			Code:    "MISSING_AZURE_CONTAINER",
			Message: "Azure blob container name is required",
		}
	}
	return nil
}

func (p *AzureProvider) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	if req == nil {
		return nil, &StorageError{Code: "INVALID_REQUEST", Message: "upload request cannot be nil"}
	}

	fileID := req.FileID
	if fileID == "" {
		fileID = uuid.New().String()
		if ext := path.Ext(req.FileName); ext != "" {
			fileID += ext
		}
	}

	metadata := make(map[string]*string)
	if req.FileName != "" {
		metadata["filename"] = to.Ptr(req.FileName)
	}
	for k, v := range req.Metadata {
		metadata[k] = to.Ptr(v)
	}

	uploadOptions := &azblob.UploadStreamOptions{
		Metadata: metadata,
	}
	if req.ContentType != "" {
		uploadOptions.HTTPHeaders = &blob.HTTPHeaders{
			BlobContentType: to.Ptr(req.ContentType),
		}
	}

	uploadResponse, err := p.client.UploadStream(ctx, p.containerName, fileID, req.Content, uploadOptions)
	if err != nil {
		return nil, &StorageError{
			Code:    "UPLOAD_FAILED",
			Message: "failed to upload file to Azure Blob Storage",
			Cause:   err,
		}
	}

	response := &UploadResponse{
		FileID:      fileID,
		PublicURL:   p.publicURL(fileID),
		ContentType: req.ContentType,
		UploadedAt:  time.Now().UTC(),
	}
	if uploadResponse.ETag != nil {
		response.ETag = string(*uploadResponse.ETag)
	}
	if req.ContentLength > 0 {
		response.Size = req.ContentLength
	}

	return response, nil
}

func (p *AzureProvider) FileURL(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", ErrInvalidFileID
	}
	return p.publicURL(fileID), nil
}

func (p *AzureProvider) PresignedURL(ctx context.Context, fileID string, expiration time.Duration) (string, error) {
	if fileID == "" {
		return "", ErrInvalidFileID
	}

	_, err := p.blobClient(fileID).GetProperties(ctx, nil)
	if err != nil {
		return "", &StorageError{
			Code:    "FILE_NOT_FOUND",
			Message: "file not found in Azure Blob Storage",
			Cause:   err,
		}
	}

	sasQueryParams, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    time.Now().UTC().Add(expiration),
		ContainerName: p.containerName,
		BlobName:      fileID,
		Permissions:   to.Ptr(sas.BlobPermissions{Read: true}).String(),
	}.SignWithSharedKey(p.sharedKeyCredential())
	if err != nil {
		return "", &StorageError{
			Code:    "SAS_GENERATION_FAILED",
			Message: "failed to generate SAS token",
			Cause:   err,
		}
	}

	return p.publicURL(fileID) + "?" + sasQueryParams.Encode(), nil
}

func (p *AzureProvider) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return ErrInvalidFileID
	}

	_, err := p.blobClient(fileID).Delete(ctx, nil)
	if err != nil {
		return &StorageError{
			Code:    "DELETE_FAILED",
			Message: "failed to delete file from Azure Blob Storage",
			Cause:   err,
		}
	}
	return nil
}

func (p *AzureProvider) List(ctx context.Context, prefix string, maxResults int) ([]*FileInfo, error) {
	listOptions := &container.ListBlobsFlatOptions{
		Include: container.ListBlobsInclude{Metadata: true},
	}
	if prefix != "" {
		listOptions.Prefix = to.Ptr(prefix)
	}
	if maxResults > 0 {
		listOptions.MaxResults = to.Ptr(int32(maxResults))
	}

	containerClient := p.client.ServiceClient().NewContainerClient(p.containerName)
	pager := containerClient.NewListBlobsFlatPager(listOptions)

	files := []*FileInfo{}
	if pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &StorageError{
				Code:    "LIST_FAILED",
				Message: "failed to list files from Azure Blob Storage",
				Cause:   err,
			}
		}

		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}

			info := &FileInfo{
				FileID:    *item.Name,
				PublicURL: p.publicURL(*item.Name),
				Metadata:  make(map[string]string),
			}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.ContentType != nil {
					info.ContentType = *item.Properties.ContentType
				}
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
				if item.Properties.ETag != nil {
					info.ETag = string(*item.Properties.ETag)
				}
			}
			for k, v := range item.Metadata {
				if v != nil {
					if k == "filename" {
						info.FileName = *v
					}
					info.Metadata[k] = *v
				}
			}

			files = append(files, info)
		}
	}

	return files, nil
}

func (p *AzureProvider) Info(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, ErrInvalidFileID
	}

	props, err := p.blobClient(fileID).GetProperties(ctx, nil)
	if err != nil {
		return nil, &StorageError{
			Code:    "FILE_NOT_FOUND",
			Message: "file not found in Azure Blob Storage",
			Cause:   err,
		}
	}

	return fileInfoFromProperties(fileID, p.publicURL(fileID), props), nil
}

// fileInfoFromProperties maps a GetProperties response onto FileInfo. Every
// field is optional on the wire, a metadata-only response carries nil
// pointers throughout.
func fileInfoFromProperties(fileID, publicURL string, props blob.GetPropertiesResponse) *FileInfo {
	info := &FileInfo{
		FileID:    fileID,
		PublicURL: publicURL,
		Metadata:  make(map[string]string),
	}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
	}
	if props.LastModified != nil {
		info.LastModified = *props.LastModified
	}
	if props.ETag != nil {
		info.ETag = string(*props.ETag)
	}
	for k, v := range props.Metadata {
		if v != nil {
			if k == "filename" {
				info.FileName = *v
			}
			info.Metadata[k] = *v
		}
	}
	return info
}

func (p *AzureProvider) blobClient(fileID string) *blob.Client {
	return p.client.ServiceClient().NewContainerClient(p.containerName).NewBlobClient(fileID)
}

func (p *AzureProvider) publicURL(fileID string) string {
	if p.config.BaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(p.config.BaseURL, "/"), p.containerName, fileID)
	}

	protocol := "https"
	if !p.config.UseHTTPS {
		protocol = "http"
	}

	return fmt.Sprintf("%s://%s.blob.core.windows.net/%s/%s",
		protocol, p.config.StorageAccountName, p.containerName, url.QueryEscape(fileID))
}

func (p *AzureProvider) sharedKeyCredential() *azblob.SharedKeyCredential {
	credential, _ := azblob.NewSharedKeyCredential(p.config.StorageAccountName, p.config.StorageAccountKey)
	return credential
}
