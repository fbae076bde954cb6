package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/unit-mercury/mercury-api/config"
)

type cloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary builds an ObjectStore backed by Cloudinary, configured from
// the CLOUDINARY_URL style connection string.
func NewCloudinary(conf *config.Config) (ObjectStore, error) {
	cld, err := cloudinary.NewFromURL(conf.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &cloudinaryStore{cld: cld}, nil
}

// Upload stores the blob as a raw asset under the given path and returns its
// delivery URL. Re-uploading the same path overwrites the previous content.
func (c *cloudinaryStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     path,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload rejected: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Download fetches blob content by its delivery URL.
func (c *cloudinaryStore) Download(_ context.Context, url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *cloudinaryStore) Delete(ctx context.Context, path string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     path,
		ResourceType: "raw",
	})
	if err != nil {
		return err
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("destroy rejected: %s", resp.Error.Message)
	}
	return nil
}

func (c *cloudinaryStore) Exists(ctx context.Context, path string) (bool, error) {
	resp, err := c.cld.Admin.Asset(ctx, admin.AssetParams{
		PublicID:  path,
		AssetType: api.File,
	})
	if err != nil {
		return false, err
	}
	if resp.Error.Message != "" {
		return false, nil
	}
	return resp.PublicID != "", nil
}
