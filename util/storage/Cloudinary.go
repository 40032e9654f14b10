package storage

import (
	"context"

	"github.com/bwise1/civic_dispatch/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
)

const ReportsFolder = "reports"

var ErrUploadsDisabled = errors.New("photo uploads are not configured")

type Cloudinary struct {
	CLD *cloudinary.Cloudinary
}

// NewCloudinary returns nil when credentials are missing; UploadImage on a
// nil receiver reports ErrUploadsDisabled.
func NewCloudinary(cfg *config.Config) (*Cloudinary, error) {
	if !cfg.CloudinaryEnabled() {
		return nil, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, errors.Wrap(err, "initializing cloudinary")
	}

	return &Cloudinary{CLD: cld}, nil
}

// UploadImage accepts a file path, remote URL or data URI and returns the secure URL.
func (c *Cloudinary) UploadImage(ctx context.Context, file string, folder string) (string, error) {
	if c == nil || c.CLD == nil {
		return "", ErrUploadsDisabled
	}
	resp, err := c.CLD.Upload.Upload(ctx, file, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", errors.Wrap(err, "uploading image")
	}
	return resp.SecureURL, nil
}
