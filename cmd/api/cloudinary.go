package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

func (app *application) deletePhotoFromCloudinary(photoURL string) error {
	// Extract the public ID from the photo URL
	publicID, err := app.extractPublicIDFromURL(photoURL)
	if err != nil {
		return fmt.Errorf("failed to extract public ID: %w", err)
	}

	// Delete the asset from Cloudinary
	_, err = app.cld.Upload.Destroy(context.Background(), uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete photo from Cloudinary: %w", err)
	}

	return nil
}

// Helper function to extract the public ID from the Cloudinary URL
func (app *application) extractPublicIDFromURL(photoURL string) (string, error) {
	parsedURL, err := url.Parse(photoURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	pathParts := strings.Split(parsedURL.Path, "/")
	for i, part := range pathParts {
		if part == "upload" && i+1 < len(pathParts) {
			return strings.Join(pathParts[i+1:], "/"), nil
		}
	}

	return "", errors.New("failed to extract public ID from URL")
}

// uploadToCloudinaryWithID uploads a file to Cloudinary using a custom public ID.
func (app *application) uploadToCloudinaryWithID(file io.Reader, publicID string) (string, error) {
	resp, err := app.cld.Upload.Upload(
		context.Background(), // using a background context for external call
		file,
		uploader.UploadParams{
			Folder:    "gyms",
			PublicID:  publicID,
			Overwrite: api.Bool(false),
		},
	)

	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return resp.SecureURL, nil
}

// uploadImagesWithGymID iterates over the uploaded files, naming each asset
// after the gym so the photos are traceable in the Cloudinary console.
func (app *application) uploadImagesWithGymID(
	files []*multipart.FileHeader,
	gymID int64,
) ([]string, error) {
	var urls []string

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer file.Close()

		publicID := fmt.Sprintf("gym_%d_image_%d", gymID, time.Now().UnixNano())
		url, err := app.uploadToCloudinaryWithID(file, publicID)
		if err != nil {
			return nil, fmt.Errorf("cloudinary upload: %w", err)
		}

		urls = append(urls, url)
	}

	return urls, nil
}
