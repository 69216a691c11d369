package service

import (
	"context"
	"errors"
	"time"

	"Go_Shelf/internal/storage"
	"Go_Shelf/utils"
)

var errStorageMissing = errors.New("storage not initialized")

// presignObject returns a presigned GET URL whose response carries the
// original filename, as an attachment or for inline viewing.
func presignObject(
	ctx context.Context,
	bucketName string,
	objectName string,
	fileName string,
	expiry time.Duration,
	inline bool,
) (string, error) {
	if objectName == "" {
		return "", errors.New("object name missing")
	}
	if storage.Default == nil {
		return "", errStorageMissing
	}
	url, err := storage.Default.PresignedGetObjectWithResponse(
		ctx,
		bucketName,
		objectName,
		expiry,
		map[string]string{
			"response-content-type":        GetContentBook(fileName),
			"response-content-disposition": utils.ContentDisposition(fileName, inline),
		},
	)
	if err == nil {
		return url, nil
	}
	return storage.Default.PresignedGetObject(ctx, bucketName, objectName, expiry)
}
