package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/standingcat/event-api/internal/mocks"
	"github.com/standingcat/event-api/internal/storage"
)

func TestPutUploadsUnderOwnerPrefix(t *testing.T) {
	api := new(mocks.ObjectAPI)
	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "events" &&
			strings.HasPrefix(aws.ToString(in.Key), "events/42/") &&
			strings.HasSuffix(aws.ToString(in.Key), "_poster.png") &&
			aws.ToString(in.ContentType) == "image/png"
	})).Return(&s3.PutObjectOutput{ETag: aws.String("etag")}, nil)

	store := &storage.S3ImageStore{Client: api, Bucket: "events", PublicURL: "https://cdn.example.com/%s"}
	img, err := store.Put(context.Background(), 42, storage.ImageUpload{
		Filename: "../poster.png", ContentType: "image/png", Data: []byte("png"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(img.URL, "https://cdn.example.com/events/42/"))
	assert.Equal(t, "https://cdn.example.com/"+img.Key, img.URL)
	api.AssertExpectations(t)
}

func TestPutAppliesTransform(t *testing.T) {
	api := new(mocks.ObjectAPI)
	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.ContentType) == "image/jpeg"
	})).Return(&s3.PutObjectOutput{}, nil)

	store := &storage.S3ImageStore{
		Client: api,
		Bucket: "events",
		Transform: func(data []byte) ([]byte, string, error) {
			return append([]byte("jpeg:"), data...), "image/jpeg", nil
		},
	}
	_, err := store.Put(context.Background(), 1, storage.ImageUpload{Filename: "a.png", ContentType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestPutRenamesTransformedImage(t *testing.T) {
	cases := []struct {
		name, filename, contentType, wantSuffix string
	}{
		{"png becomes jpg", "poster.png", "image/png", "_poster.jpg"},
		{"no extension", "poster", "image/png", "_poster.jpg"},
		{"already jpeg", "poster.jpeg", "image/jpeg", "_poster.jpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := new(mocks.ObjectAPI)
			api.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

			store := &storage.S3ImageStore{
				Client: api,
				Bucket: "events",
				Transform: func(data []byte) ([]byte, string, error) {
					return data, "image/jpeg", nil
				},
			}
			img, err := store.Put(context.Background(), 1, storage.ImageUpload{
				Filename: tc.filename, ContentType: tc.contentType, Data: []byte("x"),
			})
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(img.Key, tc.wantSuffix), img.Key)
		})
	}
}

func TestPutSurfacesUploadErrors(t *testing.T) {
	api := new(mocks.ObjectAPI)
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	store := &storage.S3ImageStore{Client: api, Bucket: "events"}
	_, err := store.Put(context.Background(), 1, storage.ImageUpload{Filename: "a.png", Data: []byte("x")})
	assert.ErrorContains(t, err, "access denied")
}

func TestDeleteSkipsEmptyKey(t *testing.T) {
	api := new(mocks.ObjectAPI)
	store := &storage.S3ImageStore{Client: api, Bucket: "events"}

	require.NoError(t, store.Delete(context.Background(), ""))
	api.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/events/1/my%20poster.png",
		storage.CleanURL("https://cdn.example.com/events/1/my poster.png"))
}

func TestURLForBaseURL(t *testing.T) {
	store := &storage.S3ImageStore{PublicURL: "https://cdn.example.com/"}
	assert.Equal(t, "https://cdn.example.com/events/1/a.png", store.URLFor("events/1/a.png"))
}
