package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func writeArtifact(t *testing.T, name string, f Format) Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return Artifact{Format: f, Path: path, Size: 4}
}

func TestS3PublisherPublish(t *testing.T) {
	putter := &mockPutter{}
	putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "esg-features" &&
			aws.ToString(in.Key) == "features/run=r1/out.csv" &&
			aws.ToString(in.ContentType) == "text/csv" &&
			in.Metadata["run-id"] == "r1"
	})).Return(&s3.PutObjectOutput{}, nil).Once()
	putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "features/run=r1/out.parquet"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	p := NewS3PublisherWithClient(putter, "esg-features", "/features/", nil)
	uris, err := p.Publish(context.Background(), "r1", []Artifact{
		writeArtifact(t, "out.csv", FormatCSV),
		writeArtifact(t, "out.parquet", FormatParquet),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://esg-features/features/run=r1/out.csv",
		"s3://esg-features/features/run=r1/out.parquet",
	}, uris)
	putter.AssertExpectations(t)
}

func TestS3PublisherError(t *testing.T) {
	putter := &mockPutter{}
	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	p := NewS3PublisherWithClient(putter, "b", "", nil)
	uris, err := p.Publish(context.Background(), "r2", []Artifact{writeArtifact(t, "a.json", FormatJSON)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Empty(t, uris)
}

func TestNewS3PublisherRequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(context.Background(), S3Config{}, nil)
	assert.Error(t, err)
}
