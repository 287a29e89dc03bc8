package s3storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
)

type mockS3 struct{ mock.Mock }

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(*in.Bucket, *in.Key)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func TestClassifyAWS(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want filereader.Kind
	}{
		{"no such key", &s3types.NoSuchKey{}, filereader.KindNotFound},
		{"not found", &s3types.NotFound{}, filereader.KindNotFound},
		{"no such bucket", &s3types.NoSuchBucket{}, filereader.KindBucketNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, filereader.KindAccessDenied},
		{"wrapped", fmt.Errorf("op: %w", &s3types.NoSuchKey{}), filereader.KindNotFound},
		{"throttled", &smithy.GenericAPIError{Code: "SlowDown"}, filereader.KindReadFailure},
		{"plain", errors.New("dial tcp: refused"), filereader.KindReadFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyAWS(tt.err))
		})
	}
}

func TestAWSReader_ReadFile(t *testing.T) {
	client := new(mockS3)
	client.On("GetObject", "sales", "jan.csv").Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("date,total\n")),
	}, nil)
	client.On("GetObject", "sales", "gone.csv").Return(nil, &s3types.NoSuchKey{})

	r := NewAWSReaderWithClient(client, nil)

	text, err := r.ReadFile(context.Background(), "sales", "jan.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,total\n", text)

	_, err = r.ReadFile(context.Background(), "sales", "gone.csv")
	assert.ErrorIs(t, err, filereader.ErrNotFound)

	_, err = r.ReadFile(context.Background(), "", "jan.csv")
	assert.ErrorIs(t, err, filereader.ErrInvalidArgument)
	client.AssertNumberOfCalls(t, "GetObject", 2)
}
