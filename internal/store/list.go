package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// List returns every object (and, when delimiter is set, every common
// prefix) under prefix, paginating under the hood via ListObjectsV2 and
// exposing a single flat result to the caller. An empty
// delimiter recurses through all keys under prefix; max bounds the total
// number of objects returned, not the page size.
func (g *S3Gateway) List(ctx context.Context, bucket, prefix, delimiter string, max int) (ListResult, error) {
	var result ListResult

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}

	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}

	paginator := s3.NewListObjectsV2Paginator(g.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return ListResult{}, fmt.Errorf("store: listing %s/%s: %w", bucket, prefix, classifyError(err))
		}

		for _, obj := range page.Contents {
			result.Objects = append(result.Objects, Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: unquoteETag(aws.ToString(obj.ETag)),
			})

			if max > 0 && len(result.Objects) >= max {
				return result, nil
			}
		}

		for _, cp := range page.CommonPrefixes {
			result.CommonPrefixes = append(result.CommonPrefixes, aws.ToString(cp.Prefix))
		}
	}

	return result, nil
}
