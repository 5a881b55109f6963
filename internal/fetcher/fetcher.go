package fetcher

import (
	"context"

	"github.com/rohmanhakim/image-cache/pkg/failure"
)

type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
	) (FetchResult, failure.ClassifiedError)
}
