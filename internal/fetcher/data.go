package fetcher

// HTTP boundary

type FetchParam struct {
	fetchUrl string
}

func NewFetchParam(fetchUrl string) FetchParam {
	return FetchParam{
		fetchUrl: fetchUrl,
	}
}

func (p FetchParam) URL() string {
	return p.fetchUrl
}

type FetchResult struct {
	url  string
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() string {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	contentType         string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url string,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			contentType:         contentType,
		},
	}
}
