package dataset

import (
	"context"

	"github.com/cockroachdb/errors"
	getter "github.com/hashicorp/go-getter"
)

// Fetcher downloads a single file from src to the local path dst.
type Fetcher interface {
	Fetch(ctx context.Context, src, dst string) error
}

// GetterFetcher fetches with go-getter, so src may be any URL go-getter
// understands (https, s3, gcs, file paths).
type GetterFetcher struct {
	// Getters overrides go-getter's default protocol table when set.
	Getters map[string]getter.Getter
}

// Fetch downloads src to dst.
func (f GetterFetcher) Fetch(ctx context.Context, src, dst string) error {
	getters := f.Getters
	if getters == nil {
		getters = getter.Getters
	}
	client := &getter.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Mode:    getter.ClientModeFile,
		Getters: getters,
	}
	if err := client.Get(); err != nil {
		return errors.Wrapf(err, "fetch %s", src)
	}
	return nil
}
