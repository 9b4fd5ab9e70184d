package storage

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

const uploadConcurrency = 4

// UploadImages validates and stores files concurrently under prefix and
// returns their public URLs in input order. If any upload fails the ones
// that succeeded are deleted and the first error is returned.
func UploadImages(ctx context.Context, b Bucket, prefix string, files []File) ([]string, error) {
	keys := make([]string, len(files))
	types := make([]string, len(files))
	for i, f := range files {
		ct, err := ValidateImage(f.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		types[i] = ct
		keys[i] = NewKey(prefix, f.Name, ct)
	}

	done := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i := range files {
		g.Go(func() error {
			if err := b.Upload(gctx, keys[i], types[i], files[i].Data); err != nil {
				return fmt.Errorf("upload %s: %w", files[i].Name, err)
			}
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i, ok := range done {
			if !ok {
				continue
			}
			if derr := b.Delete(context.Background(), keys[i]); derr != nil {
				log.Printf("WARN: cleanup %s: %v", keys[i], derr)
			}
		}
		return nil, err
	}

	urls := make([]string, len(keys))
	for i, k := range keys {
		urls[i] = b.PublicURL(k)
	}
	return urls, nil
}
