package httpclient

import (
	"context"
	"io"
)

// cancelOnClose releases the default timeout context once the caller is
// done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
