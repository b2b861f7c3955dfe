package kawa

import (
	"context"
	"io"
)

// copyBody streams src into dst until EOF, a write failure, or cancellation
// of the request context (the client going away). src is always released:
// if it implements io.Closer it is closed on every exit path, whether the
// copy completed or terminated early.
func copyBody(ctx context.Context, dst io.Writer, src io.Reader) (err error) {
	defer func() {
		if cl, ok := src.(io.Closer); ok {
			if cerr := cl.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	buf := make([]byte, 32*1024)
	for {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
