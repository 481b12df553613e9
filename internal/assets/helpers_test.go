package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, nil
}
