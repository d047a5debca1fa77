package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

type Object struct {
	ContentType string
	Data        []byte
}

// Memory keeps objects in process; signed urls point at a fake host.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
	// UploadErr, when set, fails every upload.
	UploadErr error
}

func NewMemory() *Memory {
	return &Memory{objects: map[string]Object{}}
}

func (m *Memory) Upload(ctx context.Context, name string, contentType string, r io.Reader) (int64, error) {
	if m.UploadErr != nil {
		return 0, m.UploadErr
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return n, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = Object{ContentType: contentType, Data: buf.Bytes()}
	return n, nil
}

func (m *Memory) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *Memory) SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[name]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("objectstore: %s does not exist", name)
	}
	return fmt.Sprintf("https://storage.invalid/%s?ttl=%d", url.PathEscape(name), int(ttl.Seconds())), nil
}

func (m *Memory) Get(name string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[name]
	return o, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
