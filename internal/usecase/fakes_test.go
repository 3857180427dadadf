package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
)

type memEntry struct {
	blob domain.Blob
	data []byte
}

// memStore реализует BlobStore в памяти с тем же поведением, что и боевое хранилище.
type memStore struct {
	mu      sync.Mutex
	entries map[domain.Namespace]map[string]*memEntry
	seq     int
	clock   time.Time

	storeErr  error
	putErr    error
	updateErr error
	queryErr  error

	storeCalls int
	putCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		entries: map[domain.Namespace]map[string]*memEntry{
			domain.NamespaceOriginals:  {},
			domain.NamespaceThumbnails: {},
		},
		clock: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) Store(_ context.Context, ns domain.Namespace, r io.Reader, size int64, meta domain.BlobMetadata) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeCalls++

	if m.storeErr != nil {
		return "", m.storeErr
	}

	m.seq++
	id := fmt.Sprintf("P%d", m.seq)
	return id, m.putLocked(ns, id, r, meta)
}

func (m *memStore) Put(_ context.Context, ns domain.Namespace, id string, r io.Reader, _ int64, meta domain.BlobMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	if m.putErr != nil {
		return m.putErr
	}

	return m.putLocked(ns, id, r, meta)
}

func (m *memStore) putLocked(ns domain.Namespace, id string, r io.Reader, meta domain.BlobMetadata) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	now := m.tick()
	created := now
	if old, ok := m.entries[ns][id]; ok {
		created = old.blob.CreatedAt
	}

	m.entries[ns][id] = &memEntry{
		blob: domain.Blob{
			ID:        id,
			Namespace: ns,
			Size:      int64(len(data)),
			Metadata:  meta.Merge(domain.MetadataPatch{}),
			CreatedAt: created,
			UpdatedAt: now,
		},
		data: data,
	}
	return nil
}

func (m *memStore) FetchMetadata(_ context.Context, ns domain.Namespace, id string) (*domain.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[ns][id]
	if !ok {
		return nil, e.Wrap(id, e.ErrNotFound)
	}
	blob := entry.blob
	return &blob, nil
}

func (m *memStore) OpenReadStream(_ context.Context, ns domain.Namespace, id string) (io.ReadCloser, *domain.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[ns][id]
	if !ok {
		return nil, nil, e.Wrap(id, e.ErrNotFound)
	}
	blob := entry.blob
	return io.NopCloser(bytes.NewReader(entry.data)), &blob, nil
}

func (m *memStore) UpdateMetadata(_ context.Context, ns domain.Namespace, id string, patch domain.MetadataPatch) (*domain.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return nil, m.updateErr
	}

	entry, ok := m.entries[ns][id]
	if !ok {
		return nil, e.Wrap(id, e.ErrNotFound)
	}
	entry.blob.Metadata = entry.blob.Metadata.Merge(patch)
	entry.blob.UpdatedAt = m.tick()

	blob := entry.blob
	return &blob, nil
}

func (m *memStore) QueryByMetadataField(_ context.Context, ns domain.Namespace, field domain.MetadataField, value any) ([]domain.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var out []domain.Blob
	for _, entry := range m.entries[ns] {
		meta := entry.blob.Metadata
		match := false
		switch field {
		case domain.FieldBusinessID:
			match = meta.BusinessID == value
		case domain.FieldCaption:
			match = meta.Caption == value
		case domain.FieldMimeType:
			match = meta.MimeType == value
		case domain.FieldTags:
			tags, _ := value.([]string)
			match = meta.ClassifiedAt != nil && slices.Equal(meta.Tags, tags)
		case domain.FieldThumbnailID:
			match = meta.ThumbnailID != nil && *meta.ThumbnailID == value
		}
		if match {
			out = append(out, entry.blob)
		}
	}

	slices.SortFunc(out, func(a, b domain.Blob) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (m *memStore) entry(ns domain.Namespace, id string) (*memEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[ns][id]
	return entry, ok
}

func (m *memStore) count(ns domain.Namespace) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[ns])
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
	// storeCountAtPublish фиксирует число оригиналов в момент публикации
	store               *memStore
	storeCountAtPublish []int
}

func (f *fakePublisher) Publish(_ context.Context, photoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store != nil {
		f.storeCountAtPublish = append(f.storeCountAtPublish, f.store.count(domain.NamespaceOriginals))
	}
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, photoID)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	photos  map[string]PhotoInfo
	deleted []string
	getErr  error
	// sets получает каждую записанную карточку, если канал задан
	sets chan PhotoInfo
}

func newFakeCache() *fakeCache {
	return &fakeCache{photos: map[string]PhotoInfo{}}
}

func (f *fakeCache) GetPhoto(_ context.Context, id string) (*PhotoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.photos[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeCache) SetPhoto(_ context.Context, photo *PhotoInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[photo.ID] = *photo
	if f.sets != nil {
		f.sets <- *photo
	}
	return nil
}

func (f *fakeCache) DeletePhoto(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.photos, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeClassifier struct {
	labels []domain.Label
	err    error
	calls  int
}

func (f *fakeClassifier) Warmup(context.Context) error { return nil }

func (f *fakeClassifier) Classify(_ context.Context, image []byte) ([]domain.Label, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	return f.labels, nil
}

// fakeThumbs возвращает детерминированный «JPEG» по содержимому входа.
type fakeThumbs struct {
	err error
}

func (f *fakeThumbs) Generate(image []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("thumb:"), image[:min(len(image), 8)]...), nil
}
